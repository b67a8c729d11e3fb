package cleanup

import (
	"context"
	"fmt"

	"github.com/aptsense/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// CleanupService coordinates deletion of hierarchical data
type CleanupService struct {
	devices   repository.DeviceRepository
	monitored repository.MonitoredAttributeRepository
	values    repository.ValueRepository
	events    *nuts.EventEmitter
}

// New creates a new CleanupService
func New(
	devices repository.DeviceRepository,
	monitored repository.MonitoredAttributeRepository,
	values repository.ValueRepository,
) *CleanupService {
	return &CleanupService{
		devices:   devices,
		monitored: monitored,
		values:    values,
		events:    nuts.NewEventEmitter(),
	}
}

// DeleteDevice deletes a device binding and all its associated data
func (s *CleanupService) DeleteDevice(ctx context.Context, deviceID string) error {
	// Get all monitored attributes for the device
	monitored, err := s.monitored.ListByDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("failed to list monitored attributes: %w", err)
	}

	// Delete value history for each monitored attribute
	if len(monitored) > 0 {
		ids := make([]string, 0, len(monitored))
		for _, ma := range monitored {
			ids = append(ids, ma.ID)
		}
		if err := s.values.DeleteByMonitoredAttributes(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete values: %w", err)
		}
		for _, id := range ids {
			s.events.Emit("monitored_attribute.deleted", id)
		}
	}

	// Delete the monitored attributes themselves
	if err := s.monitored.DeleteByDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete monitored attributes: %w", err)
	}

	// Finally, delete the device binding
	if err := s.devices.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	// Emit event after successful deletion
	s.events.Emit("device.deleted", deviceID)
	return nil
}

// OnCleanup registers a callback for cleanup events
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, "cleanup_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}
