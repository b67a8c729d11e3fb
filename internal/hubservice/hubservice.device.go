package hubservice

import (
	"context"

	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
)

// ListDeviceStatuses returns the user's devices with the current
// reading of every monitored attribute, for the home view.
func (s *HubService) ListDeviceStatuses(ctx context.Context, userID string) ([]*models.DeviceStatus, error) {
	devices, err := s.Devices.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]*models.DeviceStatus, 0, len(devices))
	for _, device := range devices {
		monitored, err := s.Monitored.ListByDevice(ctx, device.ID)
		if err != nil {
			return nil, err
		}

		attrs := make([]models.MonitoredAttributeStatus, 0, len(monitored))
		for _, ma := range monitored {
			attr, err := s.Attributes.Get(ctx, ma.AttributeID)
			if err != nil {
				return nil, err
			}

			status := models.MonitoredAttributeStatus{
				ID:          ma.ID,
				URI:         attr.URI,
				Description: attr.Description,
				UIType:      attr.UIType,
			}
			if latest := s.latestValue(ctx, ma.ID); latest != nil {
				status.Value = &latest.Value
				status.UpdatedAt = &latest.CreatedAt
			}
			attrs = append(attrs, status)
		}
		statuses = append(statuses, &models.DeviceStatus{Device: device, Attributes: attrs})
	}
	return statuses, nil
}

func (s *HubService) latestValue(ctx context.Context, monitoredAttributeID string) *models.Value {
	if v, ok := s.Cache.Get(ctx, monitoredAttributeID); ok {
		return v
	}
	v, err := s.Values.Latest(ctx, monitoredAttributeID)
	if err != nil {
		if !errors.IsNotFound(err) {
			nuts.L.Warnf("[DeviceService] Latest value lookup failed for %s: %v", monitoredAttributeID, err)
		}
		return nil
	}
	s.Cache.Set(ctx, v)
	return v
}

// UpdateDeviceBinding applies an admin update (apartment / sensor model
// linking) with role-gated field access.
func (s *HubService) UpdateDeviceBinding(ctx context.Context, device *models.DeviceBinding) error {
	existing, err := s.Devices.Get(ctx, device.ID)
	if err != nil {
		return err
	}

	roles := GetUserRoles(ctx)
	updatedFields, _, err := struccy.UpdateStructFields(existing, device, roles, true, true)
	if err != nil {
		return errors.NewAuthorizationError("unauthorized field update", err)
	}

	nuts.L.Infof("[DeviceService] Updating device %s, fields changed: %v", device.ID, updatedFields)
	return s.Devices.Update(ctx, existing)
}

// DeleteDevice removes a device binding together with its monitored
// attributes and value history.
func (s *HubService) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.Devices.Get(ctx, id); err != nil {
		return err
	}
	return s.Cleanup.DeleteDevice(ctx, id)
}
