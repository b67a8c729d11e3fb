package hubservice

import (
	"context"
	"sort"
	"time"

	"github.com/aptsense/hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// Ingest resolves the device and attribute identities for one decoded
// payload and appends a value per reading. Every resolution is
// get-or-create: a never-seen device identifier produces an unassigned
// binding, a never-seen payload key produces a new attribute (keyed by
// URI when the mapping table knows one, by description otherwise).
//
// Ingest performs no external calls; the returned values are the
// trigger set the caller hands to the dispatcher once they are
// committed.
func (s *HubService) Ingest(ctx context.Context, deviceIdentifier string, decoded map[string]float64) ([]*models.Value, error) {
	device, err := s.Devices.GetOrCreateByIdentifier(ctx, deviceIdentifier)
	if err != nil {
		return nil, err
	}

	// Stable iteration keeps value ordering deterministic across
	// identical payloads.
	keys := make([]string, 0, len(decoded))
	for key := range decoded {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := time.Now()
	newValues := make([]*models.Value, 0, len(decoded))
	for _, key := range keys {
		attr, err := s.resolveAttribute(ctx, key)
		if err != nil {
			return nil, err
		}

		ma, err := s.Monitored.GetOrCreate(ctx, device.ID, attr.ID)
		if err != nil {
			return nil, err
		}

		v, err := s.Values.Append(ctx, ma.ID, decoded[key], now)
		if err != nil {
			return nil, err
		}
		s.Cache.Set(ctx, v)
		newValues = append(newValues, v)
	}

	nuts.L.Infof("[Ingest] Stored %d values for device %s", len(newValues), deviceIdentifier)
	return newValues, nil
}

func (s *HubService) resolveAttribute(ctx context.Context, key string) (*models.Attribute, error) {
	if uri := s.AttributeURIs[key]; uri != "" {
		return s.Attributes.GetOrCreateByURI(ctx, uri, key)
	}
	return s.Attributes.GetOrCreateByDescription(ctx, key)
}
