package hubservice

import (
	"context"

	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/google/uuid"
	nuts "github.com/vaudience/go-nuts"
)

// ListAvailableServices returns the services the user could subscribe
// to given what their devices currently monitor.
func (s *HubService) ListAvailableServices(ctx context.Context, userID string) ([]*models.Service, error) {
	return s.Services.ListAvailableForUser(ctx, userID)
}

// ListSubscriptions returns the user's subscriptions joined with their
// service descriptors.
func (s *HubService) ListSubscriptions(ctx context.Context, userID string) ([]*models.SubscriptionWithService, error) {
	subscriptions, err := s.Subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*models.SubscriptionWithService, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		service, err := s.Services.Get(ctx, subscription.ServiceID)
		if err != nil {
			return nil, err
		}
		result = append(result, &models.SubscriptionWithService{
			Subscription: subscription,
			Service:      service,
		})
	}
	return result, nil
}

// CreateSubscription persists a provisional subscription, registers it
// with the remote service and activates it. Registration failure rolls
// the provisional record back; the caller sees either an active
// subscription or none at all. When includeHistory is set, already
// collected values for the subscribed attributes are replayed after
// activation; a replay failure only logs, it does not undo the
// subscription.
func (s *HubService) CreateSubscription(ctx context.Context, userID, serviceID string, monitoredAttributeIDs []string, includeHistory bool) (*models.Subscription, error) {
	if len(monitoredAttributeIDs) == 0 {
		return nil, errors.NewValidationError("at least one attribute is required", nil)
	}

	service, err := s.Services.Get(ctx, serviceID)
	if err != nil {
		return nil, errors.NewNotFoundError("service not found", err)
	}

	attributes, err := s.authorizedAttributePayloads(ctx, userID, monitoredAttributeIDs)
	if err != nil {
		return nil, err
	}

	subscription := &models.Subscription{
		UserID:                userID,
		ServiceID:             serviceID,
		UUID:                  uuid.NewString(),
		MonitoredAttributeIDs: monitoredAttributeIDs,
	}
	if err := s.Subscriptions.Create(ctx, subscription); err != nil {
		return nil, err
	}

	registered, err := s.Sync.Register(ctx, service, subscription, attributes)
	if err != nil {
		// Roll the provisional record back so a failed registration
		// leaves no trace.
		if delErr := s.Subscriptions.Delete(ctx, subscription.ID); delErr != nil {
			nuts.L.Errorf("[SubscriptionService] Failed to roll back subscription %s: %v", subscription.ID, delErr)
		}
		return nil, errors.NewUpstreamError("could not register subscription with service", err)
	}

	if err := s.Subscriptions.SetRegistered(ctx, subscription.ID, registered); err != nil {
		return nil, err
	}
	subscription.Registered = &registered
	nuts.L.Infof("[SubscriptionService] Subscription %s active for service %s", subscription.UUID, service.Name)

	if includeHistory {
		if err := s.SubmitHistory(ctx, subscription); err != nil {
			nuts.L.Warnf("[SubscriptionService] History replay failed for subscription %s: %v", subscription.UUID, err)
		}
	}
	return subscription, nil
}

// DeleteSubscription removes the subscription locally and tells the
// remote service best-effort. The local delete is unconditional: a
// flaky remote must not be able to pin local state, so an unregister
// failure is only logged.
func (s *HubService) DeleteSubscription(ctx context.Context, userID, id string) error {
	subscription, err := s.Subscriptions.Get(ctx, id)
	if err != nil || subscription.UserID != userID {
		return errors.NewNotFoundError("subscription not found", err)
	}

	service, err := s.Services.Get(ctx, subscription.ServiceID)
	if err != nil {
		return err
	}

	if err := s.Sync.Unregister(ctx, service, subscription); err != nil {
		nuts.L.Warnf("[SubscriptionService] Unregister failed for subscription %s: %v", subscription.UUID, err)
	}

	return s.Subscriptions.Delete(ctx, id)
}

// SubmitHistory sends every already stored value of the subscription's
// attribute set to the remote service, regardless of how many unrelated
// values exist.
func (s *HubService) SubmitHistory(ctx context.Context, subscription *models.Subscription) error {
	service, err := s.Services.Get(ctx, subscription.ServiceID)
	if err != nil {
		return err
	}

	values, err := s.Values.ListByMonitoredAttributes(ctx, subscription.MonitoredAttributeIDs)
	if err != nil {
		return err
	}

	payloads := make([]remote.ValuePayload, 0, len(values))
	for _, v := range values {
		payloads = append(payloads, remote.ValuePayload{
			Attribute: v.MonitoredAttributeID,
			Value:     v.Value,
			Timestamp: v.CreatedAt,
		})
	}
	return s.Sync.PushValues(ctx, service, subscription, payloads)
}

// authorizedAttributePayloads verifies each monitored attribute belongs
// to a device in one of the user's apartments and builds the wire
// shapes for registration.
func (s *HubService) authorizedAttributePayloads(ctx context.Context, userID string, monitoredAttributeIDs []string) ([]remote.AttributePayload, error) {
	payloads := make([]remote.AttributePayload, 0, len(monitoredAttributeIDs))
	for _, maID := range monitoredAttributeIDs {
		ma, err := s.Monitored.Get(ctx, maID)
		if err != nil {
			return nil, errors.NewNotFoundError("monitored attribute not found", err)
		}

		device, err := s.Devices.Get(ctx, ma.DeviceID)
		if err != nil {
			return nil, err
		}
		if device.ApartmentID == nil {
			return nil, errors.NewNotFoundError("monitored attribute not found", nil)
		}
		apartment, err := s.Apartments.Get(ctx, *device.ApartmentID)
		if err != nil {
			return nil, err
		}
		if apartment.UserID != userID {
			return nil, errors.NewNotFoundError("monitored attribute not found", nil)
		}

		attr, err := s.Attributes.Get(ctx, ma.AttributeID)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, remote.AttributePayload{
			ID:          ma.ID,
			URI:         attr.URI,
			Description: attr.Description,
		})
	}
	return payloads, nil
}
