// Package memory provides mutex-guarded in-memory implementations of
// the repository interfaces. They back the unit tests and the
// standalone development mode; production wiring uses the postgres
// package.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Store holds all in-memory state and exposes one repository view per
// entity. A single mutex guards everything; get-or-create races resolve
// the same way the database uniqueness constraints do.
type Store struct {
	mu sync.Mutex

	devices       map[string]*models.DeviceBinding
	attributes    map[string]*models.Attribute
	monitored     map[string]*models.MonitoredAttribute
	values        []*models.Value
	services      map[string]*models.Service
	subscriptions map[string]*models.Subscription
	apartments    map[string]*models.Apartment
}

func NewStore() *Store {
	return &Store{
		devices:       make(map[string]*models.DeviceBinding),
		attributes:    make(map[string]*models.Attribute),
		monitored:     make(map[string]*models.MonitoredAttribute),
		services:      make(map[string]*models.Service),
		subscriptions: make(map[string]*models.Subscription),
		apartments:    make(map[string]*models.Apartment),
	}
}

func (s *Store) Devices() repository.DeviceRepository             { return (*deviceRepo)(s) }
func (s *Store) Attributes() repository.AttributeRepository       { return (*attributeRepo)(s) }
func (s *Store) Monitored() repository.MonitoredAttributeRepository { return (*monitoredRepo)(s) }
func (s *Store) Values() repository.ValueRepository               { return (*valueRepo)(s) }
func (s *Store) Services() repository.ServiceRepository           { return (*serviceRepo)(s) }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return (*subscriptionRepo)(s) }
func (s *Store) Apartments() repository.ApartmentRepository       { return (*apartmentRepo)(s) }

type deviceRepo Store

func (r *deviceRepo) GetOrCreateByIdentifier(_ context.Context, identifier string) (*models.DeviceBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.Identifier == identifier {
			return d, nil
		}
	}
	now := time.Now()
	d := &models.DeviceBinding{
		ID:         nuts.NID("dev", 12),
		Identifier: identifier,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.devices[d.ID] = d
	return d, nil
}

func (r *deviceRepo) Get(_ context.Context, id string) (*models.DeviceBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, errors.NewNotFoundError("device binding not found", repository.ErrNotFound)
	}
	return d, nil
}

func (r *deviceRepo) Update(_ context.Context, device *models.DeviceBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.ID]; !ok {
		return errors.NewNotFoundError("device binding not found", repository.ErrNotFound)
	}
	device.UpdatedAt = time.Now()
	r.devices[device.ID] = device
	return nil
}

func (r *deviceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return errors.NewNotFoundError("device binding not found", repository.ErrNotFound)
	}
	delete(r.devices, id)
	return nil
}

func (r *deviceRepo) ListForUser(_ context.Context, userID string) ([]*models.DeviceBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make(map[string]bool)
	for _, a := range r.apartments {
		if a.UserID == userID {
			owned[a.ID] = true
		}
	}
	devices := []*models.DeviceBinding{}
	for _, d := range r.devices {
		if d.ApartmentID != nil && owned[*d.ApartmentID] {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].CreatedAt.Before(devices[j].CreatedAt) })
	return devices, nil
}

type attributeRepo Store

func (r *attributeRepo) GetOrCreateByURI(_ context.Context, uri, description string) (*models.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.attributes {
		if a.URI == uri {
			return a, nil
		}
	}
	now := time.Now()
	a := &models.Attribute{
		ID:          nuts.NID("attr", 12),
		URI:         uri,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.attributes[a.ID] = a
	return a, nil
}

func (r *attributeRepo) GetOrCreateByDescription(_ context.Context, description string) (*models.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.attributes {
		if a.URI == "" && a.Description == description {
			return a, nil
		}
	}
	now := time.Now()
	a := &models.Attribute{
		ID:          nuts.NID("attr", 12),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.attributes[a.ID] = a
	return a, nil
}

func (r *attributeRepo) Get(_ context.Context, id string) (*models.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attributes[id]
	if !ok {
		return nil, errors.NewNotFoundError("attribute not found", repository.ErrNotFound)
	}
	return a, nil
}

func (r *attributeRepo) GetMany(_ context.Context, ids []string) ([]*models.Attribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attrs := []*models.Attribute{}
	for _, id := range ids {
		if a, ok := r.attributes[id]; ok {
			attrs = append(attrs, a)
		}
	}
	return attrs, nil
}

type monitoredRepo Store

func (r *monitoredRepo) GetOrCreate(_ context.Context, deviceID, attributeID string) (*models.MonitoredAttribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ma := range r.monitored {
		if ma.DeviceID == deviceID && ma.AttributeID == attributeID {
			return ma, nil
		}
	}
	ma := &models.MonitoredAttribute{
		ID:          nuts.NID("mattr", 12),
		DeviceID:    deviceID,
		AttributeID: attributeID,
		CreatedAt:   time.Now(),
	}
	r.monitored[ma.ID] = ma
	return ma, nil
}

func (r *monitoredRepo) Get(_ context.Context, id string) (*models.MonitoredAttribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ma, ok := r.monitored[id]
	if !ok {
		return nil, errors.NewNotFoundError("monitored attribute not found", repository.ErrNotFound)
	}
	return ma, nil
}

func (r *monitoredRepo) GetMany(_ context.Context, ids []string) ([]*models.MonitoredAttribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mas := []*models.MonitoredAttribute{}
	for _, id := range ids {
		if ma, ok := r.monitored[id]; ok {
			mas = append(mas, ma)
		}
	}
	return mas, nil
}

func (r *monitoredRepo) ListByDevice(_ context.Context, deviceID string) ([]*models.MonitoredAttribute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mas := []*models.MonitoredAttribute{}
	for _, ma := range r.monitored {
		if ma.DeviceID == deviceID {
			mas = append(mas, ma)
		}
	}
	sort.Slice(mas, func(i, j int) bool { return mas[i].CreatedAt.Before(mas[j].CreatedAt) })
	return mas, nil
}

func (r *monitoredRepo) DeleteByDevice(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ma := range r.monitored {
		if ma.DeviceID == deviceID {
			delete(r.monitored, id)
		}
	}
	return nil
}

type valueRepo Store

func (r *valueRepo) Append(_ context.Context, monitoredAttributeID string, value float64, timestamp time.Time) (*models.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := &models.Value{
		ID:                   nuts.NID("val", 16),
		MonitoredAttributeID: monitoredAttributeID,
		Value:                value,
		CreatedAt:            timestamp,
	}
	r.values = append(r.values, v)
	return v, nil
}

func (r *valueRepo) Latest(_ context.Context, monitoredAttributeID string) (*models.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.Value
	for _, v := range r.values {
		if v.MonitoredAttributeID != monitoredAttributeID {
			continue
		}
		if latest == nil || v.CreatedAt.After(latest.CreatedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no values recorded", repository.ErrNotFound)
	}
	return latest, nil
}

func (r *valueRepo) ListByMonitoredAttributes(_ context.Context, monitoredAttributeIDs []string) ([]*models.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(monitoredAttributeIDs))
	for _, id := range monitoredAttributeIDs {
		wanted[id] = true
	}
	values := []*models.Value{}
	for _, v := range r.values {
		if wanted[v.MonitoredAttributeID] {
			values = append(values, v)
		}
	}
	return values, nil
}

func (r *valueRepo) DeleteByMonitoredAttributes(_ context.Context, monitoredAttributeIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(monitoredAttributeIDs))
	for _, id := range monitoredAttributeIDs {
		wanted[id] = true
	}
	kept := r.values[:0]
	for _, v := range r.values {
		if !wanted[v.MonitoredAttributeID] {
			kept = append(kept, v)
		}
	}
	r.values = kept
	return nil
}

type serviceRepo Store

func (r *serviceRepo) Create(_ context.Context, service *models.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if service.ID == "" {
		service.ID = nuts.NID("svc", 12)
	}
	now := time.Now()
	service.CreatedAt = now
	service.UpdatedAt = now
	r.services[service.ID] = service
	return nil
}

func (r *serviceRepo) Get(_ context.Context, id string) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	service, ok := r.services[id]
	if !ok {
		return nil, errors.NewNotFoundError("service not found", repository.ErrNotFound)
	}
	return service, nil
}

func (r *serviceRepo) ListAvailableForUser(_ context.Context, userID string) ([]*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Attribute ids monitored on devices in the user's apartments.
	owned := make(map[string]bool)
	for _, a := range r.apartments {
		if a.UserID == userID {
			owned[a.ID] = true
		}
	}
	userDevices := make(map[string]bool)
	for _, d := range r.devices {
		if d.ApartmentID != nil && owned[*d.ApartmentID] {
			userDevices[d.ID] = true
		}
	}
	monitored := make(map[string]bool)
	for _, ma := range r.monitored {
		if userDevices[ma.DeviceID] {
			monitored[ma.AttributeID] = true
		}
	}

	services := []*models.Service{}
	for _, service := range r.services {
		for _, attrID := range service.RequiredAttributeIDs {
			if monitored[attrID] {
				services = append(services, service)
				break
			}
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

type subscriptionRepo Store

func (r *subscriptionRepo) Create(_ context.Context, subscription *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subscription.ID == "" {
		subscription.ID = nuts.NID("sub", 12)
	}
	now := time.Now()
	subscription.CreatedAt = now
	subscription.UpdatedAt = now
	r.subscriptions[subscription.ID] = subscription
	return nil
}

func (r *subscriptionRepo) Get(_ context.Context, id string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscription, ok := r.subscriptions[id]
	if !ok {
		return nil, errors.NewNotFoundError("subscription not found", repository.ErrNotFound)
	}
	return subscription, nil
}

func (r *subscriptionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscriptions[id]; !ok {
		return errors.NewNotFoundError("subscription not found", repository.ErrNotFound)
	}
	delete(r.subscriptions, id)
	return nil
}

func (r *subscriptionRepo) ListByUser(_ context.Context, userID string) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscriptions := []*models.Subscription{}
	for _, s := range r.subscriptions {
		if s.UserID == userID {
			subscriptions = append(subscriptions, s)
		}
	}
	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})
	return subscriptions, nil
}

func (r *subscriptionRepo) ListByMonitoredAttributes(_ context.Context, monitoredAttributeIDs []string) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(monitoredAttributeIDs))
	for _, id := range monitoredAttributeIDs {
		wanted[id] = true
	}
	subscriptions := []*models.Subscription{}
	for _, s := range r.subscriptions {
		for _, maID := range s.MonitoredAttributeIDs {
			if wanted[maID] {
				subscriptions = append(subscriptions, s)
				break
			}
		}
	}
	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})
	return subscriptions, nil
}

func (r *subscriptionRepo) SetRegistered(_ context.Context, id string, registered time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscription, ok := r.subscriptions[id]
	if !ok {
		return errors.NewNotFoundError("subscription not found", repository.ErrNotFound)
	}
	subscription.Registered = &registered
	subscription.UpdatedAt = time.Now()
	return nil
}

type apartmentRepo Store

func (r *apartmentRepo) Create(_ context.Context, apartment *models.Apartment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if apartment.ID == "" {
		apartment.ID = nuts.NID("apt", 12)
	}
	now := time.Now()
	apartment.CreatedAt = now
	apartment.UpdatedAt = now
	r.apartments[apartment.ID] = apartment
	return nil
}

func (r *apartmentRepo) Get(_ context.Context, id string) (*models.Apartment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	apartment, ok := r.apartments[id]
	if !ok {
		return nil, errors.NewNotFoundError("apartment not found", repository.ErrNotFound)
	}
	return apartment, nil
}

func (r *apartmentRepo) ListForUser(_ context.Context, userID string) ([]*models.Apartment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	apartments := []*models.Apartment{}
	for _, a := range r.apartments {
		if a.UserID == userID {
			apartments = append(apartments, a)
		}
	}
	sort.Slice(apartments, func(i, j int) bool { return apartments[i].CreatedAt.Before(apartments[j].CreatedAt) })
	return apartments, nil
}
