package hubservice

import (
	"context"
	"time"

	"github.com/aptsense/hub/internal/cache"
	"github.com/aptsense/hub/internal/cleanup"
	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository"
)

// SyncClient is the outbound surface the hub service needs from the
// sync client; tests substitute a recording fake.
type SyncClient interface {
	Register(ctx context.Context, service *models.Service, subscription *models.Subscription, attributes []remote.AttributePayload) (time.Time, error)
	Unregister(ctx context.Context, service *models.Service, subscription *models.Subscription) error
	PushValues(ctx context.Context, service *models.Service, subscription *models.Subscription, values []remote.ValuePayload) error
}

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Apartments    repository.ApartmentRepository
	Devices       repository.DeviceRepository
	Attributes    repository.AttributeRepository
	Monitored     repository.MonitoredAttributeRepository
	Values        repository.ValueRepository
	Services      repository.ServiceRepository
	Subscriptions repository.SubscriptionRepository

	Sync    SyncClient
	Cache   *cache.LatestValueCache
	Cleanup *cleanup.CleanupService

	// AttributeURIs maps decoded payload keys to attribute URIs.
	AttributeURIs map[string]string
}

// New creates a new HubService instance
func New(
	apartments repository.ApartmentRepository,
	devices repository.DeviceRepository,
	attributes repository.AttributeRepository,
	monitored repository.MonitoredAttributeRepository,
	values repository.ValueRepository,
	services repository.ServiceRepository,
	subscriptions repository.SubscriptionRepository,
	sync SyncClient,
	valueCache *cache.LatestValueCache,
	attributeURIs map[string]string,
) *HubService {
	svc := &HubService{
		Apartments:    apartments,
		Devices:       devices,
		Attributes:    attributes,
		Monitored:     monitored,
		Values:        values,
		Services:      services,
		Subscriptions: subscriptions,
		Sync:          sync,
		Cache:         valueCache,
		AttributeURIs: attributeURIs,
	}
	svc.Cleanup = cleanup.New(devices, monitored, values)
	return svc
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Devices == nil {
		return ErrMissingDependency("devices")
	}
	if s.Attributes == nil {
		return ErrMissingDependency("attributes")
	}
	if s.Monitored == nil {
		return ErrMissingDependency("monitored")
	}
	if s.Values == nil {
		return ErrMissingDependency("values")
	}
	if s.Services == nil {
		return ErrMissingDependency("services")
	}
	if s.Subscriptions == nil {
		return ErrMissingDependency("subscriptions")
	}
	if s.Sync == nil {
		return ErrMissingDependency("sync client")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}
