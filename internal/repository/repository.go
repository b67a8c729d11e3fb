// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aptsense/hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// DeviceRepository defines the interface for device binding operations.
// GetOrCreateByIdentifier must be race-safe: two concurrent calls for
// the same unseen identifier resolve to a single row.
type DeviceRepository interface {
	GetOrCreateByIdentifier(ctx context.Context, identifier string) (*models.DeviceBinding, error)
	Get(ctx context.Context, id string) (*models.DeviceBinding, error)
	Update(ctx context.Context, device *models.DeviceBinding) error
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]*models.DeviceBinding, error)
}

// AttributeRepository defines the interface for sensor attribute
// operations. Both get-or-create variants are backed by uniqueness
// constraints (uri, and description for URI-less attributes).
type AttributeRepository interface {
	GetOrCreateByURI(ctx context.Context, uri, description string) (*models.Attribute, error)
	GetOrCreateByDescription(ctx context.Context, description string) (*models.Attribute, error)
	Get(ctx context.Context, id string) (*models.Attribute, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Attribute, error)
}

// MonitoredAttributeRepository defines the interface for the
// device-reports-attribute join entity.
type MonitoredAttributeRepository interface {
	GetOrCreate(ctx context.Context, deviceID, attributeID string) (*models.MonitoredAttribute, error)
	Get(ctx context.Context, id string) (*models.MonitoredAttribute, error)
	GetMany(ctx context.Context, ids []string) ([]*models.MonitoredAttribute, error)
	ListByDevice(ctx context.Context, deviceID string) ([]*models.MonitoredAttribute, error)
	DeleteByDevice(ctx context.Context, deviceID string) error
}

// ValueRepository defines the interface for measurement values.
type ValueRepository interface {
	Append(ctx context.Context, monitoredAttributeID string, value float64, timestamp time.Time) (*models.Value, error)
	Latest(ctx context.Context, monitoredAttributeID string) (*models.Value, error)
	ListByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) ([]*models.Value, error)
	DeleteByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) error
}

// ServiceRepository defines the interface for external report services.
type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	Get(ctx context.Context, id string) (*models.Service, error)
	ListAvailableForUser(ctx context.Context, userID string) ([]*models.Service, error)
}

// SubscriptionRepository defines the interface for subscriptions and
// their attribute sets.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	Get(ctx context.Context, id string) (*models.Subscription, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Subscription, error)
	ListByMonitoredAttributes(ctx context.Context, monitoredAttributeIDs []string) ([]*models.Subscription, error)
	SetRegistered(ctx context.Context, id string, registered time.Time) error
}

// ApartmentRepository defines the interface for apartments; only the
// ownership lookup is needed by the core.
type ApartmentRepository interface {
	Create(ctx context.Context, apartment *models.Apartment) error
	Get(ctx context.Context, id string) (*models.Apartment, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Apartment, error)
}
