// FilePath: internal/models/models.device.go
package models

import "time"

// Apartment is a dwelling owned by a user; devices are installed in it.
type Apartment struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Street     string    `json:"street" db:"street"`
	City       string    `json:"city" db:"city"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SensorModel is a physical product model, eg. Elsys ERS-CO2.
type SensorModel struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceBinding links a physical device identifier (serial number,
// DevEUI) to an apartment and a sensor model. A binding created from an
// unseen identifier starts with both links unset until an admin assigns
// them.
type DeviceBinding struct {
	ID            string    `json:"id" db:"id"`
	Identifier    string    `json:"identifier" db:"identifier"`
	ApartmentID   *string   `json:"apartment_id" db:"apartment_id" readxs:"*" writexs:"admin,system"`
	SensorModelID *string   `json:"sensor_model_id" db:"sensor_model_id" readxs:"*" writexs:"admin,system"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// MonitoredAttribute states that one device reports one attribute. It
// owns the value history and is the unit subscriptions reference.
type MonitoredAttribute struct {
	ID          string    `json:"id" db:"id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	AttributeID string    `json:"attribute_id" db:"attribute_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Value is one immutable timestamped reading of a monitored attribute.
type Value struct {
	ID                   string    `json:"id" db:"id"`
	MonitoredAttributeID string    `json:"monitored_attribute_id" db:"monitored_attribute_id"`
	Value                float64   `json:"value" db:"value"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}
