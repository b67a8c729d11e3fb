// FilePath: internal/models/models.composite.go
package models

import "time"

// MonitoredAttributeStatus combines a monitored attribute with its
// attribute descriptor and latest reading, for the apartment-sensor
// listing.
type MonitoredAttributeStatus struct {
	ID          string     `json:"id"`
	URI         string     `json:"uri"`
	Description string     `json:"description"`
	UIType      UIType     `json:"ui_type,omitempty"`
	Value       *float64   `json:"value"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// DeviceStatus is a device binding with the current state of everything
// it reports.
type DeviceStatus struct {
	Device     *DeviceBinding             `json:"device"`
	Attributes []MonitoredAttributeStatus `json:"attributes"`
}

// SubscriptionWithService is the user-facing subscription listing shape.
type SubscriptionWithService struct {
	Subscription *Subscription `json:"subscription"`
	Service      *Service      `json:"service"`
}
