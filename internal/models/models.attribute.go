// FilePath: internal/models/models.attribute.go
package models

import "time"

type UIType string

const (
	UITypeTemperature UIType = "TEMPERATURE"
	UITypeHumidity    UIType = "HUMIDITY"
	UITypeCO2         UIType = "CO2"
	UITypeOther       UIType = ""
)

// Attribute is a named capability a sensor can report, eg. temperature.
// Identified by URI when one is known, otherwise by its description.
type Attribute struct {
	ID          string    `json:"id" db:"id"`
	URI         string    `json:"uri" db:"uri"`
	Description string    `json:"description" db:"description"`
	UIType      UIType    `json:"ui_type,omitempty" db:"ui_type"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IdentityKey returns the key the attribute is deduplicated on.
func (a *Attribute) IdentityKey() string {
	if a.URI != "" {
		return a.URI
	}
	return a.Description
}
