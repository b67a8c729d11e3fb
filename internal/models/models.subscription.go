// FilePath: internal/models/models.subscription.go
package models

import "time"

// Subscription links a user to a service together with the monitored
// attributes the user agreed to share. UUID is the external correlation
// key. Registered is stamped only after the remote register call
// succeeded; a subscription with Registered == nil never became active.
type Subscription struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	ServiceID  string     `json:"service_id" db:"service_id"`
	UUID       string     `json:"uuid" db:"uuid"`
	Registered *time.Time `json:"registered" db:"registered"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	// MonitoredAttributeIDs is the attribute set shared with the
	// service. Loaded from the join table, not a column.
	MonitoredAttributeIDs []string `json:"attributes" db:"-"`
}

// Contains reports whether the subscription covers the given monitored
// attribute.
func (s *Subscription) Contains(monitoredAttributeID string) bool {
	for _, id := range s.MonitoredAttributeIDs {
		if id == monitoredAttributeID {
			return true
		}
	}
	return false
}
