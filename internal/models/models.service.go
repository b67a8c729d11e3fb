// FilePath: internal/models/models.service.go
package models

import "time"

// Service is a 3rd party report provider users can subscribe to. All
// outgoing POSTs to it carry AuthToken as the credential; the
// subscription UUID is only the correlation key.
type Service struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	Price         string    `json:"price" db:"price"`
	BenefitShort  string    `json:"benefit_short" db:"benefit_short"`
	BenefitLong   string    `json:"benefit_long" db:"benefit_long"`
	EulaURL       string    `json:"eula_url" db:"eula_url"`
	ImgLogoURL    string    `json:"img_logo_url" db:"img_logo_url"`
	ImgServiceURL string    `json:"img_service_url" db:"img_service_url"`
	SubscribeURL  string    `json:"-" db:"subscribe_url"`
	UnsubscribeURL string   `json:"-" db:"unsubscribe_url"`
	DataURL       string    `json:"-" db:"data_url"`
	ReportURL     string    `json:"report_url" db:"report_url"`
	PreviewURL    string    `json:"preview_url" db:"preview_url"`
	AuthToken     string    `json:"-" db:"auth_token"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	// RequiredAttributeIDs lists the attributes of which at least one
	// must be present in any subscription. Loaded from the join table,
	// not a column.
	RequiredAttributeIDs []string `json:"requires" db:"-"`
}
