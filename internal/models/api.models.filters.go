package models

// DeviceFilters defines the available filter options for the device
// listing, decoded from query parameters.
type DeviceFilters struct {
	ApartmentID string `schema:"apartment_id"`
	Unassigned  bool   `schema:"unassigned"`
}

// SubscriptionFilters defines the available filter options for the
// subscription listing.
type SubscriptionFilters struct {
	ServiceID string `schema:"service_id"`
}
