// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aptsense/hub/internal/codec"
	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Gateway       *GatewayHandlers
	Devices       *DeviceHandlers
	Subscriptions *SubscriptionHandlers
	HealthCheck   func(w http.ResponseWriter, r *http.Request)
	Metrics       func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService, decoder codec.Decoder, dispatcher *dispatch.Dispatcher) *Resources {
	return &Resources{
		Gateway:       &GatewayHandlers{hubservice: svc, decoder: decoder, dispatcher: dispatcher},
		Devices:       &DeviceHandlers{hubservice: svc},
		Subscriptions: &SubscriptionHandlers{hubservice: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}

// Helper functions

func getPaginationParams(r *http.Request) (offset, limit int) {
	query := r.URL.Query()
	offset, _ = strconv.Atoi(query.Get("offset"))
	limit, _ = strconv.Atoi(query.Get("limit"))

	if limit <= 0 || limit > 100 {
		limit = 50 // Default limit
	}
	if offset < 0 {
		offset = 0
	}

	return offset, limit
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func requireUser(w http.ResponseWriter, r *http.Request, requestID string) (*hubservice.UserContext, bool) {
	user, ok := hubservice.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("no user context found", nil).WithRequestID(requestID))
		return nil, false
	}
	return user, true
}
