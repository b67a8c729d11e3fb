// FilePath: api/resources/api.resource.subscriptions.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/aptsense/hub/internal/models"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// SubscriptionHandlers encapsulates the subscription-related HTTP handlers
type SubscriptionHandlers struct {
	hubservice *hubservice.HubService
}

// createSubscriptionRequest is the subscription creation body.
type createSubscriptionRequest struct {
	ServiceID             string   `json:"service"`
	MonitoredAttributeIDs []string `json:"attributes"`
	IncludeHistory        bool     `json:"include_history"`
}

// @Summary List available services
// @Description Get the report services whose required attributes the caller's sensors can supply
// @Tags subscriptions
// @Produce json
// @Success 200 {array} models.Service
// @Failure 401 {object} errors.APIError
// @Router /services [get]
// @Security BearerAuth
func (h *SubscriptionHandlers) ListServices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	user, ok := requireUser(w, r, requestID)
	if !ok {
		return
	}

	services, err := h.hubservice.ListAvailableServices(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list services", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, services)
}

// @Summary List subscriptions
// @Description Get the caller's subscriptions with their service details
// @Tags subscriptions
// @Produce json
// @Param service_id query string false "Filter by service"
// @Success 200 {array} models.SubscriptionWithService
// @Failure 401 {object} errors.APIError
// @Router /subscriptions [get]
// @Security BearerAuth
func (h *SubscriptionHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	user, ok := requireUser(w, r, requestID)
	if !ok {
		return
	}

	var filters models.SubscriptionFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	subscriptions, err := h.hubservice.ListSubscriptions(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list subscriptions", err).WithRequestID(requestID))
		return
	}

	if filters.ServiceID != "" {
		filtered := make([]*models.SubscriptionWithService, 0, len(subscriptions))
		for _, s := range subscriptions {
			if s.Subscription.ServiceID == filters.ServiceID {
				filtered = append(filtered, s)
			}
		}
		subscriptions = filtered
	}

	respondWithJSON(w, http.StatusOK, subscriptions)
}

// @Summary Create a subscription
// @Description Subscribe a set of monitored attributes to an external report service
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body createSubscriptionRequest true "Subscription details"
// @Success 201 {object} models.Subscription
// @Failure 400 {object} errors.APIError
// @Failure 502 {object} errors.APIError
// @Router /subscriptions [post]
// @Security BearerAuth
func (h *SubscriptionHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	user, ok := requireUser(w, r, requestID)
	if !ok {
		return
	}

	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	subscription, err := h.hubservice.CreateSubscription(r.Context(), user.ID, req.ServiceID, req.MonitoredAttributeIDs, req.IncludeHistory)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			respondWithError(w, apiErr.WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to create subscription", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, subscription)
}

// @Summary Delete a subscription
// @Description Cancel a subscription; the external service is notified best-effort
// @Tags subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /subscriptions/{id} [delete]
// @Security BearerAuth
func (h *SubscriptionHandlers) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	user, ok := requireUser(w, r, requestID)
	if !ok {
		return
	}

	if err := h.hubservice.DeleteSubscription(r.Context(), user.ID, id); err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("subscription not found", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to delete subscription", err).WithRequestID(requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
