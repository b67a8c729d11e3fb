// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/aptsense/hub/internal/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List apartment sensors
// @Description Get the caller's devices with the latest reading per monitored attribute
// @Tags devices
// @Produce json
// @Param apartment_id query string false "Filter by apartment"
// @Param unassigned query bool false "Only devices without an apartment"
// @Success 200 {array} models.DeviceStatus
// @Failure 401 {object} errors.APIError
// @Router /apartment-sensors [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListApartmentSensors(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	user, ok := requireUser(w, r, requestID)
	if !ok {
		return
	}

	var filters models.DeviceFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	statuses, err := h.hubservice.ListDeviceStatuses(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list apartment sensors", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, filterDeviceStatuses(statuses, filters))
}

// @Summary Update a device binding
// @Description Update a device binding's apartment or sensor model link
// @Tags devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param device body models.DeviceBinding true "Updated device details"
// @Success 200 {object} models.DeviceBinding
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [put]
// @Security BearerAuth
func (h *DeviceHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	var device models.DeviceBinding
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device.ID = id
	if err := h.hubservice.UpdateDeviceBinding(r.Context(), &device); err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			respondWithError(w, apiErr.WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to update device", err).WithRequestID(requestID))
		return
	}

	updated, err := h.hubservice.Devices.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to get updated device", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

// @Summary Delete a device binding
// @Description Delete a device binding with its monitored attributes and value history
// @Tags devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 204 "No Content"
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [delete]
// @Security BearerAuth
func (h *DeviceHandlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	if err := h.hubservice.DeleteDevice(r.Context(), id); err != nil {
		if errors.IsNotFound(err) {
			respondWithError(w, errors.NewNotFoundError("device not found", err).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to delete device", err).WithRequestID(requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func filterDeviceStatuses(statuses []*models.DeviceStatus, filters models.DeviceFilters) []*models.DeviceStatus {
	if filters.ApartmentID == "" && !filters.Unassigned {
		return statuses
	}
	filtered := make([]*models.DeviceStatus, 0, len(statuses))
	for _, status := range statuses {
		if filters.Unassigned && status.Device.ApartmentID != nil {
			continue
		}
		if filters.ApartmentID != "" {
			if status.Device.ApartmentID == nil || *status.Device.ApartmentID != filters.ApartmentID {
				continue
			}
		}
		filtered = append(filtered, status)
	}
	return filtered
}
