// FilePath: api/resources/api.resource.gateway.go
package resources

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/aptsense/hub/internal/codec"
	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// GatewayHandlers encapsulates the LoRaWAN gateway ingestion handlers
type GatewayHandlers struct {
	hubservice *hubservice.HubService
	decoder    codec.Decoder
	dispatcher *dispatch.Dispatcher
}

// digitaUplink is the fragment of the Digita ThingPark callback we
// consume. Everything else in the callback body is ignored.
type digitaUplink struct {
	DevEUIUplink *struct {
		DevEUI     string `json:"DevEUI"`
		PayloadHex string `json:"payload_hex"`
	} `json:"DevEUI_uplink"`
}

// @Summary Ingest a Digita uplink
// @Description Receive a sensor uplink callback from the Digita LoRaWAN network
// @Tags gateway
// @Accept json
// @Produce json
// @Param uplink body object true "ThingPark uplink callback"
// @Success 200 {object} map[string]string
// @Router /gateway/digita [post]
func (h *GatewayHandlers) ReceiveDigitaUplink(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var uplink digitaUplink
	if err := json.NewDecoder(r.Body).Decode(&uplink); err != nil {
		h.ignore(w, requestID, "unparseable body", err)
		return
	}
	if uplink.DevEUIUplink == nil || uplink.DevEUIUplink.DevEUI == "" || uplink.DevEUIUplink.PayloadHex == "" {
		h.ignore(w, requestID, "missing DevEUI_uplink fields", nil)
		return
	}

	raw, err := hex.DecodeString(uplink.DevEUIUplink.PayloadHex)
	if err != nil {
		h.ignore(w, requestID, "invalid payload hex", err)
		return
	}

	decoded, err := h.decoder.Decode(raw)
	if err != nil {
		h.ignore(w, requestID, "undecodable payload", err)
		return
	}

	newValues, err := h.hubservice.Ingest(r.Context(), uplink.DevEUIUplink.DevEUI, decoded)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to store sensor values", err).WithRequestID(requestID))
		return
	}

	// Fan-out failures are per-subscription and already reported; they
	// never fail the uplink.
	if err := h.dispatcher.HandleNewValues(r.Context(), newValues); err != nil {
		nuts.L.Errorf("[GatewayHandler] Dispatch failed for device %s: %v", uplink.DevEUIUplink.DevEUI, err)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Updated successfully"})
}

// ignore acknowledges an uplink we cannot use. The network gateway
// retries on non-2xx, so unusable callbacks are answered 200.
func (h *GatewayHandlers) ignore(w http.ResponseWriter, requestID, reason string, err error) {
	nuts.L.Warnf("[GatewayHandler] Ignoring uplink (%s): %v (request %s)", reason, err, requestID)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Message ignored"})
}
