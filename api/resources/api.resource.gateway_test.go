package resources_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aptsense/hub/api/resources"
	"github.com/aptsense/hub/internal/codec"
	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSyncClient struct {
	mu     sync.Mutex
	pushed [][]remote.ValuePayload
}

func (s *stubSyncClient) Register(_ context.Context, _ *models.Service, _ *models.Subscription, _ []remote.AttributePayload) (time.Time, error) {
	return time.Now(), nil
}

func (s *stubSyncClient) Unregister(_ context.Context, _ *models.Service, _ *models.Subscription) error {
	return nil
}

func (s *stubSyncClient) PushValues(_ context.Context, _ *models.Service, _ *models.Subscription, values []remote.ValuePayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, values)
	return nil
}

func newGatewayFixture(store *memory.Store, sync *stubSyncClient) *resources.Resources {
	svc := hubservice.New(
		store.Apartments(), store.Devices(), store.Attributes(), store.Monitored(),
		store.Values(), store.Services(), store.Subscriptions(),
		sync, nil,
		map[string]string{"temperature": "http://urn.fi/URN:NBN:fi:au:ucum:r73"},
	)
	dispatcher := dispatch.New(store.Subscriptions(), store.Services(), sync, nil, 2)
	return resources.NewResources(svc, codec.NewElsysDecoder(), dispatcher)
}

func postUplink(t *testing.T, res *resources.Resources, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gateway/digita", strings.NewReader(body))
	rec := httptest.NewRecorder()
	res.Gateway.ReceiveDigitaUplink(rec, req)

	var reply map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	return rec, reply
}

// TestReceiveDigitaUplink_StoresValues verifies a well-formed callback
// produces a stored value and a success message.
func TestReceiveDigitaUplink_StoresValues(t *testing.T) {
	store := memory.NewStore()
	res := newGatewayFixture(store, &stubSyncClient{})

	// 0x01 0x00 0xE1 decodes to temperature 22.5
	rec, reply := postUplink(t, res, `{"DevEUI_uplink":{"DevEUI":"X1","payload_hex":"0100E1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Updated successfully", reply["message"])

	ctx := context.Background()
	device, err := store.Devices().GetOrCreateByIdentifier(ctx, "X1")
	require.NoError(t, err)
	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, monitored, 1)
	latest, err := store.Values().Latest(ctx, monitored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 22.5, latest.Value)
}

// TestReceiveDigitaUplink_FansOutToSubscriptions verifies a stored
// uplink is delivered to a subscription covering its attribute.
func TestReceiveDigitaUplink_FansOutToSubscriptions(t *testing.T) {
	store := memory.NewStore()
	sync := &stubSyncClient{}
	res := newGatewayFixture(store, sync)
	ctx := context.Background()

	// First uplink materializes the monitored attribute.
	_, reply := postUplink(t, res, `{"DevEUI_uplink":{"DevEUI":"X1","payload_hex":"0100E1"}}`)
	require.Equal(t, "Updated successfully", reply["message"])
	require.Empty(t, sync.pushed)

	device, err := store.Devices().GetOrCreateByIdentifier(ctx, "X1")
	require.NoError(t, err)
	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, monitored, 1)

	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))
	require.NoError(t, store.Subscriptions().Create(ctx, &models.Subscription{
		UserID:                "user_1",
		ServiceID:             service.ID,
		UUID:                  "sub-uuid",
		MonitoredAttributeIDs: []string{monitored[0].ID},
	}))

	// 0x01 0x00 0xE7 decodes to temperature 23.1
	_, reply = postUplink(t, res, `{"DevEUI_uplink":{"DevEUI":"X1","payload_hex":"0100E7"}}`)
	require.Equal(t, "Updated successfully", reply["message"])

	require.Len(t, sync.pushed, 1)
	require.Len(t, sync.pushed[0], 1)
	assert.Equal(t, monitored[0].ID, sync.pushed[0][0].Attribute)
	assert.Equal(t, 23.1, sync.pushed[0][0].Value)
}

// TestReceiveDigitaUplink_IgnoresUnusableCallbacks verifies the
// endpoint acknowledges callbacks it cannot use instead of erroring,
// so the network does not retry them.
func TestReceiveDigitaUplink_IgnoresUnusableCallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not json at all`},
		{name: "missing envelope", body: `{"something":"else"}`},
		{name: "missing DevEUI", body: `{"DevEUI_uplink":{"payload_hex":"0100E1"}}`},
		{name: "missing payload", body: `{"DevEUI_uplink":{"DevEUI":"X1"}}`},
		{name: "invalid hex", body: `{"DevEUI_uplink":{"DevEUI":"X1","payload_hex":"zz"}}`},
		{name: "undecodable payload", body: `{"DevEUI_uplink":{"DevEUI":"X1","payload_hex":"FF01"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			res := newGatewayFixture(store, &stubSyncClient{})

			rec, reply := postUplink(t, res, tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Message ignored", reply["message"])

			// Nothing may have been created from an ignored callback.
			ctx := context.Background()
			devices, err := store.Devices().ListForUser(ctx, "anyone")
			require.NoError(t, err)
			assert.Empty(t, devices)
		})
	}
}
