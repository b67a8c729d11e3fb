package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	body map[string]interface{}
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func testService(baseURL string) *models.Service {
	return &models.Service{
		ID:             "svc_test",
		Name:           "Energy Reports",
		SubscribeURL:   baseURL + "/subscribe",
		UnsubscribeURL: baseURL + "/unsubscribe",
		DataURL:        baseURL + "/data",
		AuthToken:      "secret-token",
	}
}

// TestRegister_Payload verifies the exact wire shape of a register
// call: the subscription uuid, the shared attributes and the service's
// auth token.
func TestRegister_Payload(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	client := remote.NewClientWithHTTPClient(srv.Client())
	service := testService(srv.URL)
	subscription := &models.Subscription{UUID: "11111111-2222-3333-4444-555555555555"}

	registered, err := client.Register(context.Background(), service, subscription, []remote.AttributePayload{
		{ID: "mattr_1", URI: "http://urn.fi/URN:NBN:fi:au:ucum:r73", Description: "temperature"},
	})
	require.NoError(t, err)
	assert.False(t, registered.IsZero())

	assert.Equal(t, "/subscribe", captured.path)
	assert.Equal(t, subscription.UUID, captured.body["uuid"])
	assert.Equal(t, "secret-token", captured.body["auth_token"])

	attrs, ok := captured.body["attributes"].([]interface{})
	require.True(t, ok)
	require.Len(t, attrs, 1)
	attr := attrs[0].(map[string]interface{})
	assert.Equal(t, "mattr_1", attr["id"])
	assert.Equal(t, "http://urn.fi/URN:NBN:fi:au:ucum:r73", attr["uri"])
	assert.Equal(t, "temperature", attr["description"])
}

// TestUnregister_Payload verifies the unregister wire shape.
func TestUnregister_Payload(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	client := remote.NewClientWithHTTPClient(srv.Client())
	service := testService(srv.URL)
	subscription := &models.Subscription{UUID: "sub-uuid"}

	err := client.Unregister(context.Background(), service, subscription)
	require.NoError(t, err)

	assert.Equal(t, "/unsubscribe", captured.path)
	assert.Equal(t, map[string]interface{}{
		"uuid":       "sub-uuid",
		"auth_token": "secret-token",
	}, captured.body)
}

// TestPushValues_Payload verifies that exactly the given values reach
// the data endpoint, addressed by monitored attribute id.
func TestPushValues_Payload(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	client := remote.NewClientWithHTTPClient(srv.Client())
	service := testService(srv.URL)
	subscription := &models.Subscription{UUID: "sub-uuid"}

	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	err := client.PushValues(context.Background(), service, subscription, []remote.ValuePayload{
		{Attribute: "mattr_1", Value: 22.5, Timestamp: ts},
	})
	require.NoError(t, err)

	assert.Equal(t, "/data", captured.path)
	assert.Equal(t, "sub-uuid", captured.body["uuid"])
	values, ok := captured.body["values"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 1)
	value := values[0].(map[string]interface{})
	assert.Equal(t, "mattr_1", value["attribute"])
	assert.Equal(t, 22.5, value["value"])
	assert.Equal(t, ts.Format(time.RFC3339), value["timestamp"])
}

// TestPost_ErrorClassification verifies that rejections and transport
// failures get distinct error kinds.
func TestPost_ErrorClassification(t *testing.T) {
	t.Run("remote rejection", func(t *testing.T) {
		srv, _ := newCaptureServer(t, http.StatusUnauthorized)
		client := remote.NewClientWithHTTPClient(srv.Client())

		err := client.Unregister(context.Background(), testService(srv.URL), &models.Subscription{UUID: "u"})
		require.Error(t, err)
		syncErr, ok := remote.IsSyncError(err)
		require.True(t, ok)
		assert.Equal(t, remote.RemoteRejected, syncErr.Kind)
		assert.Equal(t, http.StatusUnauthorized, syncErr.Status)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv, _ := newCaptureServer(t, http.StatusOK)
		client := remote.NewClientWithHTTPClient(srv.Client())
		service := testService(srv.URL)
		srv.Close()

		err := client.Unregister(context.Background(), service, &models.Subscription{UUID: "u"})
		require.Error(t, err)
		syncErr, ok := remote.IsSyncError(err)
		require.True(t, ok)
		assert.Equal(t, remote.Unreachable, syncErr.Kind)
	})
}
