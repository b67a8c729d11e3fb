// Package remote implements the outbound sync client: the three
// authenticated calls (register, unregister, push data) against a
// subscribed report service's endpoints.
package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/aptsense/hub/internal/models"
	"github.com/go-resty/resty/v2"
	nuts "github.com/vaudience/go-nuts"
)

// AttributePayload is the wire shape of one shared attribute in a
// register call. ID is the monitored attribute id the service must echo
// back when addressing data.
type AttributePayload struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// ValuePayload is the wire shape of one reading in a push-data call.
type ValuePayload struct {
	Attribute string    `json:"attribute"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type registerBody struct {
	UUID       string             `json:"uuid"`
	Attributes []AttributePayload `json:"attributes"`
	AuthToken  string             `json:"auth_token"`
}

type unregisterBody struct {
	UUID      string `json:"uuid"`
	AuthToken string `json:"auth_token"`
}

type pushBody struct {
	UUID      string         `json:"uuid"`
	Values    []ValuePayload `json:"values"`
	AuthToken string         `json:"auth_token"`
}

// Client performs the outbound HTTP calls. The underlying http.Client
// is injectable so tests can intercept traffic without a network.
type Client struct {
	http *resty.Client
}

type Config struct {
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().SetTimeout(timeout),
	}
}

// NewClientWithHTTPClient wraps a caller-supplied http.Client; used by
// tests to substitute transports.
func NewClientWithHTTPClient(hc *http.Client) *Client {
	return &Client{http: resty.NewWithClient(hc)}
}

// Register announces the subscription to the service's subscribe
// endpoint. On success it returns the timestamp to stamp as the
// subscription's registered time.
func (c *Client) Register(ctx context.Context, service *models.Service, subscription *models.Subscription, attributes []AttributePayload) (time.Time, error) {
	body := registerBody{
		UUID:       subscription.UUID,
		Attributes: attributes,
		AuthToken:  service.AuthToken,
	}
	if err := c.post(ctx, "register", service.SubscribeURL, body); err != nil {
		return time.Time{}, err
	}
	nuts.L.Infof("[SyncClient] Registered subscription %s with service %s", subscription.UUID, service.Name)
	return time.Now(), nil
}

// Unregister announces the end of the subscription to the service's
// unsubscribe endpoint.
func (c *Client) Unregister(ctx context.Context, service *models.Service, subscription *models.Subscription) error {
	body := unregisterBody{
		UUID:      subscription.UUID,
		AuthToken: service.AuthToken,
	}
	return c.post(ctx, "unregister", service.UnsubscribeURL, body)
}

// PushValues submits exactly the given readings to the service's data
// endpoint. The caller controls the subset; nothing is recomputed here.
func (c *Client) PushValues(ctx context.Context, service *models.Service, subscription *models.Subscription, values []ValuePayload) error {
	body := pushBody{
		UUID:      subscription.UUID,
		Values:    values,
		AuthToken: service.AuthToken,
	}
	return c.post(ctx, "push", service.DataURL, body)
}

func (c *Client) post(ctx context.Context, op, url string, body interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return &SyncError{Kind: Unreachable, Op: op, URL: url, err: err}
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return &SyncError{Kind: RemoteRejected, Op: op, URL: url, Status: resp.StatusCode()}
	}
	return nil
}
