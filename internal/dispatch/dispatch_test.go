package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aptsense/hub/internal/dispatch"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSyncer collects every push per subscription uuid and can be
// told to fail specific subscriptions.
type recordingSyncer struct {
	mu     sync.Mutex
	pushes map[string][][]remote.ValuePayload
	fail   map[string]error
}

func newRecordingSyncer() *recordingSyncer {
	return &recordingSyncer{
		pushes: make(map[string][][]remote.ValuePayload),
		fail:   make(map[string]error),
	}
}

func (r *recordingSyncer) PushValues(_ context.Context, _ *models.Service, subscription *models.Subscription, values []remote.ValuePayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[subscription.UUID]; err != nil {
		return err
	}
	r.pushes[subscription.UUID] = append(r.pushes[subscription.UUID], values)
	return nil
}

func (r *recordingSyncer) pushesFor(uuid string) [][]remote.ValuePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes[uuid]
}

// collectingReporter records reported delivery failures.
type collectingReporter struct {
	mu       sync.Mutex
	failures []string
}

func (c *collectingReporter) Report(_ context.Context, subscription *models.Subscription, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, subscription.UUID)
}

func seedSubscription(t *testing.T, store *memory.Store, uuid string, maIDs []string) *models.Subscription {
	t.Helper()
	service := &models.Service{Name: "svc-" + uuid}
	require.NoError(t, store.Services().Create(context.Background(), service))
	subscription := &models.Subscription{
		UserID:                "user_1",
		ServiceID:             service.ID,
		UUID:                  uuid,
		MonitoredAttributeIDs: maIDs,
	}
	require.NoError(t, store.Subscriptions().Create(context.Background(), subscription))
	return subscription
}

func valuesFor(maIDs ...string) []*models.Value {
	now := time.Now()
	values := make([]*models.Value, 0, len(maIDs))
	for i, id := range maIDs {
		values = append(values, &models.Value{
			ID:                   "val_" + id,
			MonitoredAttributeID: id,
			Value:                float64(20 + i),
			CreatedAt:            now,
		})
	}
	return values
}

// TestHandleNewValues_SubsetPerSubscription verifies each subscription
// receives exactly the values of its own attribute set, once.
func TestHandleNewValues_SubsetPerSubscription(t *testing.T) {
	store := memory.NewStore()
	syncer := newRecordingSyncer()
	seedSubscription(t, store, "sub-temp", []string{"ma_temp"})
	seedSubscription(t, store, "sub-both", []string{"ma_temp", "ma_co2"})

	d := dispatch.New(store.Subscriptions(), store.Services(), syncer, nil, 4)
	err := d.HandleNewValues(context.Background(), valuesFor("ma_temp", "ma_co2", "ma_humidity"))
	require.NoError(t, err)

	tempPushes := syncer.pushesFor("sub-temp")
	require.Len(t, tempPushes, 1)
	require.Len(t, tempPushes[0], 1)
	assert.Equal(t, "ma_temp", tempPushes[0][0].Attribute)

	bothPushes := syncer.pushesFor("sub-both")
	require.Len(t, bothPushes, 1)
	require.Len(t, bothPushes[0], 2)
	attrs := []string{bothPushes[0][0].Attribute, bothPushes[0][1].Attribute}
	assert.ElementsMatch(t, []string{"ma_temp", "ma_co2"}, attrs)
}

// TestHandleNewValues_NoMatchingSubscription verifies that values
// without a covering subscription produce no deliveries.
func TestHandleNewValues_NoMatchingSubscription(t *testing.T) {
	store := memory.NewStore()
	syncer := newRecordingSyncer()
	seedSubscription(t, store, "sub-temp", []string{"ma_temp"})

	d := dispatch.New(store.Subscriptions(), store.Services(), syncer, nil, 2)
	err := d.HandleNewValues(context.Background(), valuesFor("ma_other"))
	require.NoError(t, err)
	assert.Empty(t, syncer.pushesFor("sub-temp"))
}

// TestHandleNewValues_FailureIsolation verifies that one failing
// delivery neither aborts the others nor surfaces as an error; it is
// reported instead.
func TestHandleNewValues_FailureIsolation(t *testing.T) {
	store := memory.NewStore()
	syncer := newRecordingSyncer()
	reporter := &collectingReporter{}
	seedSubscription(t, store, "sub-a", []string{"ma_temp"})
	seedSubscription(t, store, "sub-b", []string{"ma_temp"})
	syncer.fail["sub-a"] = errors.New("service down")

	d := dispatch.New(store.Subscriptions(), store.Services(), syncer, reporter, 4)
	err := d.HandleNewValues(context.Background(), valuesFor("ma_temp"))
	require.NoError(t, err)

	assert.Empty(t, syncer.pushesFor("sub-a"))
	assert.Len(t, syncer.pushesFor("sub-b"), 1)
	assert.Equal(t, []string{"sub-a"}, reporter.failures)
}

// TestHandleNewValues_EmptyBatch verifies an empty batch is a no-op.
func TestHandleNewValues_EmptyBatch(t *testing.T) {
	store := memory.NewStore()
	syncer := newRecordingSyncer()

	d := dispatch.New(store.Subscriptions(), store.Services(), syncer, nil, 2)
	require.NoError(t, d.HandleNewValues(context.Background(), nil))
	assert.Empty(t, syncer.pushes)
}
