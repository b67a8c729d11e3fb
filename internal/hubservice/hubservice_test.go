package hubservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apierrors "github.com/aptsense/hub/internal/errors"
	"github.com/aptsense/hub/internal/hubservice"
	"github.com/aptsense/hub/internal/models"
	"github.com/aptsense/hub/internal/remote"
	"github.com/aptsense/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSyncClient records outbound calls and fails on demand.
type fakeSyncClient struct {
	registerErr   error
	unregisterErr error
	pushErr       error

	registeredAttrs [][]remote.AttributePayload
	unregistered    []string
	pushed          [][]remote.ValuePayload
}

func (f *fakeSyncClient) Register(_ context.Context, _ *models.Service, _ *models.Subscription, attributes []remote.AttributePayload) (time.Time, error) {
	if f.registerErr != nil {
		return time.Time{}, f.registerErr
	}
	f.registeredAttrs = append(f.registeredAttrs, attributes)
	return time.Now(), nil
}

func (f *fakeSyncClient) Unregister(_ context.Context, _ *models.Service, subscription *models.Subscription) error {
	f.unregistered = append(f.unregistered, subscription.UUID)
	return f.unregisterErr
}

func (f *fakeSyncClient) PushValues(_ context.Context, _ *models.Service, _ *models.Subscription, values []remote.ValuePayload) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, values)
	return nil
}

var attributeURIs = map[string]string{
	"temperature": "http://urn.fi/URN:NBN:fi:au:ucum:r73",
	"humidity":    "http://urn.fi/URN:NBN:fi:au:ucum:r74",
	"co2":         "http://urn.fi/URN:NBN:fi:au:ucum:r94",
}

func newTestService(store *memory.Store, sync *fakeSyncClient) *hubservice.HubService {
	return hubservice.New(
		store.Apartments(),
		store.Devices(),
		store.Attributes(),
		store.Monitored(),
		store.Values(),
		store.Services(),
		store.Subscriptions(),
		sync,
		nil,
		attributeURIs,
	)
}

// seedApartmentDevice creates a user apartment with an assigned device
// that already monitors temperature, and returns the monitored
// attribute.
func seedApartmentDevice(t *testing.T, store *memory.Store, svc *hubservice.HubService, userID, identifier string) *models.MonitoredAttribute {
	t.Helper()
	ctx := context.Background()

	apartment := &models.Apartment{UserID: userID, Street: "Mannerheimintie 1", City: "Helsinki"}
	require.NoError(t, store.Apartments().Create(ctx, apartment))

	_, err := svc.Ingest(ctx, identifier, map[string]float64{"temperature": 22.5})
	require.NoError(t, err)

	device, err := store.Devices().GetOrCreateByIdentifier(ctx, identifier)
	require.NoError(t, err)
	device.ApartmentID = &apartment.ID
	require.NoError(t, store.Devices().Update(ctx, device))

	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, monitored, 1)
	return monitored[0]
}

// TestIngest_CreatesIdentitiesOnFirstSight verifies that an unseen
// device identifier and payload key materialize as a device binding, a
// URI-keyed attribute, a monitored attribute and one value.
func TestIngest_CreatesIdentitiesOnFirstSight(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, &fakeSyncClient{})
	ctx := context.Background()

	newValues, err := svc.Ingest(ctx, "X1", map[string]float64{"temperature": 22.5})
	require.NoError(t, err)
	require.Len(t, newValues, 1)
	assert.Equal(t, 22.5, newValues[0].Value)

	device, err := store.Devices().GetOrCreateByIdentifier(ctx, "X1")
	require.NoError(t, err)
	assert.Nil(t, device.ApartmentID)

	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, monitored, 1)

	attr, err := store.Attributes().Get(ctx, monitored[0].AttributeID)
	require.NoError(t, err)
	assert.Equal(t, attributeURIs["temperature"], attr.URI)

	latest, err := store.Values().Latest(ctx, monitored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 22.5, latest.Value)
}

// TestIngest_ReusesIdentities verifies a second payload from the same
// device appends values without duplicating device, attribute or
// monitored attribute rows.
func TestIngest_ReusesIdentities(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, &fakeSyncClient{})
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "X1", map[string]float64{"temperature": 22.5})
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, "X1", map[string]float64{"temperature": 23.1})
	require.NoError(t, err)

	assert.Equal(t, first[0].MonitoredAttributeID, second[0].MonitoredAttributeID)

	device, err := store.Devices().GetOrCreateByIdentifier(ctx, "X1")
	require.NoError(t, err)
	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Len(t, monitored, 1)

	values, err := store.Values().ListByMonitoredAttributes(ctx, []string{monitored[0].ID})
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

// TestIngest_UnmappedKeyFallsBackToDescription verifies payload keys
// without a URI mapping produce description-keyed attributes.
func TestIngest_UnmappedKeyFallsBackToDescription(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, &fakeSyncClient{})
	ctx := context.Background()

	newValues, err := svc.Ingest(ctx, "X1", map[string]float64{"battery": 3650})
	require.NoError(t, err)
	require.Len(t, newValues, 1)

	ma, err := store.Monitored().Get(ctx, newValues[0].MonitoredAttributeID)
	require.NoError(t, err)
	attr, err := store.Attributes().Get(ctx, ma.AttributeID)
	require.NoError(t, err)
	assert.Empty(t, attr.URI)
	assert.Equal(t, "battery", attr.Description)
}

// TestCreateSubscription_Success verifies the happy path: the remote
// register call carries the monitored attribute ids and the
// subscription comes back active.
func TestCreateSubscription_Success(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	service := &models.Service{Name: "Energy Reports", RequiredAttributeIDs: []string{ma.AttributeID}}
	require.NoError(t, store.Services().Create(ctx, service))

	subscription, err := svc.CreateSubscription(ctx, "user_1", service.ID, []string{ma.ID}, false)
	require.NoError(t, err)
	require.NotNil(t, subscription.Registered)
	assert.NotEmpty(t, subscription.UUID)

	require.Len(t, sync.registeredAttrs, 1)
	require.Len(t, sync.registeredAttrs[0], 1)
	assert.Equal(t, ma.ID, sync.registeredAttrs[0][0].ID)
	assert.Equal(t, attributeURIs["temperature"], sync.registeredAttrs[0][0].URI)
	assert.Empty(t, sync.pushed)
}

// TestCreateSubscription_RegisterFailureRollsBack verifies a failed
// remote registration leaves no subscription behind and surfaces as an
// upstream error.
func TestCreateSubscription_RegisterFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{registerErr: errors.New("boom")}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))

	_, err := svc.CreateSubscription(ctx, "user_1", service.ID, []string{ma.ID}, false)
	require.Error(t, err)
	assert.True(t, apierrors.IsUpstream(err))

	subscriptions, err := store.Subscriptions().ListByUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Empty(t, subscriptions)
}

// TestCreateSubscription_EmptyAttributes verifies an empty attribute
// set is rejected before anything is persisted or called.
func TestCreateSubscription_EmptyAttributes(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{}
	svc := newTestService(store, sync)

	_, err := svc.CreateSubscription(context.Background(), "user_1", "svc_x", nil, false)
	require.Error(t, err)
	assert.True(t, apierrors.IsValidation(err))
	assert.Empty(t, sync.registeredAttrs)
}

// TestCreateSubscription_ForeignAttributeRejected verifies a user
// cannot subscribe attributes monitored in someone else's apartment.
func TestCreateSubscription_ForeignAttributeRejected(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))

	_, err := svc.CreateSubscription(ctx, "intruder", service.ID, []string{ma.ID}, false)
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.Empty(t, sync.registeredAttrs)
}

// TestCreateSubscription_IncludeHistory verifies already collected
// values of exactly the subscribed attributes are replayed after
// activation.
func TestCreateSubscription_IncludeHistory(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	// Unrelated reading that must not be replayed.
	_, err := svc.Ingest(ctx, "X1", map[string]float64{"co2": 980})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "X1", map[string]float64{"temperature": 23.1})
	require.NoError(t, err)

	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))

	_, err = svc.CreateSubscription(ctx, "user_1", service.ID, []string{ma.ID}, true)
	require.NoError(t, err)

	require.Len(t, sync.pushed, 1)
	require.Len(t, sync.pushed[0], 2)
	for _, v := range sync.pushed[0] {
		assert.Equal(t, ma.ID, v.Attribute)
	}
}

// TestDeleteSubscription_LocalDeleteUnconditional verifies the local
// record goes away even when the remote unregister call fails.
func TestDeleteSubscription_LocalDeleteUnconditional(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{unregisterErr: errors.New("service down")}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))
	subscription, err := svc.CreateSubscription(ctx, "user_1", service.ID, []string{ma.ID}, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSubscription(ctx, "user_1", subscription.ID))

	assert.Equal(t, []string{subscription.UUID}, sync.unregistered)
	_, err = store.Subscriptions().Get(ctx, subscription.ID)
	assert.True(t, apierrors.IsNotFound(err))
}

// TestDeleteSubscription_OwnershipEnforced verifies another user's
// subscription id reads as not found.
func TestDeleteSubscription_OwnershipEnforced(t *testing.T) {
	store := memory.NewStore()
	sync := &fakeSyncClient{}
	svc := newTestService(store, sync)
	ctx := context.Background()

	ma := seedApartmentDevice(t, store, svc, "user_1", "X1")
	service := &models.Service{Name: "Energy Reports"}
	require.NoError(t, store.Services().Create(ctx, service))
	subscription, err := svc.CreateSubscription(ctx, "user_1", service.ID, []string{ma.ID}, false)
	require.NoError(t, err)

	err = svc.DeleteSubscription(ctx, "intruder", subscription.ID)
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.Empty(t, sync.unregistered)

	_, err = store.Subscriptions().Get(ctx, subscription.ID)
	assert.NoError(t, err)
}

// TestListDeviceStatuses verifies the home view shape: the user's
// devices with the latest reading per monitored attribute.
func TestListDeviceStatuses(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, &fakeSyncClient{})
	ctx := context.Background()

	seedApartmentDevice(t, store, svc, "user_1", "X1")
	_, err := svc.Ingest(ctx, "X1", map[string]float64{"temperature": 23.1})
	require.NoError(t, err)

	statuses, err := svc.ListDeviceStatuses(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.Len(t, statuses[0].Attributes, 1)

	attr := statuses[0].Attributes[0]
	assert.Equal(t, attributeURIs["temperature"], attr.URI)
	require.NotNil(t, attr.Value)
	assert.Equal(t, 23.1, *attr.Value)
}

// TestDeleteDevice_CascadesHistory verifies device deletion removes
// monitored attributes and their value history.
func TestDeleteDevice_CascadesHistory(t *testing.T) {
	store := memory.NewStore()
	svc := newTestService(store, &fakeSyncClient{})
	ctx := context.Background()

	seedApartmentDevice(t, store, svc, "user_1", "X1")
	device, err := store.Devices().GetOrCreateByIdentifier(ctx, "X1")
	require.NoError(t, err)
	monitored, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, monitored, 1)

	require.NoError(t, svc.DeleteDevice(ctx, device.ID))

	_, err = store.Devices().Get(ctx, device.ID)
	assert.True(t, apierrors.IsNotFound(err))
	remaining, err := store.Monitored().ListByDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	values, err := store.Values().ListByMonitoredAttributes(ctx, []string{monitored[0].ID})
	require.NoError(t, err)
	assert.Empty(t, values)
}
