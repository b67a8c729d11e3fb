package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aptsense/hub/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetOrCreateByIdentifier_ConcurrentCallsResolveToOneRow verifies
// the race-safety contract of get-or-create: concurrent calls for the
// same unseen identifier converge on a single device binding.
func TestGetOrCreateByIdentifier_ConcurrentCallsResolveToOneRow(t *testing.T) {
	store := memory.NewStore()
	devices := store.Devices()
	ctx := context.Background()

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d, err := devices.GetOrCreateByIdentifier(ctx, "X1")
			if assert.NoError(t, err) {
				ids[n] = d.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

// TestGetOrCreateAttribute_KeyedSeparately verifies URI-keyed and
// description-keyed attributes do not collide.
func TestGetOrCreateAttribute_KeyedSeparately(t *testing.T) {
	store := memory.NewStore()
	attrs := store.Attributes()
	ctx := context.Background()

	byURI, err := attrs.GetOrCreateByURI(ctx, "http://urn.fi/URN:NBN:fi:au:ucum:r73", "temperature")
	require.NoError(t, err)
	again, err := attrs.GetOrCreateByURI(ctx, "http://urn.fi/URN:NBN:fi:au:ucum:r73", "temperature")
	require.NoError(t, err)
	assert.Equal(t, byURI.ID, again.ID)

	byDesc, err := attrs.GetOrCreateByDescription(ctx, "temperature")
	require.NoError(t, err)
	assert.NotEqual(t, byURI.ID, byDesc.ID)
	assert.Empty(t, byDesc.URI)
}
