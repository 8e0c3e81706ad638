package localstate_test

import (
	"path/filepath"
	"testing"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/localstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *localstate.Store {
	t.Helper()
	store, err := localstate.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokens_RoundTrip(t *testing.T) {
	store := openStore(t)

	access, err := store.AccessToken()
	require.NoError(t, err)
	assert.Empty(t, access)

	require.NoError(t, store.SetTokens("acc", "ref"))

	access, _ = store.AccessToken()
	refresh, _ := store.RefreshToken()
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)

	require.NoError(t, store.SetAccessToken("acc-2"))
	access, _ = store.AccessToken()
	refresh, _ = store.RefreshToken()
	assert.Equal(t, "acc-2", access)
	assert.Equal(t, "ref", refresh)
}

func TestSessionID_StableUntilClear(t *testing.T) {
	store := openStore(t)

	first, err := store.SessionID()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.SessionID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, store.Clear())
	third, err := store.SessionID()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestPurchaseCompletedFlag(t *testing.T) {
	store := openStore(t)

	done, err := store.PurchaseCompleted()
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.SetPurchaseCompleted(true))
	done, _ = store.PurchaseCompleted()
	assert.True(t, done)

	require.NoError(t, store.SetPurchaseCompleted(false))
	done, _ = store.PurchaseCompleted()
	assert.False(t, done)
}

func TestClear_WipesEverything(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.SetTokens("acc", "ref"))
	require.NoError(t, store.SetPurchaseCompleted(true))

	require.NoError(t, store.Clear())

	access, _ := store.AccessToken()
	refresh, _ := store.RefreshToken()
	done, _ := store.PurchaseCompleted()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.False(t, done)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := localstate.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("acc", "ref"))
	require.NoError(t, store.Close())

	reopened, err := localstate.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	access, _ := reopened.AccessToken()
	assert.Equal(t, "acc", access)
}
