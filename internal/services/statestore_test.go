package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

func newTestStateStore(t *testing.T) interfaces.StateStore {
	t.Helper()

	store, err := NewStateStore(&common.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "data", "state.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStateStoreDismissedVersion(t *testing.T) {
	store := newTestStateStore(t)

	version, err := store.DismissedVersion()
	require.NoError(t, err)
	assert.Empty(t, version)

	require.NoError(t, store.SetDismissedVersion("1.4.0"))

	version, err = store.DismissedVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", version)
}

func TestStateStoreLastWindow(t *testing.T) {
	store := newTestStateStore(t)

	start, end, err := store.LastWindow()
	require.NoError(t, err)
	assert.Empty(t, start)
	assert.Empty(t, end)

	require.NoError(t, store.SetLastWindow("2025-09-01", "2025-09-05"))

	start, end, err = store.LastWindow()
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01", start)
	assert.Equal(t, "2025-09-05", end)
}
