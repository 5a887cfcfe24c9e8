package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "photo_db.json")

	h, err := Acquire(dbPath)
	require.NoError(t, err)
	_, statErr := os.Stat(dbPath + ".lock")
	assert.NoError(t, statErr)

	require.NoError(t, h.Release())
	_, statErr = os.Stat(dbPath + ".lock")
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquire_FailsWhenAlreadyLocked(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "photo_db.json")

	h, err := Acquire(dbPath)
	require.NoError(t, err)
	defer h.Release()

	_, err = Acquire(dbPath)
	assert.Error(t, err)
}

func TestRelease_NilHandleIsNoop(t *testing.T) {
	var h *Handle
	assert.NoError(t, h.Release())
}
