package targets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTarget_StoreListDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target, err := NewLocalTarget(map[string]any{"path": dir})
	require.NoError(t, err)
	require.NoError(t, target.Validate())

	source := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, os.WriteFile(source, []byte("herd data"), 0o644))

	metadata := &backup.Metadata{
		ID:        "sqlite-abc123",
		Timestamp: time.Now(),
		Source:    "sqlite",
	}
	require.NoError(t, target.Store(context.Background(), source, metadata))
	assert.Equal(t, int64(len("herd data")), metadata.Size)

	stored, err := os.ReadFile(filepath.Join(dir, "sqlite-abc123.db"))
	require.NoError(t, err)
	assert.Equal(t, "herd data", string(stored))

	backups, err := target.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "sqlite-abc123", backups[0].ID)
	assert.Equal(t, "local", backups[0].Target)

	require.NoError(t, target.Delete(context.Background(), "sqlite-abc123"))
	backups, err = target.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestNewLocalTarget_RequiresPath(t *testing.T) {
	t.Parallel()
	_, err := NewLocalTarget(map[string]any{})
	assert.Error(t, err)
}

func TestFromConfig_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := NewFTPTarget(map[string]any{})
	assert.Error(t, err, "ftp requires a host")

	_, err = NewSFTPTarget(map[string]any{})
	assert.Error(t, err, "sftp requires a host")
}

func TestSFTPTarget_ValidateAuth(t *testing.T) {
	t.Parallel()

	target, err := NewSFTPTarget(map[string]any{"host": "backups.example.com", "username": "herd"})
	require.NoError(t, err)
	assert.Error(t, target.Validate(), "password or key file is required")

	target, err = NewSFTPTarget(map[string]any{
		"host": "backups.example.com", "username": "herd", "password": "secret",
	})
	require.NoError(t, err)
	assert.NoError(t, target.Validate())
}
