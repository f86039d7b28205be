package backup

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource writes a fixed payload to a temp file.
type fakeSource struct {
	payload string
	fail    bool
}

func (f *fakeSource) Name() string    { return "fake" }
func (f *fakeSource) Validate() error { return nil }

func (f *fakeSource) Backup(ctx context.Context) (string, func(), error) {
	if f.fail {
		return "", nil, fmt.Errorf("snapshot failed")
	}
	file, err := os.CreateTemp("", "fake-backup-*")
	if err != nil {
		return "", nil, err
	}
	if _, err := file.WriteString(f.payload); err != nil {
		return "", nil, err
	}
	_ = file.Close()
	return file.Name(), func() { _ = os.Remove(file.Name()) }, nil
}

// fakeTarget records stored backups in memory.
type fakeTarget struct {
	name     string
	stored   []Metadata
	deleted  []string
	storeErr error
}

func (f *fakeTarget) Name() string    { return f.name }
func (f *fakeTarget) Validate() error { return nil }

func (f *fakeTarget) Store(ctx context.Context, sourcePath string, metadata *Metadata) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, *metadata)
	return nil
}

func (f *fakeTarget) List(ctx context.Context) ([]BackupInfo, error) {
	infos := make([]BackupInfo, 0, len(f.stored))
	for _, m := range f.stored {
		infos = append(infos, BackupInfo{Metadata: m, Target: f.name})
	}
	return infos, nil
}

func (f *fakeTarget) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	for i, m := range f.stored {
		if m.ID == id {
			f.stored = append(f.stored[:i], f.stored[i+1:]...)
			break
		}
	}
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	settings := &conf.Settings{Version: "test"}
	settings.Backup.Enabled = true
	return NewManager(settings)
}

func TestRunBackup_StoresOnAllTargets(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	first := &fakeTarget{name: "first"}
	second := &fakeTarget{name: "second"}
	require.NoError(t, m.RegisterSource(&fakeSource{payload: "data"}))
	require.NoError(t, m.RegisterTarget(first))
	require.NoError(t, m.RegisterTarget(second))

	require.NoError(t, m.RunBackup(context.Background()))

	require.Len(t, first.stored, 1)
	require.Len(t, second.stored, 1)
	assert.NotEmpty(t, first.stored[0].ID)
	assert.Equal(t, "fake", first.stored[0].Source)
}

func TestRunBackup_FailingTargetDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	broken := &fakeTarget{name: "broken", storeErr: fmt.Errorf("disk full")}
	healthy := &fakeTarget{name: "healthy"}
	require.NoError(t, m.RegisterSource(&fakeSource{payload: "data"}))
	require.NoError(t, m.RegisterTarget(broken))
	require.NoError(t, m.RegisterTarget(healthy))

	err := m.RunBackup(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBackup))
	assert.Len(t, healthy.stored, 1, "healthy target still receives the backup")
}

func TestRunBackup_NoSourcesOrTargets(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	err := m.RunBackup(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	require.NoError(t, m.RegisterSource(&fakeSource{payload: "data"}))
	err = m.RunBackup(context.Background())
	require.Error(t, err, "a source without targets is a configuration error")
}

func TestRetention_TrimsOldestBeyondMax(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	m.config.Retention.MaxBackups = 2

	target := &fakeTarget{name: "t"}
	now := time.Now()
	for i := 0; i < 3; i++ {
		target.stored = append(target.stored, Metadata{
			ID:        fmt.Sprintf("old-%d", i),
			Timestamp: now.Add(time.Duration(i) * time.Hour),
		})
	}

	require.NoError(t, m.applyRetention(context.Background(), target))
	assert.Equal(t, []string{"old-0"}, target.deleted, "only the oldest beyond max is trimmed")
}

func TestRetention_MinBackupsWins(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	m.config.Retention.MaxBackups = 1
	m.config.Retention.MinBackups = 3

	target := &fakeTarget{name: "t"}
	now := time.Now()
	for i := 0; i < 3; i++ {
		target.stored = append(target.stored, Metadata{
			ID:        fmt.Sprintf("b-%d", i),
			Timestamp: now.Add(time.Duration(i) * time.Hour),
		})
	}

	require.NoError(t, m.applyRetention(context.Background(), target))
	assert.Empty(t, target.deleted, "min backups floor prevents trimming")
}
