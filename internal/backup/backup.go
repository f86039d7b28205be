// Package backup implements database backups: a source produces a snapshot
// file, registered targets store it, and retention trims old copies.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/logging"
)

// Source produces a database snapshot.
type Source interface {
	// Name returns the name of the source
	Name() string
	// Backup writes a snapshot and returns its path plus a cleanup func
	Backup(ctx context.Context) (path string, cleanup func(), err error)
	// Validate validates the source configuration
	Validate() error
}

// Target stores backup files.
type Target interface {
	// Name returns the name of the target
	Name() string
	// Store uploads a backup file
	Store(ctx context.Context, sourcePath string, metadata *Metadata) error
	// List returns stored backups, any order
	List(ctx context.Context) ([]BackupInfo, error)
	// Delete removes a stored backup by id
	Delete(ctx context.Context, id string) error
	// Validate validates the target configuration
	Validate() error
}

// Metadata describes one backup.
type Metadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	AppVersion string    `json:"app_version"`
}

// BackupInfo is a stored backup as reported by a target.
type BackupInfo struct {
	Metadata
	Target string `json:"target"`
}

// Manager coordinates sources and targets.
type Manager struct {
	config  *conf.BackupConfig
	version string
	sources map[string]Source
	targets map[string]Target
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewManager creates a backup manager.
func NewManager(settings *conf.Settings) *Manager {
	return &Manager{
		config:  &settings.Backup,
		version: settings.Version,
		sources: make(map[string]Source),
		targets: make(map[string]Target),
		logger:  logging.ForService("backup"),
	}
}

// RegisterSource registers a backup source after validating it.
func (m *Manager) RegisterSource(source Source) error {
	if err := source.Validate(); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Context("source", source.Name()).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[source.Name()] = source
	return nil
}

// RegisterTarget registers a backup target after validating it.
func (m *Manager) RegisterTarget(target Target) error {
	if err := target.Validate(); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Context("target", target.Name()).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[target.Name()] = target
	return nil
}

// RunBackup snapshots every source and stores it on every target, then
// applies retention. A failing target does not stop the others; the first
// error is returned after all stores were attempted.
func (m *Manager) RunBackup(ctx context.Context) error {
	m.mu.RLock()
	sources := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		sources = append(sources, s)
	}
	targets := make([]Target, 0, len(m.targets))
	for _, t := range m.targets {
		targets = append(targets, t)
	}
	m.mu.RUnlock()

	if len(sources) == 0 {
		return errors.Newf("no backup sources registered").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(targets) == 0 {
		return errors.Newf("no backup targets registered").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}

	var firstErr error
	for _, source := range sources {
		if err := m.backupSource(ctx, source, targets); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) backupSource(ctx context.Context, source Source, targets []Target) error {
	started := time.Now()
	path, cleanup, err := source.Backup(ctx)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryBackup).
			Context("source", source.Name()).
			Build()
	}
	defer cleanup()

	metadata := &Metadata{
		ID:         fmt.Sprintf("%s-%s", source.Name(), uuid.New().String()[:8]),
		Timestamp:  started,
		Type:       source.Name(),
		Source:     source.Name(),
		AppVersion: m.version,
	}

	var firstErr error
	for _, target := range targets {
		if err := target.Store(ctx, path, metadata); err != nil {
			m.logger.Error("backup store failed",
				"source", source.Name(),
				"target", target.Name(),
				"error", err)
			if firstErr == nil {
				firstErr = errors.New(err).
					Component("backup").
					Category(errors.CategoryBackup).
					Context("target", target.Name()).
					Build()
			}
			continue
		}

		m.logger.Info("backup stored",
			"source", source.Name(),
			"target", target.Name(),
			"id", metadata.ID,
			"elapsed", time.Since(started))

		if err := m.applyRetention(ctx, target); err != nil {
			m.logger.Warn("retention cleanup failed",
				"target", target.Name(), "error", err)
		}
	}
	return firstErr
}

// applyRetention deletes the oldest backups beyond MaxBackups, never going
// below MinBackups.
func (m *Manager) applyRetention(ctx context.Context, target Target) error {
	maxBackups := m.config.Retention.MaxBackups
	if maxBackups <= 0 {
		return nil
	}

	backups, err := target.List(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= maxBackups {
		return nil
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.Before(backups[j].Timestamp)
	})

	keep := maxBackups
	if min := m.config.Retention.MinBackups; min > keep {
		keep = min
	}

	for _, old := range backups[:len(backups)-keep] {
		if err := target.Delete(ctx, old.ID); err != nil {
			return err
		}
		m.logger.Info("expired backup deleted",
			"target", target.Name(), "id", old.ID)
	}
	return nil
}
