// Package sources provides backup source implementations
package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
)

// SQLiteSource snapshots the SQLite database by copying the file into a
// temp directory. The copy is taken from a quiesced file handle; WAL
// contents not yet checkpointed are outside the snapshot.
type SQLiteSource struct {
	settings *conf.Settings
}

// NewSQLiteSource creates a new SQLite backup source
func NewSQLiteSource(settings *conf.Settings) *SQLiteSource {
	return &SQLiteSource{settings: settings}
}

// Name returns the name of this source
func (s *SQLiteSource) Name() string {
	return "sqlite"
}

// Validate checks the source configuration.
func (s *SQLiteSource) Validate() error {
	if !s.settings.Output.SQLite.Enabled {
		return fmt.Errorf("sqlite is not enabled")
	}
	if s.settings.Output.SQLite.Path == "" {
		return fmt.Errorf("sqlite path is not configured")
	}
	return nil
}

// Backup copies the database file into a temp directory and returns the
// copy's path with a cleanup func removing the temp directory.
func (s *SQLiteSource) Backup(ctx context.Context) (string, func(), error) {
	if err := s.Validate(); err != nil {
		return "", nil, err
	}

	dbPath := s.settings.Output.SQLite.Path
	if !filepath.IsAbs(dbPath) {
		absPath, err := filepath.Abs(dbPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		dbPath = absPath
	}

	if _, err := os.Stat(dbPath); err != nil {
		return "", nil, fmt.Errorf("database file not accessible: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "herdtrack-backup-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tempDir) }

	timestamp := time.Now().UTC().Format("20060102150405")
	backupPath := filepath.Join(tempDir, fmt.Sprintf("herdtrack-sqlite-%s.db", timestamp))

	if err := copyFile(ctx, dbPath, backupPath); err != nil {
		cleanup()
		return "", nil, err
	}
	return backupPath, cleanup, nil
}

func copyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}
	return dstFile.Sync()
}
