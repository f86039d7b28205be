// Package targets provides backup target implementations
package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/herdtrack/herdtrack-go/internal/backup"
)

const metadataFileExt = ".meta"

// LocalTarget stores backups in a local directory. Each backup is a data
// file named by its id plus a JSON metadata sidecar.
type LocalTarget struct {
	path string
}

// NewLocalTarget creates a local filesystem target.
func NewLocalTarget(settings map[string]any) (*LocalTarget, error) {
	path, ok := settings["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("local: path is required")
	}
	return &LocalTarget{path: path}, nil
}

// Name returns the name of this target
func (t *LocalTarget) Name() string {
	return "local"
}

// Validate ensures the target directory exists.
func (t *LocalTarget) Validate() error {
	return os.MkdirAll(t.path, 0o755)
}

// Store copies the backup file and writes its metadata sidecar.
func (t *LocalTarget) Store(ctx context.Context, sourcePath string, metadata *backup.Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("local: failed to open backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dstPath := filepath.Join(t.path, metadata.ID+".db")
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("local: failed to create %s: %w", dstPath, err)
	}
	defer func() { _ = dst.Close() }()

	size, err := io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("local: failed to copy backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("local: failed to sync backup: %w", err)
	}
	metadata.Size = size

	return t.writeMetadata(metadata)
}

// List returns stored backups from the metadata sidecars.
func (t *LocalTarget) List(ctx context.Context) ([]backup.BackupInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(t.path)
	if err != nil {
		return nil, fmt.Errorf("local: failed to read directory: %w", err)
	}

	var backups []backup.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataFileExt) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(t.path, entry.Name()))
		if err != nil {
			continue
		}
		var metadata backup.Metadata
		if err := json.Unmarshal(data, &metadata); err != nil {
			continue
		}
		backups = append(backups, backup.BackupInfo{Metadata: metadata, Target: t.Name()})
	}
	return backups, nil
}

// Delete removes a backup and its metadata sidecar.
func (t *LocalTarget) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(t.path, id+".db")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: failed to delete backup %s: %w", id, err)
	}
	if err := os.Remove(filepath.Join(t.path, id+metadataFileExt)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: failed to delete metadata %s: %w", id, err)
	}
	return nil
}

func (t *LocalTarget) writeMetadata(metadata *backup.Metadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("local: failed to marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(t.path, metadata.ID+metadataFileExt), data, 0o644)
}
