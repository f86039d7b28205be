package targets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/backup"
	"github.com/jlaffaye/ftp"
)

const ftpDefaultTimeout = 30 * time.Second

// FTPTarget stores backups on an FTP server. A fresh connection is dialed
// per operation; backup runs are infrequent enough that pooling buys
// nothing.
type FTPTarget struct {
	host     string
	port     int
	username string
	password string
	basePath string
	timeout  time.Duration
}

// NewFTPTarget creates an FTP target from generic settings.
func NewFTPTarget(settings map[string]any) (*FTPTarget, error) {
	target := &FTPTarget{
		port:    21,
		timeout: ftpDefaultTimeout,
	}

	host, ok := settings["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("ftp: host is required")
	}
	target.host = host

	if port, ok := settings["port"].(int); ok {
		target.port = port
	}
	if username, ok := settings["username"].(string); ok {
		target.username = username
	}
	if password, ok := settings["password"].(string); ok {
		target.password = password
	}
	if basePath, ok := settings["path"].(string); ok {
		target.basePath = strings.TrimRight(basePath, "/")
	}
	return target, nil
}

// Name returns the name of this target
func (t *FTPTarget) Name() string {
	return "ftp"
}

// Validate checks the target configuration without dialing.
func (t *FTPTarget) Validate() error {
	if t.host == "" {
		return fmt.Errorf("ftp: host is required")
	}
	if t.port <= 0 || t.port > 65535 {
		return fmt.Errorf("ftp: invalid port %d", t.port)
	}
	return nil
}

// Store uploads the backup file and its metadata sidecar.
func (t *FTPTarget) Store(ctx context.Context, sourcePath string, metadata *backup.Metadata) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	file, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("ftp: failed to open backup: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("ftp: failed to stat backup: %w", err)
	}
	metadata.Size = info.Size()

	if err := conn.Stor(t.remotePath(metadata.ID+".db"), file); err != nil {
		return fmt.Errorf("ftp: failed to store backup: %w", err)
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("ftp: failed to marshal metadata: %w", err)
	}
	if err := conn.Stor(t.remotePath(metadata.ID+metadataFileExt), strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("ftp: failed to store metadata: %w", err)
	}
	return nil
}

// List returns stored backups from the metadata sidecars.
func (t *FTPTarget) List(ctx context.Context) ([]backup.BackupInfo, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	dir := t.basePath
	if dir == "" {
		dir = "."
	}
	entries, err := conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("ftp: failed to list %s: %w", dir, err)
	}

	var backups []backup.BackupInfo
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile || !strings.HasSuffix(entry.Name, metadataFileExt) {
			continue
		}

		resp, err := conn.Retr(t.remotePath(entry.Name))
		if err != nil {
			continue
		}
		var metadata backup.Metadata
		decodeErr := json.NewDecoder(resp).Decode(&metadata)
		_ = resp.Close()
		if decodeErr != nil {
			continue
		}
		backups = append(backups, backup.BackupInfo{Metadata: metadata, Target: t.Name()})
	}
	return backups, nil
}

// Delete removes a backup and its metadata sidecar.
func (t *FTPTarget) Delete(ctx context.Context, id string) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Delete(t.remotePath(id + ".db")); err != nil {
		return fmt.Errorf("ftp: failed to delete backup %s: %w", id, err)
	}
	if err := conn.Delete(t.remotePath(id + metadataFileExt)); err != nil {
		return fmt.Errorf("ftp: failed to delete metadata %s: %w", id, err)
	}
	return nil
}

func (t *FTPTarget) dial(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(t.timeout))
	if err != nil {
		return nil, fmt.Errorf("ftp: failed to connect to %s: %w", addr, err)
	}

	if t.username != "" {
		if err := conn.Login(t.username, t.password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp: login failed: %w", err)
		}
	}
	return conn, nil
}

func (t *FTPTarget) remotePath(name string) string {
	if t.basePath == "" {
		return name
	}
	return path.Join(t.basePath, name)
}
