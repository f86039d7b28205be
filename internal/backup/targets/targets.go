package targets

import (
	"fmt"

	"github.com/herdtrack/herdtrack-go/internal/backup"
	"github.com/herdtrack/herdtrack-go/internal/conf"
)

// FromConfig builds a target from its configuration entry.
func FromConfig(cfg *conf.BackupTarget) (backup.Target, error) {
	switch cfg.Type {
	case "local":
		return NewLocalTarget(cfg.Settings)
	case "ftp":
		return NewFTPTarget(cfg.Settings)
	case "sftp":
		return NewSFTPTarget(cfg.Settings)
	default:
		return nil, fmt.Errorf("unknown backup target type %q", cfg.Type)
	}
}
