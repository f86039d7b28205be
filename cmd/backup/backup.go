// Package backup provides the backup command for HerdTrack-Go
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/herdtrack/herdtrack-go/internal/backup"
	"github.com/herdtrack/herdtrack-go/internal/backup/sources"
	"github.com/herdtrack/herdtrack-go/internal/backup/targets"
	"github.com/herdtrack/herdtrack-go/internal/conf"
)

const backupTimeout = 10 * time.Minute

// Command creates and returns the backup command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Perform an immediate backup of the database",
		Long:  `Backup snapshots the SQLite database and stores it on every enabled target, then applies the retention policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(settings)
		},
	}
}

func runBackup(settings *conf.Settings) error {
	if !settings.Backup.Enabled {
		return fmt.Errorf("backup functionality is not enabled in configuration")
	}

	manager := backup.NewManager(settings)

	if err := manager.RegisterSource(sources.NewSQLiteSource(settings)); err != nil {
		return fmt.Errorf("failed to register SQLite source: %w", err)
	}

	for i := range settings.Backup.Targets {
		cfg := &settings.Backup.Targets[i]
		if !cfg.Enabled {
			continue
		}
		target, err := targets.FromConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to build %s target: %w", cfg.Type, err)
		}
		if err := manager.RegisterTarget(target); err != nil {
			return fmt.Errorf("failed to register %s target: %w", cfg.Type, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := manager.RunBackup(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Println("Backup completed successfully")
	return nil
}
