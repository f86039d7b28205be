package datastore

import (
	"fmt"

	"github.com/herdtrack/herdtrack-go/internal/conf"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements DataStore for PostgreSQL
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

func validatePostgresConfig(settings *conf.Settings) error {
	if settings.Output.Postgres.Host == "" {
		return validationError("postgres host is empty", "output.postgres.host", "")
	}
	if settings.Output.Postgres.Database == "" {
		return validationError("postgres database name is empty", "output.postgres.database", "")
	}
	return nil
}

// Open sets up the PostgreSQL database connection
func (store *PostgresStore) Open() error {
	if err := validatePostgresConfig(store.Settings); err != nil {
		return err // validatePostgresConfig returns a properly formatted error
	}

	sslMode := store.Settings.Output.Postgres.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		store.Settings.Output.Postgres.Host, store.Settings.Output.Postgres.Port,
		store.Settings.Output.Postgres.Username, store.Settings.Output.Postgres.Password,
		store.Settings.Output.Postgres.Database, sslMode)

	// Create a new GORM logger
	newLogger := createGormLogger()

	// Open the PostgreSQL database
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "PostgreSQL",
		fmt.Sprintf("%s:%s/%s", store.Settings.Output.Postgres.Host,
			store.Settings.Output.Postgres.Port, store.Settings.Output.Postgres.Database))
}

// Close PostgreSQL database connections
func (store *PostgresStore) Close() error {
	if store.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}

	return sqlDB.Close()
}
