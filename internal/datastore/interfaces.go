// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the system performs against it.
type Interface interface {
	Open() error
	Close() error

	// Telemetry store: append-only track history plus the per-entity
	// current position table.
	SaveTrackPoint(point *TrackPoint) error
	UpdateTrackPoint(id uint, fields map[string]any) error
	GetTrackPoint(id uint) (*TrackPoint, error)
	GetTrackHistory(animalID uint, limit, offset int) ([]TrackPoint, error)
	CountTrackPoints(animalID uint) (int64, error)
	UpsertCurrentPosition(position *CurrentPosition) error
	GetCurrentPosition(entityKey uint) (*CurrentPosition, error)
	GetCurrentPositionByCollar(collarID string) (*CurrentPosition, error)
	GetMarkers() ([]Marker, error)

	// Command queue.
	InsertCommand(cmd *Command) error
	GetCommand(id uint) (*Command, error)
	PendingCommands(deviceID string, now time.Time) ([]Command, error)
	AcknowledgeCommand(id uint, ackStatus string, now time.Time) (bool, error)

	// Alerts.
	InsertAlert(alert *Alert) error
	GetAlert(id uint) (*Alert, error)
	GetAlerts(status string, limit, offset int) ([]Alert, error)
	UpdateAlertStatus(id uint, status, actor string, now time.Time) error
	ClearAlerts(farmID uint) (int64, error)

	// Animals (thin CRUD consumer contract).
	CreateAnimal(animal *Animal) error
	GetAnimal(id uint) (*Animal, error)
	GetAnimalByCollar(collarID string) (*Animal, error)
	GetAnimals(farmID uint) ([]Animal, error)

	// Fences.
	CreateFence(fence *Fence) error
	GetFence(id uint) (*Fence, error)
	GetFences(farmID uint) ([]Fence, error)

	// Key-value settings.
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	case settings.Output.Postgres.Enabled:
		return &PostgresStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&TrackPoint{},
		&CurrentPosition{},
		&Command{},
		&Alert{},
		&Animal{},
		&Fence{},
		&AppSetting{},
	); err != nil {
		return dbError(err, "auto-migrate", errors.PriorityCritical,
			"db_type", dbType)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// sortAscendingString returns "ASC" or "DESC" based on the boolean input.
func sortAscendingString(asc bool) string {
	if asc {
		return "ASC"
	}
	return "DESC"
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
