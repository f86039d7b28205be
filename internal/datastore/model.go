// model.go this code defines the data model for the application
package datastore

import "time"

// SentinelEntityID is the reserved entity key for location reports that carry
// no animal identity. Exactly one CurrentPosition row exists under this key,
// holding the latest unattributed raw GPS fix.
const SentinelEntityID uint = 0

// Command types understood by field devices.
const (
	CommandTypeControl    = "control"
	CommandTypeWifiUpdate = "wifi_update"
)

// Command lifecycle states. Expiry is not a stored state, it is evaluated
// lazily against ExpiresAt on every read path.
const (
	CommandStatusPending      = "pending"
	CommandStatusAcknowledged = "acknowledged"
)

// Alert lifecycle states.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Column caps for alert text fields. Over-length input is truncated to these
// limits rather than rejected so firmware bugs never drop an alert.
const (
	AlertTypeMaxLen     = 50
	AlertSeverityMaxLen = 20
	AlertTitleMaxLen    = 200
	AlertMessageMaxLen  = 1000
)

// TrackPoint represents a single location report in the append-only history.
// Rows are immutable after creation except for the explicit correction path,
// and are never deleted.
type TrackPoint struct {
	ID                 uint   `gorm:"primaryKey"`
	SourceNode         string `gorm:"type:varchar(100)"`
	AnimalID           uint   `gorm:"index:idx_trackpoints_animal;index:idx_trackpoints_animal_recorded"`
	CollarID           string `gorm:"type:varchar(100);index:idx_trackpoints_collar"`
	Latitude           float64
	Longitude          float64
	Altitude           *float64
	AccuracyMeters     *float64
	SpeedKmh           *float64
	HeadingDegrees     *float64
	BatteryLevel       *float64
	SignalQuality      *int
	TemperatureCelsius *float64
	RecordedAt         time.Time `gorm:"index:idx_trackpoints_recorded;index:idx_trackpoints_animal_recorded"`
	CreatedAt          time.Time
}

// CurrentPosition is the single latest-known-position row per entity key.
// AnimalID is the entity key; SentinelEntityID holds unattributed fixes.
// Only the mirrored subset of report fields lives here, the rest
// (altitude, accuracy, speed, heading) is history-only.
type CurrentPosition struct {
	ID                 uint   `gorm:"primaryKey"`
	AnimalID           uint   `gorm:"uniqueIndex:idx_current_animal"`
	CollarID           string `gorm:"type:varchar(100)"`
	Latitude           float64
	Longitude          float64
	RecordedAt         time.Time
	BatteryLevel       *float64
	SignalQuality      *int
	TemperatureCelsius *float64
	UpdatedAt          time.Time
}

// Command is a queued instruction for a polling field device. Lifecycle is
// pending -> acknowledged, or lazy expiry once ExpiresAt has passed. Wifi
// credentials only ever live in the Payload here, bounded by the TTL; they
// are never mirrored into the settings table.
type Command struct {
	ID             uint   `gorm:"primaryKey"`
	DeviceID       string `gorm:"type:varchar(100);index:idx_commands_device"`
	CommandType    string `gorm:"type:varchar(20)"`
	Payload        string `gorm:"type:text"`
	Status         string `gorm:"type:varchar(20);index:idx_commands_status"`
	CreatedAt      time.Time
	ExpiresAt      time.Time `gorm:"index:idx_commands_expires"`
	AcknowledgedAt *time.Time
	AckStatus      string `gorm:"type:varchar(50)"`
}

// Alert represents a raised condition: device fault, fence breach, low
// battery. Alerts transition active -> acknowledged -> resolved, each step
// stamping the actor and time. Individual alerts are never deleted; bulk
// clear is a privileged administrative operation.
type Alert struct {
	ID             uint  `gorm:"primaryKey"`
	FarmID         uint  `gorm:"index:idx_alerts_farm"`
	AnimalID       *uint `gorm:"index:idx_alerts_animal"`
	FenceID        *uint
	Type           string `gorm:"type:varchar(50)"`
	Severity       string `gorm:"type:varchar(20)"`
	Title          string `gorm:"type:varchar(200)"`
	Message        string `gorm:"type:varchar(1000)"`
	Latitude       *float64
	Longitude      *float64
	TriggeredAt    time.Time `gorm:"index:idx_alerts_triggered"`
	Status         string    `gorm:"type:varchar(20);index:idx_alerts_status"`
	AutoGenerated  bool
	AcknowledgedBy string `gorm:"type:varchar(100)"`
	AcknowledgedAt *time.Time
	ResolvedBy     string `gorm:"type:varchar(100)"`
	ResolvedAt     *time.Time
}

// Animal is the tracked entity a collar is attached to. Thin CRUD surface,
// consumed by the ingestion pipeline for collar resolution and by the
// markers query for display metadata.
type Animal struct {
	ID        uint   `gorm:"primaryKey"`
	FarmID    uint   `gorm:"index:idx_animals_farm"`
	Name      string `gorm:"type:varchar(100)"`
	Tag       string `gorm:"type:varchar(50)"`
	Species   string `gorm:"type:varchar(50)"`
	CollarID  string `gorm:"type:varchar(100);index:idx_animals_collar"`
	CreatedAt time.Time
}

// Fence is a circular virtual fence definition.
type Fence struct {
	ID           uint   `gorm:"primaryKey"`
	FarmID       uint   `gorm:"index:idx_fences_farm"`
	Name         string `gorm:"type:varchar(100)"`
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Active       bool
	CreatedAt    time.Time
}

// Fence geometry bounds enforced on creation.
const (
	FenceRadiusMin = 50
	FenceRadiusMax = 10000
)

// AppSetting is a key-value row for small global flags such as the device
// control toggle.
type AppSetting struct {
	Key       string `gorm:"primaryKey;type:varchar(100)"`
	Value     string `gorm:"type:varchar(255)"`
	UpdatedAt time.Time
}

// Marker is a CurrentPosition joined with animal display metadata for map
// rendering.
type Marker struct {
	AnimalID     uint      `json:"animal_id"`
	Name         string    `json:"name"`
	Tag          string    `json:"tag"`
	CollarID     string    `json:"collar_id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RecordedAt   time.Time `json:"recorded_at"`
	BatteryLevel *float64  `json:"battery_level,omitempty"`
}
