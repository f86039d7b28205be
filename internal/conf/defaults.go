// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "HerdTrack-Go")
	viper.SetDefault("main.environment", EnvironmentDevelopment)
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "herdtrack.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", time.Sunday)

	viper.SetDefault("ingest.debug", false)

	viper.SetDefault("dispatch.debug", false)
	viper.SetDefault("dispatch.controlttl", time.Hour)
	viper.SetDefault("dispatch.wifittl", 24*time.Hour)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.topic", "herdtrack/+/location")
	viper.SetDefault("mqtt.username", "herdtrack")
	viper.SetDefault("mqtt.password", "secret")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.debug", false)
	viper.SetDefault("notification.maxperminute", 30)
	viper.SetDefault("notification.providers", []map[string]any{})

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.live.enabled", true)

	viper.SetDefault("webserver.log.enabled", false)
	viper.SetDefault("webserver.log.path", "web.log")
	viper.SetDefault("webserver.log.rotation", RotationDaily)
	viper.SetDefault("webserver.log.maxsize", 1048576)
	viper.SetDefault("webserver.log.rotationday", time.Sunday)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "herdtrack.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "herdtrack")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "herdtrack")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)

	viper.SetDefault("output.postgres.enabled", false)
	viper.SetDefault("output.postgres.username", "herdtrack")
	viper.SetDefault("output.postgres.password", "secret")
	viper.SetDefault("output.postgres.database", "herdtrack")
	viper.SetDefault("output.postgres.host", "localhost")
	viper.SetDefault("output.postgres.port", 5432)
	viper.SetDefault("output.postgres.sslmode", "disable")

	viper.SetDefault("backup.enabled", false)
	viper.SetDefault("backup.debug", false)
	viper.SetDefault("backup.retention.maxage", "30d")
	viper.SetDefault("backup.retention.maxbackups", 7)
	viper.SetDefault("backup.retention.minbackups", 1)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}
