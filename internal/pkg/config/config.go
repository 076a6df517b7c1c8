package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/joho/godotenv"
)

func InitConfig(configPath string) *models.Config {
	local := GetEnv("APP_ENV", "local")
	if local == "local" {
		// Load config from file
		err := godotenv.Load(configPath)
		if err != nil {
			log.Println("error loading config from file", err)
		}
	}
	// Create config from environment variables
	return loadConfigFromEnv()
}

func loadConfigFromEnv() *models.Config {
	configs := &models.Config{}

	// App config
	configs.App.Name = GetEnv("APP_NAME", "cabtrack")
	configs.App.Environment = GetEnv("APP_ENV", "")
	configs.App.Debug = GetEnvAsBool("APP_DEBUG", true)
	configs.App.Version = GetEnv("APP_VERSION", "")

	// Debug server config
	configs.Server.Port = GetEnvAsInt("SERVER_PORT", 9980)
	configs.Server.ShutdownTimeout = GetEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	// Ride API config
	configs.API.BaseURL = GetEnv("RIDE_API_URL", "http://localhost:5001")
	configs.API.Token = GetEnv("RIDE_API_TOKEN", "")
	configs.API.Timeout = GetEnvAsDuration("RIDE_API_TIMEOUT", 10*time.Second)

	// Push transport config
	configs.Transport.URL = GetEnv("TRANSPORT_URL", "ws://localhost:5001/cab_location_updates")
	configs.Transport.ReconnectDelay = GetEnvAsDuration("TRANSPORT_RECONNECT_DELAY", 2*time.Second)

	// Fleet config
	configs.Fleet.PollInterval = GetEnvAsDuration("FLEET_POLL_INTERVAL", 15*time.Second)
	configs.Fleet.StaleAfter = GetEnvAsDuration("FLEET_STALE_AFTER", 2*time.Minute)
	configs.Fleet.GeohashPrecision = uint(GetEnvAsInt("FLEET_GEOHASH_PRECISION", 6))

	// Motion config
	configs.Motion.TickInterval = GetEnvAsDuration("MOTION_TICK_INTERVAL", 100*time.Millisecond)
	configs.Motion.Ticks = GetEnvAsInt("MOTION_TICKS", 20)

	// Ride config
	configs.Ride.AssumedSpeedKmh = GetEnvAsFloat("RIDE_ASSUMED_SPEED_KMH", 30.0)
	configs.Ride.ETATick = GetEnvAsDuration("RIDE_ETA_TICK", 1*time.Second)
	configs.Ride.StartDelay = GetEnvAsDuration("RIDE_START_DELAY", 0)

	// Sink config
	configs.Sink.Driver = GetEnv("SINK_DRIVER", "none")

	// Redis config
	configs.Redis.Host = GetEnv("REDIS_HOST", "localhost")
	configs.Redis.Port = GetEnvAsInt("REDIS_PORT", 6379)
	configs.Redis.Password = GetEnv("REDIS_PASSWORD", "")
	configs.Redis.DB = GetEnvAsInt("REDIS_DB", 0)
	configs.Redis.PoolSize = GetEnvAsInt("REDIS_POOL_SIZE", 10)

	// SQLite config
	configs.SQLite.Path = GetEnv("SQLITE_PATH", "cabtrack.db")

	// Logger config
	configs.Logger.Level = GetEnv("LOG_LEVEL", "info")
	configs.Logger.FilePath = GetEnv("LOG_FILE_PATH", "")

	return configs
}

// Helper functions to get environment variables with different types
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
