package models

import "time"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	API       APIConfig
	Transport TransportConfig
	Fleet     FleetConfig
	Motion    MotionConfig
	Ride      RideConfig
	Sink      SinkConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	Logger    LoggerConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig holds the debug HTTP surface configuration
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// APIConfig holds the ride API collaborator configuration.
// Token is an opaque bearer credential, never parsed by the client.
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// TransportConfig holds push transport configuration
type TransportConfig struct {
	URL            string
	ReconnectDelay time.Duration
}

// FleetConfig holds fleet aggregation configuration
type FleetConfig struct {
	PollInterval     time.Duration
	StaleAfter       time.Duration
	GeohashPrecision uint
}

// MotionConfig holds motion interpolation configuration
type MotionConfig struct {
	TickInterval time.Duration
	Ticks        int
}

// RideConfig holds ride lifecycle configuration
type RideConfig struct {
	// AssumedSpeedKmh is the speed used for ETA estimation
	AssumedSpeedKmh float64
	ETATick         time.Duration
	// StartDelay is a cosmetic pause before the arrived->in-progress
	// transition, not a correctness requirement
	StartDelay time.Duration
}

// SinkConfig selects the raw location sample sink
type SinkConfig struct {
	// Driver is one of "none", "redis", "sqlite"
	Driver string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// SQLiteConfig holds the on-device sqlite sink configuration
type SQLiteConfig struct {
	Path string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
