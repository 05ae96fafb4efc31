package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Fare     FareConfig
	Matching MatchingConfig
	Geocoder GeocoderConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// FareConfig holds the pricing policy constants. These are business
// policy and deliberately not hard-coded in the allocator.
type FareConfig struct {
	BaseFare        float64
	PerKmRate       float64
	SharingDiscount float64
}

// MatchingConfig holds the matching radii and policy.
type MatchingConfig struct {
	PickupRadiusKm float64 // passenger booking radius around a trip's origin
	DriverRadiusKm float64 // driver offer search radius
	Policy         string  // FIRST_FIT or NEAREST
	MaxRetries     int     // bounded retries on a persistence conflict
}

// GeocoderConfig holds geocoding API configuration.
type GeocoderConfig struct {
	APIKey  string
	Enabled bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "carpool"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "carpool-dispatch"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Fare: FareConfig{
			BaseFare:        getFloatEnv("FARE_BASE", 20),
			PerKmRate:       getFloatEnv("FARE_PER_KM_RATE", 10),
			SharingDiscount: getFloatEnv("FARE_SHARING_DISCOUNT", 0.8),
		},
		Matching: MatchingConfig{
			PickupRadiusKm: getFloatEnv("MATCH_PICKUP_RADIUS_KM", 3),
			DriverRadiusKm: getFloatEnv("MATCH_DRIVER_RADIUS_KM", 5),
			Policy:         getEnv("MATCH_POLICY", "FIRST_FIT"),
			MaxRetries:     getIntEnv("MATCH_MAX_RETRIES", 3),
		},
		Geocoder: GeocoderConfig{
			APIKey:  getEnv("GEOCODER_API_KEY", ""),
			Enabled: getBoolEnv("GEOCODER_ENABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
