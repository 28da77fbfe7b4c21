package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fleet-insight/internal/domain"
)

type Config struct {
	// HTTP
	HTTPPort string

	// TimescaleDB
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MQTT ingest
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// RabbitMQ
	RabbitURL string

	// Pipeline channels
	InsightChannelSize int
	SummaryChannelSize int
	LiveChannelSize    int

	// Batch writer tuning
	DBBatchSize       int
	DBFlushIntervalMS int

	// Engine
	EngineWorkers               int
	StopSpeedThresholdKmh       float64
	SpeedViolationThresholdKmh  float64
	CongestionAvgSpeedThreshold float64
	EtaMinMinutes               float64
	EtaMaxMinutes               float64
	IdleEvictionTimeout         time.Duration // zero disables eviction
	GeofenceZones               []domain.GeofenceZone

	// Auth
	AuthCacheTTLSeconds int
	ValidAPIKeys        []string
}

func Load() (*Config, error) {
	zones, err := parseZones(getEnv("GEOFENCE_ZONES", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8001"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "fleet_user"),
		DBPassword:          getEnv("DB_PASSWORD", "fleet_password"),
		DBName:              getEnv("DB_NAME", "fleet_insight"),
		DBMaxConns:          int32(getEnvInt("DB_MAX_CONNS", 15)),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		MQTTBroker:          getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:        getEnv("MQTT_CLIENT_ID", "fleet-insight-engine"),
		MQTTTopic:           getEnv("MQTT_TOPIC", "fleet/+/positions"),
		RabbitURL:           getEnv("RABBITMQ_URL", ""),
		InsightChannelSize:  getEnvInt("INSIGHT_CHANNEL_SIZE", 10000),
		SummaryChannelSize:  getEnvInt("SUMMARY_CHANNEL_SIZE", 1000),
		LiveChannelSize:     getEnvInt("LIVE_CHANNEL_SIZE", 50000),
		DBBatchSize:         getEnvInt("DB_BATCH_SIZE", 500),
		DBFlushIntervalMS:   getEnvInt("DB_FLUSH_INTERVAL_MS", 100),
		EngineWorkers:       getEnvInt("ENGINE_WORKERS", 8),
		AuthCacheTTLSeconds: getEnvInt("AUTH_CACHE_TTL_SECONDS", 300),
		ValidAPIKeys:        strings.Split(getEnv("VALID_API_KEYS", ""), ","),

		StopSpeedThresholdKmh:       getEnvFloat("STOP_SPEED_KMH", 5),
		SpeedViolationThresholdKmh:  getEnvFloat("SPEED_VIOLATION_KMH", 50),
		CongestionAvgSpeedThreshold: getEnvFloat("CONGESTION_AVG_SPEED_KMH", 15),
		EtaMinMinutes:               getEnvFloat("ETA_MIN_MINUTES", 1),
		EtaMaxMinutes:               getEnvFloat("ETA_MAX_MINUTES", 10),
		IdleEvictionTimeout:         getEnvDuration("IDLE_EVICTION_TIMEOUT", 0),
		GeofenceZones:               zones,
	}

	if len(cfg.GeofenceZones) == 0 {
		cfg.GeofenceZones = DefaultZones()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects threshold and zone settings the engine cannot run with.
// Fatal at startup only; nothing revalidates at runtime.
func (c *Config) Validate() error {
	if c.StopSpeedThresholdKmh <= 0 {
		return domain.ConfigurationError{Field: "STOP_SPEED_KMH", Reason: "must be > 0"}
	}
	if c.SpeedViolationThresholdKmh <= 0 {
		return domain.ConfigurationError{Field: "SPEED_VIOLATION_KMH", Reason: "must be > 0"}
	}
	if c.CongestionAvgSpeedThreshold <= 0 {
		return domain.ConfigurationError{Field: "CONGESTION_AVG_SPEED_KMH", Reason: "must be > 0"}
	}
	if c.EtaMinMinutes < 0 || c.EtaMaxMinutes <= c.EtaMinMinutes {
		return domain.ConfigurationError{Field: "ETA_MIN_MINUTES/ETA_MAX_MINUTES", Reason: "require 0 <= min < max"}
	}
	if c.IdleEvictionTimeout < 0 {
		return domain.ConfigurationError{Field: "IDLE_EVICTION_TIMEOUT", Reason: "must be >= 0"}
	}
	if c.EngineWorkers <= 0 {
		return domain.ConfigurationError{Field: "ENGINE_WORKERS", Reason: "must be > 0"}
	}
	for _, z := range c.GeofenceZones {
		if err := z.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultZones is the demo zone set: landmarks from the demo routes the
// synthetic feed drives through.
func DefaultZones() []domain.GeofenceZone {
	return []domain.GeofenceZone{
		{ID: "downtown", Name: "Downtown Manhattan", Center: domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060}, RadiusKm: 2.0},
		{ID: "times-square", Name: "Times Square", Center: domain.Coordinate{Latitude: 40.7505, Longitude: -73.9934}, RadiusKm: 1.0},
		{ID: "central-park", Name: "Central Park", Center: domain.Coordinate{Latitude: 40.7829, Longitude: -73.9654}, RadiusKm: 1.5},
		{ID: "brooklyn-bridge", Name: "Brooklyn Bridge", Center: domain.Coordinate{Latitude: 40.6892, Longitude: -73.9442}, RadiusKm: 1.0},
	}
}

// parseZones reads a comma-separated list of id:name:lat:lon:radiusKm
// entries. Empty input means "use defaults".
func parseZones(raw string) ([]domain.GeofenceZone, error) {
	if raw == "" {
		return nil, nil
	}

	var zones []domain.GeofenceZone
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 5 {
			return nil, domain.ConfigurationError{Field: "GEOFENCE_ZONES", Reason: fmt.Sprintf("entry %q: want id:name:lat:lon:radiusKm", entry)}
		}
		lat, err1 := strconv.ParseFloat(parts[2], 64)
		lon, err2 := strconv.ParseFloat(parts[3], 64)
		radius, err3 := strconv.ParseFloat(parts[4], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, domain.ConfigurationError{Field: "GEOFENCE_ZONES", Reason: fmt.Sprintf("entry %q: non-numeric coordinate", entry)}
		}
		zones = append(zones, domain.GeofenceZone{
			ID:       parts[0],
			Name:     parts[1],
			Center:   domain.Coordinate{Latitude: lat, Longitude: lon},
			RadiusKm: radius,
		})
	}
	return zones, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
