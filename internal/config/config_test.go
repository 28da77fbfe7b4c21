package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-insight/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.HTTPPort)
	assert.Equal(t, "fleet/+/positions", cfg.MQTTTopic)
	assert.Equal(t, 5.0, cfg.StopSpeedThresholdKmh)
	assert.Equal(t, 50.0, cfg.SpeedViolationThresholdKmh)
	assert.Equal(t, 15.0, cfg.CongestionAvgSpeedThreshold)
	assert.Equal(t, 1.0, cfg.EtaMinMinutes)
	assert.Equal(t, 10.0, cfg.EtaMaxMinutes)
	assert.Zero(t, cfg.IdleEvictionTimeout, "eviction off by default")
	assert.Equal(t, 8, cfg.EngineWorkers)
	assert.Len(t, cfg.GeofenceZones, 4, "demo zones when GEOFENCE_ZONES unset")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOP_SPEED_KMH", "3.5")
	t.Setenv("IDLE_EVICTION_TIMEOUT", "15m")
	t.Setenv("ENGINE_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3.5, cfg.StopSpeedThresholdKmh)
	assert.Equal(t, 15*time.Minute, cfg.IdleEvictionTimeout)
	assert.Equal(t, 2, cfg.EngineWorkers)
}

func TestLoad_ZonesFromEnv(t *testing.T) {
	t.Setenv("GEOFENCE_ZONES", "depot:Main Depot:40.70:-74.00:0.5, yard:North Yard:40.80:-73.95:1.25")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.GeofenceZones, 2)

	assert.Equal(t, domain.GeofenceZone{
		ID:       "depot",
		Name:     "Main Depot",
		Center:   domain.Coordinate{Latitude: 40.70, Longitude: -74.00},
		RadiusKm: 0.5,
	}, cfg.GeofenceZones[0])
	assert.Equal(t, "yard", cfg.GeofenceZones[1].ID)
}

func TestLoad_ZoneParseErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"too few fields", "depot:40.70:-74.00:0.5"},
		{"non-numeric lat", "depot:Main:abc:-74.00:0.5"},
		{"non-numeric radius", "depot:Main:40.70:-74.00:wide"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GEOFENCE_ZONES", tc.raw)

			_, err := Load()
			require.Error(t, err)

			var cerr domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "GEOFENCE_ZONES", cerr.Field)
		})
	}
}

func TestValidate_Thresholds(t *testing.T) {
	base := func() *Config {
		return &Config{
			StopSpeedThresholdKmh:       5,
			SpeedViolationThresholdKmh:  50,
			CongestionAvgSpeedThreshold: 15,
			EtaMinMinutes:               1,
			EtaMaxMinutes:               10,
			EngineWorkers:               8,
			GeofenceZones:               DefaultZones(),
		}
	}

	require.NoError(t, base().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"stop speed zero", func(c *Config) { c.StopSpeedThresholdKmh = 0 }, "STOP_SPEED_KMH"},
		{"violation negative", func(c *Config) { c.SpeedViolationThresholdKmh = -1 }, "SPEED_VIOLATION_KMH"},
		{"congestion zero", func(c *Config) { c.CongestionAvgSpeedThreshold = 0 }, "CONGESTION_AVG_SPEED_KMH"},
		{"eta window inverted", func(c *Config) { c.EtaMinMinutes = 10; c.EtaMaxMinutes = 1 }, "ETA_MIN_MINUTES/ETA_MAX_MINUTES"},
		{"eta min negative", func(c *Config) { c.EtaMinMinutes = -1 }, "ETA_MIN_MINUTES/ETA_MAX_MINUTES"},
		{"eviction negative", func(c *Config) { c.IdleEvictionTimeout = -time.Minute }, "IDLE_EVICTION_TIMEOUT"},
		{"no workers", func(c *Config) { c.EngineWorkers = 0 }, "ENGINE_WORKERS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cerr domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.field, cerr.Field)
		})
	}
}

func TestValidate_BadZone(t *testing.T) {
	cfg := &Config{
		StopSpeedThresholdKmh:       5,
		SpeedViolationThresholdKmh:  50,
		CongestionAvgSpeedThreshold: 15,
		EtaMinMinutes:               1,
		EtaMaxMinutes:               10,
		EngineWorkers:               8,
		GeofenceZones: []domain.GeofenceZone{
			{ID: "bad", Name: "Bad", RadiusKm: -1},
		},
	}
	assert.Error(t, cfg.Validate())
}
