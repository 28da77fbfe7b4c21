package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet-insight/internal/config"
	"fleet-insight/internal/domain"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// PublishVehicleState mirrors the engine's latest view of one vehicle into
// Redis: a hash for point lookups, a geo set for map queries, and a pub/sub
// message for live dashboards. The hash expires so vehicles that go quiet
// disappear from the live view on their own.
func (r *RedisStore) PublishVehicleState(ctx context.Context, st domain.VehicleState) error {
	zones := make([]string, 0, len(st.ActiveZones))
	for id := range st.ActiveZones {
		zones = append(zones, id)
	}
	zonesJSON, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("failed to marshal zones: %w", err)
	}

	stateData := map[string]interface{}{
		"agency":       st.Key.Agency,
		"vehicle_id":   st.Key.VehicleID,
		"lat":          st.CurrentPosition.Latitude,
		"lng":          st.CurrentPosition.Longitude,
		"speed_kmh":    st.CurrentSpeedKmh,
		"heading":      st.CurrentHeading,
		"route":        st.CurrentRoute,
		"active_zones": string(zonesJSON),
		"timestamp":    st.LastEventTime.Unix(),
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	vehicleStateKey := fmt.Sprintf("vehicle:%s:state", st.Key)
	geoKey := fmt.Sprintf("agency:%s:geo", st.Key.Agency)
	pubChannel := fmt.Sprintf("agency:%s:telemetry", st.Key.Agency)

	pipe := r.client.Pipeline()

	pipe.HSet(ctx, vehicleStateKey, stateData)
	pipe.Expire(ctx, vehicleStateKey, 30*time.Second)
	pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      st.Key.VehicleID,
		Longitude: st.CurrentPosition.Longitude,
		Latitude:  st.CurrentPosition.Latitude,
	})
	pipe.Publish(ctx, pubChannel, pubPayload)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	return nil
}

func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	key := fmt.Sprintf("agency:auth:%s", apiKey)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) CheckInsightDedup(ctx context.Context, key domain.Key, kind domain.InsightKind) (bool, error) {
	dedupKey := fmt.Sprintf("insight:%s:%s", key, string(kind))
	count, err := r.client.Exists(ctx, dedupKey).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

func (r *RedisStore) SetInsightDedup(ctx context.Context, key domain.Key, kind domain.InsightKind) error {
	dedupKey := fmt.Sprintf("insight:%s:%s", key, string(kind))
	return r.client.Set(ctx, dedupKey, "1", 5*time.Minute).Err()
}

func (r *RedisStore) PublishInsight(ctx context.Context, agency string, payload []byte) error {
	channel := fmt.Sprintf("agency:%s:insights", agency)
	return r.client.Publish(ctx, channel, payload).Err()
}
