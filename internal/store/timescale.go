package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleet-insight/internal/config"
	"fleet-insight/internal/domain"
)

type TimescaleStore struct {
	pool *pgxpool.Pool
}

func NewTimescaleStore(ctx context.Context, cfg *config.Config) (*TimescaleStore, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?pool_max_conns=%d",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBMaxConns,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &TimescaleStore{pool: pool}, nil
}

func (s *TimescaleStore) Close() {
	s.pool.Close()
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var insightColumns = []string{
	"timestamp",
	"agency",
	"vehicle_id",
	"kind",
	"severity",
	"route_from",
	"route_to",
	"started",
	"speed_kmh",
	"limit_kmh",
	"zone_id",
	"eta_minutes",
}

func (s *TimescaleStore) BatchInsertInsights(ctx context.Context, insights []domain.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(insights))
	for i, ins := range insights {
		rows[i] = []interface{}{
			ins.Timestamp,
			ins.Agency,
			ins.VehicleID,
			string(ins.Kind),
			string(ins.Severity),
			ins.RouteFrom,
			ins.RouteTo,
			ins.Started,
			ins.SpeedKmh,
			ins.LimitKmh,
			ins.ZoneID,
			ins.EtaMinutes,
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"vehicle_insights"},
		insightColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(insights), err)
	}

	return nil
}

func (s *TimescaleStore) InsertBatchSummary(ctx context.Context, summary domain.BatchSummary) error {
	perRoute := make(map[string]domain.RouteStats, len(summary.PerRoute))
	for rk, stats := range summary.PerRoute {
		perRoute[rk.String()] = stats
	}
	perRouteJSON, err := json.Marshal(perRoute)
	if err != nil {
		return fmt.Errorf("failed to marshal per-route stats: %w", err)
	}

	congested := make([]string, len(summary.CongestedRoutes))
	for i, rk := range summary.CongestedRoutes {
		congested[i] = rk.String()
	}

	query := `
		INSERT INTO batch_summaries
			(processed_at, total_events, distinct_vehicles, per_route, congested_routes)
		VALUES
			($1, $2, $3, $4, $5)
	`
	_, err = s.pool.Exec(
		ctx,
		query,
		summary.ProcessedAt,
		summary.TotalEvents,
		summary.DistinctVehicles,
		string(perRouteJSON),
		congested,
	)
	return err
}
