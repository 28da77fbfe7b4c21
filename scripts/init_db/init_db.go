package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dbGetEnv("DB_USER", "fleet_user"),
		dbGetEnv("DB_PASSWORD", "fleet_password"),
		dbGetEnv("DB_HOST", "localhost"),
		dbGetEnv("DB_PORT", "5432"),
		dbGetEnv("DB_NAME", "fleet_insight"),
	)

	ctx := context.Background()

	fmt.Println("Connecting to TimescaleDB...")
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure TimescaleDB is running:\n  docker-compose up -d timescaledb", err)
	}
	defer conn.Close(ctx)
	fmt.Println("✓ Connected")

	step1_extensions(ctx, conn)
	step2_insights_table(ctx, conn)
	step3_summaries_table(ctx, conn)
	step4_indexes(ctx, conn)
	step5_verify(ctx, conn)

	fmt.Println("\n✅ Database initialised successfully")
	fmt.Println("   Run next: go run scripts/seed_redis/seed_redis.go")
}

// ─────────────────────────────────────────────────────────────
// Step 1 — Extensions
// ─────────────────────────────────────────────────────────────
func step1_extensions(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 1: Extensions ──────────────────────────")

	// TimescaleDB — required for hypertable
	execOrFatal(ctx, conn,
		"CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;",
		"timescaledb extension",
	)
}

// ─────────────────────────────────────────────────────────────
// Step 2 — vehicle_insights table
// ─────────────────────────────────────────────────────────────
func step2_insights_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 2: vehicle_insights table ──────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS vehicle_insights (

			-- Time column — TimescaleDB partitions data by this.
			-- Carries the source event timestamp, not server time.
			timestamp    TIMESTAMPTZ      NOT NULL,

			-- Identity
			agency       TEXT             NOT NULL,
			vehicle_id   TEXT             NOT NULL,

			-- Classification. Must exactly match domain.InsightKind:
			-- ROUTE_CHANGED | STOPPED_OR_STARTED | SPEED_VIOLATION |
			-- ZONE_ENTERED | ZONE_EXITED | ETA_ESTIMATE
			kind         TEXT             NOT NULL,
			severity     TEXT             NOT NULL,

			-- Kind-specific payload; unused columns stay at their zero value
			route_from   TEXT             NOT NULL DEFAULT '',
			route_to     TEXT             NOT NULL DEFAULT '',
			started      BOOLEAN          NOT NULL DEFAULT false,
			speed_kmh    DOUBLE PRECISION NOT NULL DEFAULT 0,
			limit_kmh    DOUBLE PRECISION NOT NULL DEFAULT 0,
			zone_id      TEXT             NOT NULL DEFAULT '',
			eta_minutes  DOUBLE PRECISION NOT NULL DEFAULT 0,

			CONSTRAINT chk_insight_kind CHECK (
				kind IN ('ROUTE_CHANGED', 'STOPPED_OR_STARTED', 'SPEED_VIOLATION',
				         'ZONE_ENTERED', 'ZONE_EXITED', 'ETA_ESTIMATE')
			),

			CONSTRAINT chk_insight_severity CHECK (
				severity IN ('INFO', 'WARNING')
			)
		);
	`, "vehicle_insights table created")

	// Partition into 7-day chunks; recent-data queries touch one chunk
	execOrFatal(ctx, conn, `
		SELECT create_hypertable(
			'vehicle_insights',
			'timestamp',
			if_not_exists => TRUE
		);
	`, "vehicle_insights converted to hypertable")
}

// ─────────────────────────────────────────────────────────────
// Step 3 — batch_summaries table
// ─────────────────────────────────────────────────────────────
func step3_summaries_table(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 3: batch_summaries table ───────────────")

	execOrFatal(ctx, conn, `
		CREATE TABLE IF NOT EXISTS batch_summaries (

			id                BIGSERIAL   PRIMARY KEY,

			processed_at      TIMESTAMPTZ NOT NULL,
			total_events      INTEGER     NOT NULL,
			distinct_vehicles INTEGER     NOT NULL,

			-- Per-route stats as JSON: {"agency/route": {vehicle_count, avg_speed_kmh, congested}}
			per_route         JSONB,

			congested_routes  TEXT[]
		);
	`, "batch_summaries table created")
}

// ─────────────────────────────────────────────────────────────
// Step 4 — Indexes
// ─────────────────────────────────────────────────────────────
func step4_indexes(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 4: Indexes ─────────────────────────────")

	indexes := []struct {
		name string
		sql  string
		why  string
	}{
		{
			name: "idx_insights_vehicle_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_insights_vehicle_time
				  ON vehicle_insights (agency, vehicle_id, timestamp DESC);`,
			why: "query: insight history for one vehicle",
		},
		{
			name: "idx_insights_kind_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_insights_kind_time
				  ON vehicle_insights (kind, timestamp DESC);`,
			why: "query: all insights of one kind",
		},
		{
			name: "idx_insights_zone",
			sql: `CREATE INDEX IF NOT EXISTS idx_insights_zone
				  ON vehicle_insights (zone_id, timestamp DESC)
				  WHERE zone_id <> '';`,
			why: "query: zone entries/exits per zone (partial index)",
		},
		{
			name: "idx_summaries_time",
			sql: `CREATE INDEX IF NOT EXISTS idx_summaries_time
				  ON batch_summaries (processed_at DESC);`,
			why: "query: recent batch summaries",
		},
	}

	for _, idx := range indexes {
		execOrFatal(ctx, conn, idx.sql,
			fmt.Sprintf("%-40s ← %s", idx.name, idx.why),
		)
	}
}

// ─────────────────────────────────────────────────────────────
// Step 5 — Verify everything was created
// ─────────────────────────────────────────────────────────────
func step5_verify(ctx context.Context, conn *pgx.Conn) {
	fmt.Println("\n── Step 5: Verification ────────────────────────")

	tables := []string{"vehicle_insights", "batch_summaries"}
	for _, table := range tables {
		var exists bool
		err := conn.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil || !exists {
			log.Fatalf("Table %s was not created: %v", table, err)
		}
		fmt.Printf("  ✓ table: %s\n", table)
	}

	var hypertableName string
	err := conn.QueryRow(ctx, `
		SELECT hypertable_name
		FROM timescaledb_information.hypertables
		WHERE hypertable_name = 'vehicle_insights'
	`).Scan(&hypertableName)
	if err != nil {
		log.Fatalf("vehicle_insights is not a hypertable: %v", err)
	}
	fmt.Printf("  ✓ hypertable: %s (time partitioned)\n", hypertableName)

	var indexCount int
	err = conn.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM pg_indexes
		WHERE tablename IN ('vehicle_insights', 'batch_summaries')
		AND indexname LIKE 'idx_%'
	`).Scan(&indexCount)
	if err != nil {
		log.Fatalf("Index check failed: %v", err)
	}
	fmt.Printf("  ✓ indexes created: %d\n", indexCount)
}

// ─────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────

// execOrFatal runs a SQL statement and prints result or exits on error
func execOrFatal(ctx context.Context, conn *pgx.Conn, sql, label string) {
	_, err := conn.Exec(ctx, sql)
	if err != nil {
		log.Fatalf("FAILED — %s\nError: %v\nSQL: %s", label, err, sql)
	}
	fmt.Printf("  ✓ %s\n", label)
}

func dbGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
