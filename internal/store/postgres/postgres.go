// Package postgres is the production Timetable+Reliability backend,
// grounded on the teacher's apps/api/repository/postgres.go: a tuned
// pgxpool.Pool, context-scoped queries, errors wrapped with fmt.Errorf.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
)

// Store wraps a pgxpool.Pool implementing store.Timetable and
// store.Reliability.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses databaseURL, tunes the pool for a read-heavy routing
// workload, and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// Routing is read-heavy per request; the reliability observer and
	// scheduler are the only regular writers, so a modest pool covers
	// concurrent request-path reads plus background jobs.
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// ReplaceStaticData loads a freshly parsed feed inside one transaction,
// using pgx's CopyFrom for the bulk inserts — stop_times on a real network
// commonly runs past a million rows, where per-row INSERTs would dominate
// ingest latency.
func (s *Store) ReplaceStaticData(ctx context.Context, data store.StaticData) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{"DELETE FROM stop_times", "DELETE FROM trips", "DELETE FROM stops"} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"stops"},
		[]string{"stop_id", "stop_name", "stop_lat", "stop_lon"},
		pgx.CopyFromSlice(len(data.Stops), func(i int) ([]any, error) {
			st := data.Stops[i]
			return []any{st.ID, st.Name, st.Lat, st.Lon}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy stops: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"trips"},
		[]string{"trip_id", "route_id", "service_id", "trip_headsign", "direction_id"},
		pgx.CopyFromSlice(len(data.Trips), func(i int) ([]any, error) {
			tr := data.Trips[i]
			return []any{tr.ID, tr.RouteID, tr.ServiceID, tr.Headsign, tr.DirectionID}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy trips: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"stop_times"},
		[]string{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"},
		pgx.CopyFromSlice(len(data.StopTimes), func(i int) ([]any, error) {
			st := data.StopTimes[i]
			return []any{st.TripID, st.StopID, st.StopSequence, st.ArrivalTime, st.DepartureTime}, nil
		}),
	); err != nil {
		return fmt.Errorf("copy stop_times: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ingest tx: %w", err)
	}
	return nil
}

func (s *Store) ListStops(ctx context.Context) ([]model.Stop, error) {
	rows, err := s.pool.Query(ctx, `SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops ORDER BY stop_id`)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	defer rows.Close()

	var out []model.Stop
	for rows.Next() {
		var st model.Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) RoutesServedByStop(ctx context.Context, stopID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT t.route_id
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE st.stop_id = $1
		ORDER BY t.route_id
	`, stopID)
	if err != nil {
		return nil, fmt.Errorf("routes served by stop: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SearchStops(ctx context.Context, query string, limit int) ([]model.StopResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE stop_name ILIKE '%' || $1 || '%'
		ORDER BY stop_name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search stops: %w", err)
	}
	defer rows.Close()

	var out []model.StopResult
	for rows.Next() {
		var sr model.StopResult
		if err := rows.Scan(&sr.StopID, &sr.StopName, &sr.Lat, &sr.Lon); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		routes, err := s.RoutesServedByStop(ctx, out[i].StopID)
		if err != nil {
			return nil, err
		}
		out[i].RoutesServed = routes
	}
	return out, nil
}

func (s *Store) StreamStopTimes(ctx context.Context, fn func(model.StopTime) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT st.trip_id, t.route_id, t.service_id, st.stop_id, st.stop_sequence, st.arrival_time, st.departure_time
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		ORDER BY st.trip_id, st.stop_sequence
	`)
	if err != nil {
		return fmt.Errorf("stream stop_times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.StopTime
		if err := rows.Scan(&st.TripID, &st.RouteID, &st.ServiceID, &st.StopID, &st.StopSequence, &st.ArrivalTime, &st.DepartureTime); err != nil {
			return fmt.Errorf("scan stop_time: %w", err)
		}
		if err := fn(st); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) FindEarliestTrip(ctx context.Context, q store.TripQuery) (string, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT first.trip_id
		FROM stop_times first
		JOIN trips t ON t.trip_id = first.trip_id
		JOIN stop_times last ON last.trip_id = first.trip_id AND last.stop_id = $1 AND last.stop_sequence > first.stop_sequence
		WHERE t.route_id = $2
		  AND t.service_id = $3
		  AND first.stop_id = $4
		  AND (split_part(first.departure_time, ':', 1)::int * 3600
		     + split_part(first.departure_time, ':', 2)::int * 60
		     + split_part(first.departure_time, ':', 3)::int) >= $5
		ORDER BY first.departure_time ASC, first.trip_id ASC
		LIMIT 1
	`, q.LastStopID, q.RouteID, q.ServiceDate, q.FirstStopID, q.NotBeforeSec)

	var tripID string
	if err := row.Scan(&tripID); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find earliest trip: %w", err)
	}
	return tripID, true, nil
}

func (s *Store) TripStopTimes(ctx context.Context, tripID string) ([]model.StopTime, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.trip_id, t.route_id, t.service_id, st.stop_id, st.stop_sequence, st.arrival_time, st.departure_time
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE st.trip_id = $1
		ORDER BY st.stop_sequence
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("trip stop_times: %w", err)
	}
	defer rows.Close()

	var out []model.StopTime
	for rows.Next() {
		var st model.StopTime
		if err := rows.Scan(&st.TripID, &st.RouteID, &st.ServiceID, &st.StopID, &st.StopSequence, &st.ArrivalTime, &st.DepartureTime); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ServiceIDRange(ctx context.Context) (string, string, error) {
	row := s.pool.QueryRow(ctx, `SELECT MIN(service_id), MAX(service_id) FROM trips`)
	var min, max *string
	if err := row.Scan(&min, &max); err != nil {
		return "", "", fmt.Errorf("service id range: %w", err)
	}
	if min == nil || max == nil {
		return "", "", nil
	}
	return *min, *max, nil
}

func (s *Store) AggregateScheduledDepartures(ctx context.Context, startDate, endDate string) ([]store.ScheduledAgg, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.route_id, st.stop_id, t.service_id,
		       (split_part(st.departure_time, ':', 1)::int % 24) AS hour,
		       COUNT(*)
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE t.service_id BETWEEN $1 AND $2
		GROUP BY t.route_id, st.stop_id, t.service_id, hour
		ORDER BY t.route_id, st.stop_id, t.service_id
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("aggregate scheduled departures: %w", err)
	}
	defer rows.Close()

	var out []store.ScheduledAgg
	for rows.Next() {
		var agg store.ScheduledAgg
		if err := rows.Scan(&agg.RouteID, &agg.StopID, &agg.ServiceDate, &agg.HourOfDay, &agg.Count); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (s *Store) TripCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("trip count: %w", err)
	}
	return n, nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reliability_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reliability record count: %w", err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, routeID, stopID string, bucket model.TimeBucket) (model.ReliabilityRecord, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at
		FROM reliability_records WHERE route_id = $1 AND stop_id = $2 AND bucket = $3
	`, routeID, stopID, string(bucket))

	var rec model.ReliabilityRecord
	var bucketStr string
	if err := row.Scan(&rec.RouteID, &rec.StopID, &bucketStr, &rec.ScheduledDepartures, &rec.ObservedDepartures, &rec.TotalDelaySeconds, &rec.CancellationCount, &rec.WindowStartDate, &rec.WindowEndDate, &rec.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.ReliabilityRecord{}, false, nil
		}
		return model.ReliabilityRecord{}, false, fmt.Errorf("get reliability record: %w", err)
	}
	rec.Bucket = model.TimeBucket(bucketStr)
	return rec, true, nil
}

func (s *Store) Seed(ctx context.Context, rec model.ReliabilityRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reliability_records (route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (route_id, stop_id, bucket) DO UPDATE SET
			scheduled_departures = excluded.scheduled_departures,
			observed_departures = excluded.observed_departures,
			total_delay_seconds = excluded.total_delay_seconds,
			cancellation_count = excluded.cancellation_count,
			window_start_date = excluded.window_start_date,
			window_end_date = excluded.window_end_date,
			updated_at = excluded.updated_at
	`, rec.RouteID, rec.StopID, string(rec.Bucket), rec.ScheduledDepartures, rec.ObservedDepartures, rec.TotalDelaySeconds, rec.CancellationCount, rec.WindowStartDate, rec.WindowEndDate, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("seed reliability record: %w", err)
	}
	return nil
}

// Observe relies on Postgres row-level locking (the UPDATE ... SET x = x +
// $n upsert below takes a row lock for the duration of the statement) to
// serialize concurrent writers for the same key, per spec's
// single-writer-per-key requirement.
func (s *Store) Observe(ctx context.Context, routeID, stopID string, bucket model.TimeBucket, scheduledDelta, observedDelta, cancelDelta int, delaySecondsDelta int64, windowEndDate string, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reliability_records (route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9)
		ON CONFLICT (route_id, stop_id, bucket) DO UPDATE SET
			scheduled_departures = reliability_records.scheduled_departures + excluded.scheduled_departures,
			observed_departures = reliability_records.observed_departures + excluded.observed_departures,
			total_delay_seconds = reliability_records.total_delay_seconds + excluded.total_delay_seconds,
			cancellation_count = reliability_records.cancellation_count + excluded.cancellation_count,
			window_end_date = excluded.window_end_date,
			updated_at = excluded.updated_at
	`, routeID, stopID, string(bucket), scheduledDelta, observedDelta, delaySecondsDelta, cancelDelta, windowEndDate, updatedAt)
	if err != nil {
		return fmt.Errorf("observe reliability record: %w", err)
	}
	return nil
}

var _ store.Timetable = (*Store)(nil)
var _ store.Reliability = (*Store)(nil)
var _ store.Loader = (*Store)(nil)
