// Package sqlite is the single-binary/dev/test Timetable+Reliability
// backend, grounded on the teacher's apps/poller/internal/db package:
// modernc.org/sqlite, WAL mode, a single writer connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
)

// Store wraps a SQLite connection implementing store.Timetable and
// store.Reliability.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath with WAL mode and
// foreign keys enabled, then ensures the schema exists.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite only supports one writer at a time; keep the pool to a
	// single connection to avoid "transaction within a transaction"
	// errors under concurrent writers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			log.Printf("sqlite: warning: failed to set %s: %v", pragma, err)
		}
	}

	s := &Store{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// Conn exposes the underlying *sql.DB for direct SQL access beyond
// store.Timetable/store.Reliability; static data itself is loaded through
// ReplaceStaticData.
func (s *Store) Conn() *sql.DB { return s.conn }

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS stops (
		stop_id TEXT PRIMARY KEY,
		stop_name TEXT NOT NULL,
		stop_lat REAL NOT NULL,
		stop_lon REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		route_short_name TEXT,
		route_long_name TEXT,
		route_type INTEGER
	);
	CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		trip_headsign TEXT,
		direction_id INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_trips_route_service ON trips(route_id, service_id);
	CREATE TABLE IF NOT EXISTS stop_times (
		trip_id TEXT NOT NULL,
		stop_id TEXT NOT NULL,
		stop_sequence INTEGER NOT NULL,
		arrival_time TEXT NOT NULL,
		departure_time TEXT NOT NULL,
		PRIMARY KEY (trip_id, stop_sequence)
	);
	CREATE INDEX IF NOT EXISTS idx_stop_times_stop ON stop_times(stop_id);
	CREATE TABLE IF NOT EXISTS reliability_records (
		route_id TEXT NOT NULL,
		stop_id TEXT NOT NULL,
		bucket TEXT NOT NULL,
		scheduled_departures INTEGER NOT NULL DEFAULT 0,
		observed_departures INTEGER NOT NULL DEFAULT 0,
		total_delay_seconds INTEGER NOT NULL DEFAULT 0,
		cancellation_count INTEGER NOT NULL DEFAULT 0,
		window_start_date TEXT,
		window_end_date TEXT,
		updated_at TEXT,
		PRIMARY KEY (route_id, stop_id, bucket)
	);
	`
	_, err := s.conn.ExecContext(ctx, schema)
	return err
}

// ReplaceStaticData loads a freshly parsed feed inside one transaction:
// truncate stops/trips/stop_times, then bulk insert. Routes are not
// persisted here — nothing downstream of store.Timetable reads route
// metadata beyond the route_id already carried on trips/stop_times.
func (s *Store) ReplaceStaticData(ctx context.Context, data store.StaticData) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM stop_times", "DELETE FROM trips", "DELETE FROM stops"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	stopStmt, err := tx.PrepareContext(ctx, `INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stop insert: %w", err)
	}
	defer stopStmt.Close()
	for _, st := range data.Stops {
		if _, err := stopStmt.ExecContext(ctx, st.ID, st.Name, st.Lat, st.Lon); err != nil {
			return fmt.Errorf("insert stop %s: %w", st.ID, err)
		}
	}

	tripStmt, err := tx.PrepareContext(ctx, `INSERT INTO trips (trip_id, route_id, service_id, trip_headsign, direction_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trip insert: %w", err)
	}
	defer tripStmt.Close()
	for _, tr := range data.Trips {
		if _, err := tripStmt.ExecContext(ctx, tr.ID, tr.RouteID, tr.ServiceID, tr.Headsign, tr.DirectionID); err != nil {
			return fmt.Errorf("insert trip %s: %w", tr.ID, err)
		}
	}

	stStmt, err := tx.PrepareContext(ctx, `INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stop_time insert: %w", err)
	}
	defer stStmt.Close()
	for _, st := range data.StopTimes {
		if _, err := stStmt.ExecContext(ctx, st.TripID, st.StopID, st.StopSequence, st.ArrivalTime, st.DepartureTime); err != nil {
			return fmt.Errorf("insert stop_time %s/%d: %w", st.TripID, st.StopSequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest tx: %w", err)
	}
	return nil
}

func (s *Store) ListStops(ctx context.Context) ([]model.Stop, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops ORDER BY stop_id`)
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
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT t.route_id
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE st.stop_id = ?
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
	rows, err := s.conn.QueryContext(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon
		FROM stops
		WHERE stop_name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY stop_name
		LIMIT ?
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
	rows, err := s.conn.QueryContext(ctx, `
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
	row := s.conn.QueryRowContext(ctx, `
		SELECT first.trip_id
		FROM stop_times first
		JOIN trips t ON t.trip_id = first.trip_id
		JOIN stop_times last ON last.trip_id = first.trip_id AND last.stop_id = ? AND last.stop_sequence > first.stop_sequence
		WHERE t.route_id = ?
		  AND t.service_id = ?
		  AND first.stop_id = ?
		  AND CAST(substr(first.departure_time, 1, 2) AS INTEGER) * 3600
		    + CAST(substr(first.departure_time, 4, 2) AS INTEGER) * 60
		    + CAST(substr(first.departure_time, 7, 2) AS INTEGER) >= ?
		ORDER BY first.departure_time ASC, first.trip_id ASC
		LIMIT 1
	`, q.LastStopID, q.RouteID, q.ServiceDate, q.FirstStopID, q.NotBeforeSec)

	var tripID string
	if err := row.Scan(&tripID); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find earliest trip: %w", err)
	}
	return tripID, true, nil
}

func (s *Store) TripStopTimes(ctx context.Context, tripID string) ([]model.StopTime, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT st.trip_id, t.route_id, t.service_id, st.stop_id, st.stop_sequence, st.arrival_time, st.departure_time
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE st.trip_id = ?
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
	row := s.conn.QueryRowContext(ctx, `SELECT MIN(service_id), MAX(service_id) FROM trips`)
	var min, max sql.NullString
	if err := row.Scan(&min, &max); err != nil {
		return "", "", fmt.Errorf("service id range: %w", err)
	}
	return min.String, max.String, nil
}

func (s *Store) AggregateScheduledDepartures(ctx context.Context, startDate, endDate string) ([]store.ScheduledAgg, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT t.route_id, st.stop_id, t.service_id,
		       CAST(substr(st.departure_time, 1, 2) AS INTEGER) % 24 AS hour,
		       COUNT(*)
		FROM stop_times st JOIN trips t ON t.trip_id = st.trip_id
		WHERE t.service_id BETWEEN ? AND ?
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
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("trip count: %w", err)
	}
	return n, nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reliability_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reliability record count: %w", err)
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, routeID, stopID string, bucket model.TimeBucket) (model.ReliabilityRecord, bool, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at
		FROM reliability_records WHERE route_id = ? AND stop_id = ? AND bucket = ?
	`, routeID, stopID, string(bucket))

	var rec model.ReliabilityRecord
	var bucketStr, updatedAt string
	if err := row.Scan(&rec.RouteID, &rec.StopID, &bucketStr, &rec.ScheduledDepartures, &rec.ObservedDepartures, &rec.TotalDelaySeconds, &rec.CancellationCount, &rec.WindowStartDate, &rec.WindowEndDate, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.ReliabilityRecord{}, false, nil
		}
		return model.ReliabilityRecord{}, false, fmt.Errorf("get reliability record: %w", err)
	}
	rec.Bucket = model.TimeBucket(bucketStr)
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, true, nil
}

func (s *Store) Seed(ctx context.Context, rec model.ReliabilityRecord) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO reliability_records (route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(route_id, stop_id, bucket) DO UPDATE SET
			scheduled_departures = excluded.scheduled_departures,
			observed_departures = excluded.observed_departures,
			total_delay_seconds = excluded.total_delay_seconds,
			cancellation_count = excluded.cancellation_count,
			window_start_date = excluded.window_start_date,
			window_end_date = excluded.window_end_date,
			updated_at = excluded.updated_at
	`, rec.RouteID, rec.StopID, string(rec.Bucket), rec.ScheduledDepartures, rec.ObservedDepartures, rec.TotalDelaySeconds, rec.CancellationCount, rec.WindowStartDate, rec.WindowEndDate, rec.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("seed reliability record: %w", err)
	}
	return nil
}

func (s *Store) Observe(ctx context.Context, routeID, stopID string, bucket model.TimeBucket, scheduledDelta, observedDelta, cancelDelta int, delaySecondsDelta int64, windowEndDate string, updatedAt time.Time) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO reliability_records (route_id, stop_id, bucket, scheduled_departures, observed_departures, total_delay_seconds, cancellation_count, window_start_date, window_end_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(route_id, stop_id, bucket) DO UPDATE SET
			scheduled_departures = scheduled_departures + excluded.scheduled_departures,
			observed_departures = observed_departures + excluded.observed_departures,
			total_delay_seconds = total_delay_seconds + excluded.total_delay_seconds,
			cancellation_count = cancellation_count + excluded.cancellation_count,
			window_end_date = excluded.window_end_date,
			updated_at = excluded.updated_at
	`, routeID, stopID, string(bucket), scheduledDelta, observedDelta, delaySecondsDelta, cancelDelta, windowEndDate, windowEndDate, updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("observe reliability record: %w", err)
	}
	return nil
}

var _ store.Timetable = (*Store)(nil)
var _ store.Reliability = (*Store)(nil)
var _ store.Loader = (*Store)(nil)
