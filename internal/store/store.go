// Package store defines the abstract read/write contract the routing core
// uses to reach the relational timetable and reliability data (component B
// of the design). Concrete backends live in store/postgres, store/sqlite,
// and store/memory; the core never imports a driver package directly.
package store

import (
	"context"
	"time"

	"github.com/dcmshi/transit-planner/internal/model"
)

// Timetable is the abstract read contract over stops, trips, stop_times,
// and calendars. All methods are safe for concurrent use.
type Timetable interface {
	// ListStops returns every stop in the store.
	ListStops(ctx context.Context) ([]model.Stop, error)

	// RoutesServedByStop returns the sorted, unique route_ids that stop
	// at stopID, for search_stops.
	RoutesServedByStop(ctx context.Context, stopID string) ([]string, error)

	// SearchStops does a case-insensitive substring match on stop_name,
	// returning up to limit results.
	SearchStops(ctx context.Context, query string, limit int) ([]model.StopResult, error)

	// StreamStopTimes invokes fn once per stop_time, ordered by
	// (trip_id, stop_sequence), joined with the owning trip's route_id
	// and service_id. Implementations must support tables far too large
	// to materialize in memory; fn returning an error aborts the stream.
	StreamStopTimes(ctx context.Context, fn func(model.StopTime) error) error

	// FindEarliestTrip returns the earliest trip_id on routeID, running
	// on serviceDate, that departs firstStopID at or after
	// notBeforeSec and also stops at lastStopID at a strictly greater
	// stop_sequence. ok is false if no such trip exists.
	FindEarliestTrip(ctx context.Context, q TripQuery) (tripID string, ok bool, err error)

	// TripStopTimes returns the full ordered stop_time table for one
	// trip_id.
	TripStopTimes(ctx context.Context, tripID string) ([]model.StopTime, error)

	// ServiceIDRange returns the min and max service_id found across
	// trips, treated as YYYYMMDD date strings.
	ServiceIDRange(ctx context.Context) (min, max string, err error)

	// AggregateScheduledDepartures sums scheduled departures by
	// (route_id, stop_id, service_date, hour-of-day) across
	// [startDate, endDate] inclusive, for reliability seeding.
	AggregateScheduledDepartures(ctx context.Context, startDate, endDate string) ([]ScheduledAgg, error)

	// TripCount returns the number of materialized trips currently
	// loaded, for the health endpoint.
	TripCount(ctx context.Context) (int, error)
}

// TripQuery parameterizes FindEarliestTrip.
type TripQuery struct {
	RouteID      string
	ServiceDate  string // YYYYMMDD
	FirstStopID  string
	LastStopID   string
	NotBeforeSec int
}

// ScheduledAgg is one row of the reliability-seed aggregation.
type ScheduledAgg struct {
	RouteID     string
	StopID      string
	ServiceDate string // YYYYMMDD
	HourOfDay   int    // departure hour mod 24
	Count       int
}

// StaticData is the full timetable snapshot a StaticIngester produces from
// one parsed GTFS feed, already expanded so Trip.ServiceID is a concrete
// YYYYMMDD date (calendar.txt/calendar_dates.txt expansion is an ingest-time
// concern; the store and everything downstream only ever see dates).
type StaticData struct {
	Stops     []model.Stop
	Routes    []model.Route
	Trips     []model.Trip
	StopTimes []model.StopTime
}

// Loader is the narrow write boundary a StaticIngester uses to publish a
// freshly parsed feed: replace the whole timetable atomically (from the
// caller's perspective) so route-finding never observes a half-loaded feed.
type Loader interface {
	ReplaceStaticData(ctx context.Context, data StaticData) error
}

// Reliability is the abstract read/write contract over reliability
// records (the write half of component F; component B lists it as
// "upsert reliability record").
type Reliability interface {
	// Get returns the most recent record for (routeID, stopID, bucket).
	// ok is false if none exists.
	Get(ctx context.Context, routeID, stopID string, bucket model.TimeBucket) (rec model.ReliabilityRecord, ok bool, err error)

	// Seed overwrites (or creates) the record for
	// (rec.RouteID, rec.StopID, rec.Bucket) wholesale — used by
	// seed_from_static in overwrite mode, and for first-time creation
	// in fill_gaps_only mode.
	Seed(ctx context.Context, rec model.ReliabilityRecord) error

	// Observe increments the counters for (routeID, stopID, bucket),
	// creating the record if absent, and advances WindowEndDate/UpdatedAt.
	// Concurrent Observe calls for the same key must serialize.
	Observe(ctx context.Context, routeID, stopID string, bucket model.TimeBucket, scheduledDelta, observedDelta, cancelDelta int, delaySecondsDelta int64, windowEndDate string, updatedAt time.Time) error

	// RecordCount returns the number of reliability records currently
	// stored, for the health endpoint.
	RecordCount(ctx context.Context) (int, error)
}
