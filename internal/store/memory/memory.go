// Package memory is an in-process implementation of store.Timetable and
// store.Reliability, used by unit tests across the routing core and by the
// testsupport fixture helpers. Grounded on tidbyt-gtfs's
// storage.MemoryStorage: plain maps/slices, all guarded by a single mutex
// that every method takes.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// Store is an in-memory Timetable + Reliability backend.
type Store struct {
	mu sync.Mutex

	stops     map[string]model.Stop
	trips     map[string]model.Trip
	stopTimes map[string][]model.StopTime // keyed by trip_id, ordered by stop_sequence

	reliability map[reliabilityKey]model.ReliabilityRecord
}

type reliabilityKey struct {
	routeID string
	stopID  string
	bucket  model.TimeBucket
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		stops:       make(map[string]model.Stop),
		trips:       make(map[string]model.Trip),
		stopTimes:   make(map[string][]model.StopTime),
		reliability: make(map[reliabilityKey]model.ReliabilityRecord),
	}
}

// AddStop registers a stop (test/fixture helper).
func (s *Store) AddStop(st model.Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops[st.ID] = st
}

// AddTrip registers a trip plus its ordered stop_times (test/fixture
// helper). Recomputes RouteID/ServiceID on each StopTime from the trip so
// callers can pass bare StopTime{StopID, StopSequence, ArrivalTime,
// DepartureTime} literals.
func (s *Store) AddTrip(trip model.Trip, stopTimes []model.StopTime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = trip
	enriched := make([]model.StopTime, len(stopTimes))
	for i, st := range stopTimes {
		st.TripID = trip.ID
		st.RouteID = trip.RouteID
		st.ServiceID = trip.ServiceID
		enriched[i] = st
	}
	sort.Slice(enriched, func(i, j int) bool { return enriched[i].StopSequence < enriched[j].StopSequence })
	s.stopTimes[trip.ID] = enriched
}

// ReplaceStaticData discards every stop/trip/stop_time and loads data in
// its place, holding the lock for the whole swap so no reader observes a
// partially-replaced timetable.
func (s *Store) ReplaceStaticData(ctx context.Context, data store.StaticData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stops := make(map[string]model.Stop, len(data.Stops))
	for _, st := range data.Stops {
		stops[st.ID] = st
	}

	trips := make(map[string]model.Trip, len(data.Trips))
	for _, tr := range data.Trips {
		trips[tr.ID] = tr
	}

	byTrip := make(map[string][]model.StopTime)
	for _, st := range data.StopTimes {
		byTrip[st.TripID] = append(byTrip[st.TripID], st)
	}
	for tripID := range byTrip {
		sort.Slice(byTrip[tripID], func(i, j int) bool {
			return byTrip[tripID][i].StopSequence < byTrip[tripID][j].StopSequence
		})
	}

	s.stops = stops
	s.trips = trips
	s.stopTimes = byTrip
	return nil
}

func (s *Store) ListStops(ctx context.Context) ([]model.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Stop, 0, len(s.stops))
	for _, st := range s.stops {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RoutesServedByStop(ctx context.Context, stopID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	for tripID, sts := range s.stopTimes {
		for _, st := range sts {
			if st.StopID == stopID {
				seen[s.trips[tripID].RouteID] = true
				break
			}
		}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SearchStops(ctx context.Context, query string, limit int) ([]model.StopResult, error) {
	s.mu.Lock()
	stops := make([]model.Stop, 0, len(s.stops))
	for _, st := range s.stops {
		stops = append(stops, st)
	}
	s.mu.Unlock()

	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })

	q := strings.ToLower(query)
	var out []model.StopResult
	for _, st := range stops {
		if !strings.Contains(strings.ToLower(st.Name), q) {
			continue
		}
		routes, _ := s.RoutesServedByStop(ctx, st.ID)
		out = append(out, model.StopResult{
			StopID:       st.ID,
			StopName:     st.Name,
			Lat:          st.Lat,
			Lon:          st.Lon,
			RoutesServed: routes,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) StreamStopTimes(ctx context.Context, fn func(model.StopTime) error) error {
	s.mu.Lock()
	tripIDs := make([]string, 0, len(s.stopTimes))
	for id := range s.stopTimes {
		tripIDs = append(tripIDs, id)
	}
	sort.Strings(tripIDs)
	var all []model.StopTime
	for _, id := range tripIDs {
		all = append(all, s.stopTimes[id]...)
	}
	s.mu.Unlock()

	for _, st := range all {
		if err := fn(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) FindEarliestTrip(ctx context.Context, q store.TripQuery) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bestTrip string
	bestDep := -1
	for tripID, trip := range s.trips {
		if trip.RouteID != q.RouteID || trip.ServiceID != q.ServiceDate {
			continue
		}
		sts := s.stopTimes[tripID]
		firstIdx, lastIdx := -1, -1
		for i, st := range sts {
			if st.StopID == q.FirstStopID && firstIdx == -1 {
				firstIdx = i
			}
			if st.StopID == q.LastStopID {
				lastIdx = i
			}
		}
		if firstIdx == -1 || lastIdx == -1 || lastIdx <= firstIdx {
			continue
		}
		dep := timeutil.ParseHMS(sts[firstIdx].DepartureTime)
		if dep < q.NotBeforeSec {
			continue
		}
		if bestTrip == "" || dep < bestDep || (dep == bestDep && tripID < bestTrip) {
			bestTrip, bestDep = tripID, dep
		}
	}
	if bestTrip == "" {
		return "", false, nil
	}
	return bestTrip, true, nil
}

func (s *Store) TripStopTimes(ctx context.Context, tripID string) ([]model.StopTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sts := s.stopTimes[tripID]
	out := make([]model.StopTime, len(sts))
	copy(out, sts)
	return out, nil
}

func (s *Store) ServiceIDRange(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var min, max string
	for _, trip := range s.trips {
		if min == "" || trip.ServiceID < min {
			min = trip.ServiceID
		}
		if max == "" || trip.ServiceID > max {
			max = trip.ServiceID
		}
	}
	return min, max, nil
}

func (s *Store) AggregateScheduledDepartures(ctx context.Context, startDate, endDate string) ([]store.ScheduledAgg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		routeID, stopID, date string
		hour                  int
	}
	counts := map[key]int{}
	for tripID, sts := range s.stopTimes {
		trip := s.trips[tripID]
		if trip.ServiceID < startDate || trip.ServiceID > endDate {
			continue
		}
		for _, st := range sts {
			hour := (timeutil.ParseHMS(st.DepartureTime) / 3600) % 24
			k := key{trip.RouteID, st.StopID, trip.ServiceID, hour}
			counts[k]++
		}
	}
	out := make([]store.ScheduledAgg, 0, len(counts))
	for k, n := range counts {
		out = append(out, store.ScheduledAgg{
			RouteID:     k.routeID,
			StopID:      k.stopID,
			ServiceDate: k.date,
			HourOfDay:   k.hour,
			Count:       n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteID != out[j].RouteID {
			return out[i].RouteID < out[j].RouteID
		}
		if out[i].StopID != out[j].StopID {
			return out[i].StopID < out[j].StopID
		}
		return out[i].ServiceDate < out[j].ServiceDate
	})
	return out, nil
}

func (s *Store) TripCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips), nil
}

func (s *Store) RecordCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reliability), nil
}

func (s *Store) Get(ctx context.Context, routeID, stopID string, bucket model.TimeBucket) (model.ReliabilityRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reliability[reliabilityKey{routeID, stopID, bucket}]
	return rec, ok, nil
}

func (s *Store) Seed(ctx context.Context, rec model.ReliabilityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reliability[reliabilityKey{rec.RouteID, rec.StopID, rec.Bucket}] = rec
	return nil
}

func (s *Store) Observe(ctx context.Context, routeID, stopID string, bucket model.TimeBucket, scheduledDelta, observedDelta, cancelDelta int, delaySecondsDelta int64, windowEndDate string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reliabilityKey{routeID, stopID, bucket}
	rec := s.reliability[k]
	rec.RouteID, rec.StopID, rec.Bucket = routeID, stopID, bucket
	rec.ScheduledDepartures += scheduledDelta
	rec.ObservedDepartures += observedDelta
	rec.CancellationCount += cancelDelta
	rec.TotalDelaySeconds += delaySecondsDelta
	if rec.WindowStartDate == "" {
		rec.WindowStartDate = windowEndDate
	}
	rec.WindowEndDate = windowEndDate
	rec.UpdatedAt = updatedAt
	s.reliability[k] = rec
	return nil
}

var _ store.Timetable = (*Store)(nil)
var _ store.Reliability = (*Store)(nil)
var _ store.Loader = (*Store)(nil)
