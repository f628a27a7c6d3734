package routing

import (
	"context"
	"testing"
	"time"

	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store/memory"
)

func fixtureEngine(t *testing.T) *Engine {
	t.Helper()
	s := memory.New()
	s.AddStop(model.Stop{ID: "A", Name: "Alpha", Lat: 41.380, Lon: 2.170})
	s.AddStop(model.Stop{ID: "B", Name: "Bravo", Lat: 41.382, Lon: 2.172})
	s.AddStop(model.Stop{ID: "C", Name: "Charlie", Lat: 41.390, Lon: 2.180})

	s.AddTrip(model.Trip{ID: "T1", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
		{StopID: "B", StopSequence: 2, ArrivalTime: "08:10:00", DepartureTime: "08:10:00"},
		{StopID: "C", StopSequence: 3, ArrivalTime: "08:25:00", DepartureTime: "08:25:00"},
	})
	// A later departure on the same route serving the same pair, so step 6
	// has something to advance into.
	s.AddTrip(model.Trip{ID: "T2", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, ArrivalTime: "08:30:00", DepartureTime: "08:30:00"},
		{StopID: "B", StopSequence: 2, ArrivalTime: "08:40:00", DepartureTime: "08:40:00"},
		{StopID: "C", StopSequence: 3, ArrivalTime: "08:55:00", DepartureTime: "08:55:00"},
	})

	ctx := context.Background()
	snap, err := graph.Build(ctx, s, graph.DefaultBuildConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return NewEngine(snap, s, DefaultConfig())
}

func TestFindRoutesUnknownStop(t *testing.T) {
	e := fixtureEngine(t)
	_, err := e.FindRoutes(context.Background(), "NOPE", "C", time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC), 3)
	if err == nil {
		t.Fatal("expected an error for an unknown origin stop")
	}
}

// Invariant 5: |R| <= K, no duplicate trip-id signatures, every trip leg's
// endpoints appear in its trip's stop-time table.
func TestFindRoutesBasicInvariants(t *testing.T) {
	e := fixtureEngine(t)
	results, err := e.FindRoutes(context.Background(), "A", "C", time.Date(2026, 2, 9, 7, 30, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one route A->C")
	}
	if len(results) > 3 {
		t.Fatalf("|R| = %d, want <= 3", len(results))
	}

	seenSigs := map[string]bool{}
	for _, r := range results {
		sig := model.Signature(r.Legs)
		if seenSigs[sig] {
			t.Errorf("duplicate signature %q across results", sig)
		}
		seenSigs[sig] = true

		if !passesFilters(r.Legs, e.Config) {
			t.Errorf("result legs do not satisfy filters: %+v", r.Legs)
		}

		for _, leg := range r.Legs {
			if leg.Kind != model.LegTrip {
				continue
			}
			stopTimes, err := e.Store.TripStopTimes(context.Background(), leg.TripID)
			if err != nil {
				t.Fatalf("TripStopTimes: %v", err)
			}
			if !hasStop(stopTimes, leg.FromStopID) || !hasStop(stopTimes, leg.ToStopID) {
				t.Errorf("trip %s stop_time table missing leg endpoints %s/%s", leg.TripID, leg.FromStopID, leg.ToStopID)
			}
		}
	}
}

func hasStop(stopTimes []model.StopTime, stopID string) bool {
	for _, st := range stopTimes {
		if st.StopID == stopID {
			return true
		}
	}
	return false
}
