package graph

import (
	"context"
	"testing"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store/memory"
)

func fixtureStore() *memory.Store {
	s := memory.New()
	s.AddStop(model.Stop{ID: "A", Name: "Alpha", Lat: 41.38, Lon: 2.17})
	s.AddStop(model.Stop{ID: "B", Name: "Bravo", Lat: 41.381, Lon: 2.171})
	s.AddStop(model.Stop{ID: "C", Name: "Charlie", Lat: 41.40, Lon: 2.20})

	s.AddTrip(model.Trip{ID: "T1", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
		{StopID: "B", StopSequence: 2, ArrivalTime: "08:10:00", DepartureTime: "08:10:30"},
		{StopID: "C", StopSequence: 3, ArrivalTime: "08:25:00", DepartureTime: "08:25:00"},
	})
	// A slower second trip on the same route/pair: the builder must keep
	// the minimum-travel candidate, not the latest one streamed.
	s.AddTrip(model.Trip{ID: "T2", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, ArrivalTime: "09:00:00", DepartureTime: "09:00:00"},
		{StopID: "B", StopSequence: 2, ArrivalTime: "09:20:00", DepartureTime: "09:20:00"},
	})
	return s
}

func TestBuildGraphDedupKeepsMinTravel(t *testing.T) {
	ctx := context.Background()
	snap, err := Build(ctx, fixtureStore(), DefaultBuildConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	edges := snap.TripEdgesBetween("A", "B")
	if len(edges) != 1 {
		t.Fatalf("expected 1 trip edge A->B, got %d", len(edges))
	}
	// T1: 08:00:00 -> 08:10:00 = 600s. T2: 09:00:00 -> 09:20:00 = 1200s.
	if edges[0].TravelSeconds != 600 {
		t.Errorf("expected min travel_seconds=600, got %d", edges[0].TravelSeconds)
	}
	if edges[0].TripID != "T1" {
		t.Errorf("expected winning edge from T1, got %s", edges[0].TripID)
	}
}

func TestBuildGraphEmptyTimetable(t *testing.T) {
	snap, err := Build(context.Background(), memory.New(), DefaultBuildConfig())
	if err != nil {
		t.Fatalf("Build on empty timetable should not fail: %v", err)
	}
	if snap.NodeCount() != 0 || snap.TripEdgeCount() != 0 {
		t.Errorf("expected empty snapshot, got %d nodes, %d trip edges", snap.NodeCount(), snap.TripEdgeCount())
	}
}

// Invariant 1: every trip edge has travel_seconds >= 0, (u,v,route_id) is
// unique, and every walk edge respects MaxWalkMetres.
func TestGraphInvariants(t *testing.T) {
	ctx := context.Background()
	cfg := BuildConfig{MaxWalkMetres: 500, WalkSpeedKPH: 4.5}
	snap, err := Build(ctx, fixtureStore(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	seen := map[edgeKey]bool{}
	for k, e := range snap.tripEdges {
		if e.TravelSeconds < 0 {
			t.Errorf("negative travel_seconds for %+v", k)
		}
		if seen[k] {
			t.Errorf("duplicate (u,v,route_id) key %+v", k)
		}
		seen[k] = true
	}
	for _, e := range snap.walkEdges {
		if e.DistanceM > cfg.MaxWalkMetres {
			t.Errorf("walk edge %v exceeds MaxWalkMetres: %f", e, e.DistanceM)
		}
		if e.From == e.To {
			t.Errorf("walk edge with From==To: %v", e)
		}
	}
}

func TestWalkEdgesWithinRadius(t *testing.T) {
	snap, err := Build(context.Background(), fixtureStore(), DefaultBuildConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// A and B are ~140m apart; C is ~3.3km from both, beyond the 500m radius.
	if _, ok := snap.WalkEdgeBetween("A", "B"); !ok {
		t.Error("expected walk edge between A and B within 500m radius")
	}
	if _, ok := snap.WalkEdgeBetween("A", "C"); ok {
		t.Error("did not expect walk edge between A and C beyond 500m radius")
	}
}
