package routing

import (
	"testing"

	"github.com/dcmshi/transit-planner/internal/model"
)

// S4 — zero-second-leg allowed: GTFS 1-minute rounding can produce a trip
// leg whose departure and arrival are identical.
func TestPassesFiltersZeroSecondLegAllowed(t *testing.T) {
	legs := []model.Leg{
		{Kind: model.LegTrip, RouteID: "R1", TripID: "T1", DepartureTime: "08:00:00", ArrivalTime: "08:00:00", TravelSeconds: 0},
	}
	if !passesFilters(legs, DefaultConfig()) {
		t.Error("expected zero-second leg to pass filters")
	}
}

// S5 — tight transfer rejected: two trip legs on different route_ids with
// a 5-minute gap, under MIN_TRANSFER_MINUTES=10.
func TestPassesFiltersTightTransferRejected(t *testing.T) {
	legs := []model.Leg{
		{Kind: model.LegTrip, RouteID: "R1", TripID: "T1", DepartureTime: "08:00:00", ArrivalTime: "08:30:00"},
		{Kind: model.LegTrip, RouteID: "R2", TripID: "T2", DepartureTime: "08:35:00", ArrivalTime: "09:00:00"},
	}
	cfg := Config{MaxRoutes: 5, MaxTransfers: 2, MinTransferMinutes: 10}
	if passesFilters(legs, cfg) {
		t.Error("expected tight 5-minute transfer to be rejected under MinTransferMinutes=10")
	}
}

func TestPassesFiltersNoTripLegsRejected(t *testing.T) {
	legs := []model.Leg{
		{Kind: model.LegWalk, DistanceM: 200, WalkSeconds: 160},
	}
	if passesFilters(legs, DefaultConfig()) {
		t.Error("expected route with no trip legs to be rejected")
	}
}

func TestPassesFiltersTooManyTransfersRejected(t *testing.T) {
	legs := []model.Leg{
		{Kind: model.LegTrip, RouteID: "R1", TripID: "T1", DepartureTime: "08:00:00", ArrivalTime: "08:20:00"},
		{Kind: model.LegTrip, RouteID: "R2", TripID: "T2", DepartureTime: "08:35:00", ArrivalTime: "08:55:00"},
		{Kind: model.LegTrip, RouteID: "R3", TripID: "T3", DepartureTime: "09:10:00", ArrivalTime: "09:30:00"},
		{Kind: model.LegTrip, RouteID: "R4", TripID: "T4", DepartureTime: "09:45:00", ArrivalTime: "10:00:00"},
	}
	cfg := Config{MaxRoutes: 5, MaxTransfers: 2, MinTransferMinutes: 10}
	if passesFilters(legs, cfg) {
		t.Error("expected 3 transfers to exceed MaxTransfers=2")
	}
}

// S6 — wall-clock travel with long layover: total_travel_seconds spans
// first trip departure to last trip arrival regardless of a walk leg or
// layover in between; transfers counts only route_id changes.
func TestAggregatesWallClockWithLongLayover(t *testing.T) {
	legs := []model.Leg{
		{Kind: model.LegTrip, RouteID: "R1", TripID: "T1", DepartureTime: "09:07:00", ArrivalTime: "09:50:00"},
		{Kind: model.LegWalk, DistanceM: 300, WalkSeconds: 240},
		{Kind: model.LegTrip, RouteID: "R1", TripID: "T2", DepartureTime: "15:20:00", ArrivalTime: "15:46:00"},
		{Kind: model.LegTrip, RouteID: "R2", TripID: "T3", DepartureTime: "16:51:00", ArrivalTime: "17:50:00"},
	}
	total, transfers, walkM := aggregates(legs)

	const wantTotal = 31380 // 17:50:00 - 09:07:00 in seconds
	if total != wantTotal {
		t.Errorf("total_travel_seconds = %d, want %d", total, wantTotal)
	}
	if transfers != 1 {
		t.Errorf("transfers = %d, want 1 (only R1->R2 counts as a change)", transfers)
	}
	if walkM != 300 {
		t.Errorf("total_walk_metres = %v, want 300", walkM)
	}
}

// S7 — dedup collapses same-trip routes: two candidates riding the same
// trip_id produce the same signature.
func TestSignatureSetCollapsesDuplicates(t *testing.T) {
	legsA := []model.Leg{
		{Kind: model.LegTrip, TripID: "T1"},
		{Kind: model.LegWalk},
		{Kind: model.LegTrip, TripID: "T1"},
	}
	legsB := []model.Leg{
		{Kind: model.LegTrip, TripID: "T1"},
	}

	seen := signatureSet{}
	if seen.seen(legsA) {
		t.Fatal("first candidate should not be seen yet")
	}
	seen.record(legsA)
	if !seen.seen(legsB) {
		t.Error("expected legsB to share legsA's collapsed signature and be rejected as a duplicate")
	}
}
