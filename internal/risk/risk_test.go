package risk

import (
	"testing"
	"time"

	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/model"
)

// S2 — cancellation short-circuit.
func TestCombineCancellationShortCircuit(t *testing.T) {
	ls := live.NewStore()
	ls.SwapTripUpdates(map[string]model.LiveTripUpdate{
		"T1": {TripID: "T1", RouteID: "R1", IsCancelled: true},
	})

	in := Inputs{
		RouteID:         "R1",
		StopID:          "S1",
		TripID:          "T1",
		DepartureTime:   "14:00:00",
		QueryDT:         time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC),
		HistoricalPrior: 0.9,
	}
	got := Combine(in, ls)
	if got.RiskScore != 1.0 {
		t.Errorf("risk_score = %v, want 1.0", got.RiskScore)
	}
	if got.RiskLabel != model.RiskHigh {
		t.Errorf("risk_label = %v, want High", got.RiskLabel)
	}
	if !got.IsCancelled {
		t.Error("is_cancelled = false, want true")
	}
}

// S3 — stacked modifiers: late-evening + weekend.
func TestCombineStackedModifiers(t *testing.T) {
	ls := live.NewStore()

	in := Inputs{
		RouteID:         "R1",
		StopID:          "S1",
		TripID:          "T9",
		DepartureTime:   "22:30:00",
		QueryDT:         time.Date(2026, 2, 7, 22, 0, 0, 0, time.UTC), // Saturday
		HistoricalPrior: 0.8,
	}
	got := Combine(in, ls)

	const want = 0.28
	if diff := got.RiskScore - want; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("risk_score = %v, want ~%v", got.RiskScore, want)
	}
	if got.RiskLabel != model.RiskLow {
		t.Errorf("risk_label = %v, want Low", got.RiskLabel)
	}
	foundLateEvening, foundWeekend := false, false
	for _, m := range got.Modifiers {
		if m == "late-evening" {
			foundLateEvening = true
		}
		if m == "weekend" {
			foundWeekend = true
		}
	}
	if !foundLateEvening || !foundWeekend {
		t.Errorf("modifiers = %v, want late-evening and weekend present", got.Modifiers)
	}
}

func TestCombineAlertModifier(t *testing.T) {
	ls := live.NewStore()
	ls.SwapAlerts([]model.ServiceAlert{
		{ID: "A1", Header: "Signal failure", AffectedRouteIDs: []string{"R1"}},
	})

	in := Inputs{
		RouteID:         "R1",
		StopID:          "S1",
		TripID:          "T1",
		DepartureTime:   "10:00:00",
		QueryDT:         time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), // Monday
		HistoricalPrior: 1.0,
	}
	got := Combine(in, ls)
	if got.RiskScore < bumpAlert-0.0001 || got.RiskScore > bumpAlert+0.0001 {
		t.Errorf("risk_score = %v, want ~%v", got.RiskScore, bumpAlert)
	}
	if len(got.Modifiers) != 1 || got.Modifiers[0] != "Service alert: Signal failure" {
		t.Errorf("modifiers = %v", got.Modifiers)
	}
}

func TestCombineMissingVehicleWithinLookahead(t *testing.T) {
	ls := live.NewStore()

	in := Inputs{
		RouteID:         "R1",
		StopID:          "S1",
		TripID:          "T1",
		DepartureTime:   "09:10:00",
		QueryDT:         time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), // 10 min until departure
		HistoricalPrior: 1.0,
	}
	got := Combine(in, ls)
	if got.RiskScore < bumpMissingVehicle-0.0001 {
		t.Errorf("expected missing-vehicle bump, got risk_score=%v modifiers=%v", got.RiskScore, got.Modifiers)
	}

	ls.SwapVehiclePositions(map[string]model.VehiclePosition{"T1": {TripID: "T1"}})
	got2 := Combine(in, ls)
	if got2.RiskScore >= got.RiskScore {
		t.Errorf("expected lower risk once vehicle position known: before=%v after=%v", got.RiskScore, got2.RiskScore)
	}
}

func TestCombineIsPure(t *testing.T) {
	ls := live.NewStore()
	in := Inputs{
		RouteID:         "R1",
		StopID:          "S1",
		TripID:          "T1",
		DepartureTime:   "12:00:00",
		QueryDT:         time.Date(2026, 2, 9, 11, 0, 0, 0, time.UTC),
		HistoricalPrior: 0.85,
	}
	a := Combine(in, ls)
	b := Combine(in, ls)
	if a.RiskScore != b.RiskScore || a.RiskLabel != b.RiskLabel || a.IsCancelled != b.IsCancelled {
		t.Error("Combine is not deterministic for identical inputs")
	}
}
