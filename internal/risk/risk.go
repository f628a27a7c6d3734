// Package risk implements the live risk combiner (component G): a pure,
// deterministic function that folds a historical reliability prior
// together with current live signals into a bounded 0..1 score per leg.
package risk

import (
	"fmt"
	"time"

	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// Fixed risk-bump constants, per the published reliability constants table.
const (
	bumpAlert            = 0.10
	bumpSameRouteCancel  = 0.15
	bumpMissingVehicle   = 0.08
	bumpLateEvening      = 0.05
	bumpWeekend          = 0.03
	lateEveningThreshold = 22 * 3600
	vehicleLookaheadMin  = 15
)

// Inputs bundles everything compute_live_risk needs beyond the live state
// singletons, so the function signature stays a handful of arguments.
type Inputs struct {
	RouteID         string
	StopID          string
	TripID          string
	DepartureTime   string // "HH:MM:SS", may exceed 24:00:00
	QueryDT         time.Time
	HistoricalPrior float64 // in [0,1]
}

// Combine computes compute_live_risk. It performs no I/O: liveStore is read
// via its already-swapped-in snapshots, never fetched fresh.
func Combine(in Inputs, liveStore *live.Store) model.LegRisk {
	if u, ok := liveStore.TripUpdate(in.TripID); ok && u.IsCancelled {
		return model.LegRisk{
			RiskScore:   1.0,
			RiskLabel:   model.RiskHigh,
			Modifiers:   []string{"trip cancelled"},
			IsCancelled: true,
		}
	}

	base := 1 - in.HistoricalPrior
	adjustment := 0.0
	var modifiers []string

	for _, a := range liveStore.Alerts() {
		if containsString(a.AffectedRouteIDs, in.RouteID) || containsString(a.AffectedStopIDs, in.StopID) {
			adjustment += bumpAlert
			modifiers = append(modifiers, fmt.Sprintf("Service alert: %s", a.Header))
		}
	}

	if n := liveStore.CancelledTripCountForRoute(in.RouteID); n > 0 {
		adjustment += bumpSameRouteCancel
		modifiers = append(modifiers, fmt.Sprintf("%d cancelled trip(s) on route", n))
	}

	d := timeutil.ParseHMS(in.DepartureTime)
	q := secondsOfDay(in.QueryDT)
	minutesUntil := float64(d-q) / 60
	if minutesUntil > 0 && minutesUntil <= vehicleLookaheadMin {
		if !liveStore.HasVehiclePosition(in.TripID) {
			adjustment += bumpMissingVehicle
			modifiers = append(modifiers, "no vehicle position")
		}
	}

	if d >= lateEveningThreshold {
		adjustment += bumpLateEvening
		modifiers = append(modifiers, "late-evening")
	}

	if wd := in.QueryDT.Weekday(); wd == time.Saturday || wd == time.Sunday {
		adjustment += bumpWeekend
		modifiers = append(modifiers, "weekend")
	}

	score := base + adjustment
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}

	return model.LegRisk{
		RiskScore:   score,
		RiskLabel:   labelFor(score),
		Modifiers:   modifiers,
		IsCancelled: false,
	}
}

// LabelFor buckets a raw 0..1 score using the same thresholds Combine
// uses for a single leg, exported so route-level aggregation can derive
// a label from an aggregated score without duplicating the cutoffs.
func LabelFor(score float64) model.RiskLabel {
	return labelFor(score)
}

func labelFor(score float64) model.RiskLabel {
	switch {
	case score < 0.33:
		return model.RiskLow
	case score < 0.66:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// secondsOfDay returns t's time-of-day in seconds since local midnight,
// matching parse_hms's clock-seconds domain (it never wraps past 24h here
// since query_dt is always a concrete wall-clock moment).
func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
