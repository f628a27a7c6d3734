package routing

import (
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// passesFilters implements step 4: reject a route with no trip legs, more
// than cfg.MaxTransfers route_id changes between consecutive trip legs, or
// any transfer gap under cfg.MinTransferMinutes.
func passesFilters(legs []model.Leg, cfg Config) bool {
	tripLegs := tripLegsOnly(legs)
	if len(tripLegs) == 0 {
		return false
	}

	transfers := 0
	for i := 1; i < len(tripLegs); i++ {
		prev, cur := tripLegs[i-1], tripLegs[i]
		if prev.RouteID == cur.RouteID {
			continue
		}
		transfers++

		gapSeconds := timeutil.ParseHMS(cur.DepartureTime) - timeutil.ParseHMS(prev.ArrivalTime)
		if gapSeconds < cfg.MinTransferMinutes*60 {
			return false
		}
	}

	return transfers <= cfg.MaxTransfers
}

func tripLegsOnly(legs []model.Leg) []model.Leg {
	var out []model.Leg
	for _, l := range legs {
		if l.Kind == model.LegTrip {
			out = append(out, l)
		}
	}
	return out
}

// countTransfers counts route_id changes between consecutive trip legs,
// ignoring walk legs, for the derived "transfers" aggregate.
func countTransfers(legs []model.Leg) int {
	tripLegs := tripLegsOnly(legs)
	n := 0
	for i := 1; i < len(tripLegs); i++ {
		if tripLegs[i].RouteID != tripLegs[i-1].RouteID {
			n++
		}
	}
	return n
}
