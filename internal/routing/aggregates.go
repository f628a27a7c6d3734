package routing

import (
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// aggregates computes the derived, scoring-independent per-route totals:
// wall-clock travel time across trip legs, transfer count, and summed walk
// distance. These are pure functions of the leg list, so they are safe to
// cache alongside the legs themselves.
func aggregates(legs []model.Leg) (totalTravelSeconds, transfers int, totalWalkMetres float64) {
	tripLegs := tripLegsOnly(legs)
	if len(tripLegs) > 0 {
		first := tripLegs[0]
		last := tripLegs[len(tripLegs)-1]
		totalTravelSeconds = timeutil.ParseHMS(last.ArrivalTime) - timeutil.ParseHMS(first.DepartureTime)
	}

	for _, l := range legs {
		if l.Kind == model.LegWalk {
			totalWalkMetres += l.DistanceM
		}
	}

	transfers = countTransfers(legs)
	return
}
