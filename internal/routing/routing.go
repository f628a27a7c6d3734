package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// findRoutes implements find_routes end to end: project the graph (step
// 1), enumerate candidate node paths with Yen's algorithm (step 2), bind
// and filter and deduplicate each candidate (steps 3-5), and round-robin
// fill later departures from the remaining candidates until k distinct
// routes are found or every path is exhausted (step 6).
func findRoutes(ctx context.Context, e *Engine, origin, destination string, departureDT time.Time, k int) ([]Result, error) {
	if !e.Snapshot.HasStop(origin) || !e.Snapshot.HasStop(destination) {
		return nil, fmt.Errorf("find_routes: %w", model.ErrUnknownStop)
	}

	projected := projectGraph(e.Snapshot)
	adj := buildAdjacency(projected)

	maxCandidates := k * candidatesPerRoute
	candidates := kShortestSimplePaths(adj, projected, origin, destination, maxCandidates)
	if len(candidates) == 0 {
		return nil, nil
	}

	binder := newScheduleBinder(e.Store, e.Config.MinTransferMinutes)
	seen := signatureSet{}
	var results []Result

	scheduled := make([][]model.Leg, len(candidates))
	exhausted := make([]bool, len(candidates))

	for idx, c := range candidates {
		legs := schedulePath(ctx, e.Snapshot, projected, binder, c.nodes, departureDT)
		scheduled[idx] = legs
		if legs == nil {
			exhausted[idx] = true
			continue
		}
		if tryAccept(legs, e.Config, seen, &results) && len(results) >= k {
			return results, nil
		}
	}

	// Step 6: round-robin over remaining node-paths, advancing
	// not_before_sec past the first trip leg's departure each round, to
	// discover later departures once the first-pass candidates are
	// exhausted or exclusively duplicates.
	for len(results) < k {
		progressed := false
		for idx, c := range candidates {
			if len(results) >= k {
				break
			}
			if exhausted[idx] {
				continue
			}

			prevLegs := scheduled[idx]
			nextDT, ok := nextDepartureAfter(prevLegs, departureDT)
			if !ok {
				exhausted[idx] = true
				continue
			}

			legs := schedulePath(ctx, e.Snapshot, projected, binder, c.nodes, nextDT)
			if legs == nil {
				exhausted[idx] = true
				continue
			}
			scheduled[idx] = legs
			progressed = true
			tryAccept(legs, e.Config, seen, &results)
		}
		if !progressed {
			break
		}
	}

	return results, nil
}

// tryAccept runs steps 4-5 (filter, dedup) on legs and appends to results
// if it survives both. Returns whether it was newly accepted.
func tryAccept(legs []model.Leg, cfg Config, seen signatureSet, results *[]Result) bool {
	if !passesFilters(legs, cfg) {
		return false
	}
	if seen.seen(legs) {
		return false
	}
	seen.record(legs)

	total, transfers, walkM := aggregates(legs)
	*results = append(*results, Result{
		Legs:               legs,
		TotalTravelSeconds: total,
		Transfers:          transfers,
		TotalWalkMetres:    walkM,
	})
	return true
}

// nextDepartureAfter advances a candidate's search pointer past whatever
// schedule_path returned: one second after the first trip leg's
// departure, or false once that departure is at or past 23:59:59 (no
// viable schedule remains that day).
func nextDepartureAfter(legs []model.Leg, baseDT time.Time) (time.Time, bool) {
	tripLegs := tripLegsOnly(legs)
	if len(tripLegs) == 0 {
		return time.Time{}, false
	}

	nextSec := timeutil.ParseHMS(tripLegs[0].DepartureTime) + 1
	if nextSec > 23*3600+59*60+59 {
		return time.Time{}, false
	}

	y, m, d := baseDT.Date()
	next := time.Date(y, m, d, 0, 0, 0, 0, baseDT.Location()).Add(time.Duration(nextSec) * time.Second)
	return next, true
}
