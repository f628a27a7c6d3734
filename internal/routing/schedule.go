package routing

import (
	"context"
	"time"

	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// tripQueryKey is the per-call memo key for FindEarliestTrip lookups.
type tripQueryKey struct {
	routeID, firstStop, lastStop, serviceDate string
	notBeforeSec                              int
}

type tripLookupResult struct {
	tripID string
	ok     bool
}

// scheduleBinder binds candidate node paths to concrete scheduled trips
// for one find_routes invocation, memoizing store round-trips across
// similar candidates (the per-call memo named in step 3).
type scheduleBinder struct {
	tt                 store.Timetable
	tripQueryMemo      map[tripQueryKey]tripLookupResult
	stopTimeMemo       map[string][]model.StopTime
	minTransferSeconds int
}

func newScheduleBinder(tt store.Timetable, minTransferMinutes int) *scheduleBinder {
	return &scheduleBinder{
		tt:                 tt,
		tripQueryMemo:      make(map[tripQueryKey]tripLookupResult),
		stopTimeMemo:       make(map[string][]model.StopTime),
		minTransferSeconds: minTransferMinutes * 60,
	}
}

// schedulePath implements step 3: walk nodePath, emitting a walk leg for
// each projected walk edge and a run of trip legs for each maximal
// same-route_id run (chosen via the longest-run tie-break), binding each
// run to one concrete trip via the timetable store. Returns nil if any
// segment cannot be realized.
func schedulePath(ctx context.Context, snap *graph.Snapshot, projected map[pairKey]projectedEdge, binder *scheduleBinder, nodePath []string, departureDT time.Time) []model.Leg {
	serviceDate := departureDT.Format("20060102")
	notBeforeSec := secondsOfDay(departureDT)

	var legs []model.Leg
	i := 0
	for i < len(nodePath)-1 {
		from, to := nodePath[i], nodePath[i+1]
		pe, ok := projected[pairKey{From: from, To: to}]
		if !ok {
			return nil
		}

		if pe.IsWalk {
			we, ok := snap.WalkEdgeBetween(from, to)
			if !ok {
				return nil
			}
			legs = append(legs, model.Leg{
				Kind:         model.LegWalk,
				FromStopID:   from,
				ToStopID:     to,
				FromStopName: stopName(snap, from),
				ToStopName:   stopName(snap, to),
				DistanceM:    we.DistanceM,
				WalkSeconds:  we.WalkSeconds,
			})
			notBeforeSec += we.WalkSeconds
			i++
			continue
		}

		routeID, runEnd, ok := longestRun(snap, nodePath, i)
		if !ok {
			return nil
		}
		segment := nodePath[i : runEnd+1]

		runLegs, lastArrivalSec, ok := bindRun(ctx, snap, binder, routeID, segment, serviceDate, notBeforeSec)
		if !ok {
			return nil
		}
		legs = append(legs, runLegs...)
		notBeforeSec = lastArrivalSec + binder.minTransferSeconds
		i = runEnd
	}
	return legs
}

// longestRun picks, among the route_ids tied for minimum weight on the
// (nodePath[start], nodePath[start+1]) pair, the one that extends farthest
// as a contiguous run of trip edges along the remaining nodePath — the
// §4.H longest-run tie-break.
func longestRun(snap *graph.Snapshot, nodePath []string, start int) (routeID string, runEnd int, ok bool) {
	edges := snap.TripEdgesBetween(nodePath[start], nodePath[start+1])
	if len(edges) == 0 {
		return "", 0, false
	}

	minWeight := edges[0].TravelSeconds
	for _, e := range edges[1:] {
		if e.TravelSeconds < minWeight {
			minWeight = e.TravelSeconds
		}
	}

	bestRoute := ""
	bestEnd := start
	haveBest := false
	for _, e := range edges {
		if e.TravelSeconds != minWeight {
			continue
		}
		end := extendRun(snap, nodePath, start, e.RouteID)
		if !haveBest || end > bestEnd || (end == bestEnd && e.RouteID < bestRoute) {
			bestRoute = e.RouteID
			bestEnd = end
			haveBest = true
		}
	}
	return bestRoute, bestEnd, haveBest
}

// extendRun returns the last index in nodePath reachable from start by
// consecutive trip edges all carrying routeID.
func extendRun(snap *graph.Snapshot, nodePath []string, start int, routeID string) int {
	end := start + 1
	for end < len(nodePath)-1 {
		found := false
		for _, e := range snap.TripEdgesBetween(nodePath[end], nodePath[end+1]) {
			if e.RouteID == routeID {
				found = true
				break
			}
		}
		if !found {
			break
		}
		end++
	}
	return end
}

// bindRun queries the earliest trip_id on routeID covering segment from
// its first to last stop at or after notBeforeSec, fetches its full
// stop-time table once, confirms every intermediate stop in segment is
// present, and emits one trip leg per consecutive pair.
func bindRun(ctx context.Context, snap *graph.Snapshot, binder *scheduleBinder, routeID string, segment []string, serviceDate string, notBeforeSec int) ([]model.Leg, int, bool) {
	first := segment[0]
	last := segment[len(segment)-1]

	key := tripQueryKey{routeID: routeID, firstStop: first, lastStop: last, serviceDate: serviceDate, notBeforeSec: notBeforeSec}
	lookup, memoized := binder.tripQueryMemo[key]
	if !memoized {
		tripID, found, err := binder.tt.FindEarliestTrip(ctx, store.TripQuery{
			RouteID:      routeID,
			ServiceDate:  serviceDate,
			FirstStopID:  first,
			LastStopID:   last,
			NotBeforeSec: notBeforeSec,
		})
		if err != nil {
			lookup = tripLookupResult{ok: false}
		} else {
			lookup = tripLookupResult{tripID: tripID, ok: found}
		}
		binder.tripQueryMemo[key] = lookup
	}
	if !lookup.ok {
		return nil, 0, false
	}

	stopTimes, ok := binder.stopTimeMemo[lookup.tripID]
	if !ok {
		fetched, err := binder.tt.TripStopTimes(ctx, lookup.tripID)
		if err != nil {
			return nil, 0, false
		}
		binder.stopTimeMemo[lookup.tripID] = fetched
		stopTimes = fetched
	}

	byStop := make(map[string]model.StopTime, len(stopTimes))
	for _, st := range stopTimes {
		byStop[st.StopID] = st
	}
	for _, stopID := range segment {
		if _, ok := byStop[stopID]; !ok {
			return nil, 0, false
		}
	}

	var legs []model.Leg
	lastArrival := 0
	for i := 0; i < len(segment)-1; i++ {
		fromSt := byStop[segment[i]]
		toSt := byStop[segment[i+1]]
		travel := timeutil.ParseHMS(toSt.ArrivalTime) - timeutil.ParseHMS(fromSt.DepartureTime)
		if travel < 0 {
			travel = 0
		}
		legs = append(legs, model.Leg{
			Kind:          model.LegTrip,
			FromStopID:    segment[i],
			ToStopID:      segment[i+1],
			FromStopName:  stopName(snap, segment[i]),
			ToStopName:    stopName(snap, segment[i+1]),
			TripID:        lookup.tripID,
			RouteID:       routeID,
			ServiceID:     fromSt.ServiceID,
			DepartureTime: fromSt.DepartureTime,
			ArrivalTime:   toSt.ArrivalTime,
			TravelSeconds: travel,
		})
		lastArrival = timeutil.ParseHMS(toSt.ArrivalTime)
	}
	return legs, lastArrival, true
}

func stopName(snap *graph.Snapshot, stopID string) string {
	if n, ok := snap.Node(stopID); ok {
		return n.Name
	}
	return ""
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
