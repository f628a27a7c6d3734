package routing

import (
	"github.com/dcmshi/transit-planner/internal/graph"
)

// projectGraph implements step 1: from the multigraph, produce a plain
// directed graph keeping only the minimum-weight edge per (u,v) pair,
// preserving the winning edge's route_id when it is a trip edge. Ties
// between a walk edge and a trip edge favor the trip edge, since only a
// trip edge can carry passengers onward without re-walking; ties between
// two trip edges on different route_ids are broken by the lexicographic
// minimum route_id here — the schedule binder's longest-run tie-break
// (step 3) is the one that matters operationally, and it re-examines every
// route_id available between a pair via Snapshot.TripEdgesBetween,
// independent of which one this projection kept.
func projectGraph(snap *graph.Snapshot) map[pairKey]projectedEdge {
	projected := make(map[pairKey]projectedEdge)

	for _, stopID := range snap.StopIDs() {
		for _, pk := range snap.Neighbors(stopID) {
			if pk.From != stopID {
				continue
			}
			key := pairKey{From: pk.From, To: pk.To}
			if _, ok := projected[key]; ok {
				continue
			}

			best, ok := bestEdge(snap, pk.From, pk.To)
			if ok {
				projected[key] = best
			}
		}
	}
	return projected
}

func bestEdge(snap *graph.Snapshot, from, to string) (projectedEdge, bool) {
	var (
		best   projectedEdge
		haveAny bool
	)

	for _, te := range snap.TripEdgesBetween(from, to) {
		if !haveAny || te.Weight() < best.Weight || (te.Weight() == best.Weight && !best.IsWalk && te.RouteID < best.RouteID) {
			best = projectedEdge{Weight: te.Weight(), IsWalk: false, RouteID: te.RouteID}
			haveAny = true
		}
	}

	if we, ok := snap.WalkEdgeBetween(from, to); ok {
		if !haveAny || we.Weight() < best.Weight {
			best = projectedEdge{Weight: we.Weight(), IsWalk: true}
			haveAny = true
		}
	}

	return best, haveAny
}

// buildAdjacency indexes a projected edge set by source stop, so
// Dijkstra's relaxation step and Yen's repeated sub-searches don't rescan
// the whole edge map per node.
func buildAdjacency(projected map[pairKey]projectedEdge) map[string][]pairKey {
	adj := make(map[string][]pairKey)
	for k := range projected {
		adj[k.From] = append(adj[k.From], k)
	}
	return adj
}
