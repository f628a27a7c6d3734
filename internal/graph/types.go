// Package graph builds and caches the in-memory transit multigraph
// (components C and D): one node per stop, deduplicated trip edges, and
// spatially-joined walk edges.
package graph

import "time"

// Node is a routable stop.
type Node struct {
	StopID string
	Name   string
	Lat    float64
	Lon    float64
}

// pairKey identifies an ordered (from, to) stop pair.
type pairKey struct {
	From string
	To   string
}

// edgeKey identifies a trip edge's dedup key: (from, to, route_id).
type edgeKey struct {
	From    string
	To      string
	RouteID string
}

// TripEdge is a scheduled-service link, deduplicated to the minimum-travel
// candidate for its (From, To, RouteID) key. TripID/ServiceID/
// DepartureTime/ArrivalTime record the winning candidate's provenance;
// concrete departures for a query date are resolved separately by the
// routing engine's schedule binder, never read off this struct directly.
type TripEdge struct {
	From          string
	To            string
	RouteID       string
	TripID        string
	ServiceID     string
	DepartureTime string
	ArrivalTime   string
	TravelSeconds int
}

// Weight is the edge cost Yen's algorithm optimizes over.
func (e TripEdge) Weight() int { return e.TravelSeconds }

// WalkEdge is a walking transfer between two stops within MaxWalkMetres.
type WalkEdge struct {
	From        string
	To          string
	DistanceM   float64
	WalkSeconds int
}

// Weight is the edge cost Yen's algorithm optimizes over.
func (e WalkEdge) Weight() int { return e.WalkSeconds }

// Snapshot is one immutable build of the transit multigraph. Readers that
// hold a *Snapshot see stable data for its lifetime; a new build never
// mutates an existing Snapshot in place.
type Snapshot struct {
	BuildID string
	BuiltAt time.Time

	nodes         map[string]Node
	tripEdges     map[edgeKey]TripEdge
	tripEdgesByPair map[pairKey][]TripEdge // all route_ids available between a pair, for the longest-run tie-break
	walkEdges     map[pairKey]WalkEdge
}

// Node returns the stop node for id, or false if absent from this
// snapshot.
func (s *Snapshot) Node(id string) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// HasStop reports whether id is a known stop in this snapshot.
func (s *Snapshot) HasStop(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// TripEdgesBetween returns every retained trip edge (one per route_id)
// between from and to, used by the schedule binder's longest-run
// tie-break to discover alternative route_ids the projected graph
// collapsed away.
func (s *Snapshot) TripEdgesBetween(from, to string) []TripEdge {
	edges := s.tripEdgesByPair[pairKey{from, to}]
	out := make([]TripEdge, len(edges))
	copy(out, edges)
	return out
}

// WalkEdgeBetween returns the walk edge between from and to, if any.
func (s *Snapshot) WalkEdgeBetween(from, to string) (WalkEdge, bool) {
	e, ok := s.walkEdges[pairKey{from, to}]
	return e, ok
}

// Neighbors returns every outgoing edge (trip and walk) from stopID, for
// the single-edge-per-pair projection the routing engine builds.
func (s *Snapshot) Neighbors(stopID string) []pairKey {
	seen := map[pairKey]bool{}
	var out []pairKey
	for k := range s.tripEdgesByPair {
		if k.From == stopID && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range s.walkEdges {
		if k.From == stopID && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// NodeCount and EdgeCount support the health() stats the HTTP boundary
// reports.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }
func (s *Snapshot) TripEdgeCount() int { return len(s.tripEdges) }
func (s *Snapshot) WalkEdgeCount() int { return len(s.walkEdges) }

// StopIDs returns every stop_id known to this snapshot, in no particular
// order. The routing engine's graph projection walks this to discover
// every (u,v) pair that needs a single minimum-weight edge.
func (s *Snapshot) StopIDs() []string {
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}
