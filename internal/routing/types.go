// Package routing implements the routing engine (component H): projecting
// the multigraph to a single-edge digraph, enumerating k-shortest simple
// paths, binding each candidate to a concrete schedule, and filtering and
// deduplicating the result down to the response the HTTP boundary returns.
package routing

import (
	"context"
	"time"

	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
)

// Config holds the tunable bounds step 2's candidate enumeration and step
// 4's filter rely on.
type Config struct {
	MaxRoutes          int // K
	MaxTransfers       int
	MinTransferMinutes int
}

// DefaultConfig matches the published configuration defaults.
func DefaultConfig() Config {
	return Config{MaxRoutes: 5, MaxTransfers: 2, MinTransferMinutes: 10}
}

// candidatesPerRoute bounds how many node-path candidates Yen's algorithm
// examines, relative to K, to keep DB work in step 3 bounded.
const candidatesPerRoute = 15

// pairKey identifies an ordered (from, to) stop pair in the projected
// digraph.
type pairKey struct {
	From string
	To   string
}

// projectedEdge is the single surviving edge for a pairKey after step 1's
// minimum-weight projection.
type projectedEdge struct {
	Weight  int
	IsWalk  bool
	RouteID string // empty when IsWalk
}

// Engine owns the dependencies find_routes needs: the current graph
// snapshot, the timetable store for schedule binding, and the routing
// configuration. It holds no mutable state of its own; callers obtain a
// fresh *Engine (or swap its Snapshot) per request.
type Engine struct {
	Snapshot *graph.Snapshot
	Store    store.Timetable
	Config   Config
}

// NewEngine builds an Engine for one find_routes call (or a short-lived
// batch of them) bound to a single graph snapshot, satisfying the
// single-snapshot-per-call ordering guarantee.
func NewEngine(snap *graph.Snapshot, tt store.Timetable, cfg Config) *Engine {
	return &Engine{Snapshot: snap, Store: tt, Config: cfg}
}

// Result is one scheduled, filtered, deduplicated candidate: the leg list
// find_routes assembled before risk scoring runs, plus the aggregates that
// don't depend on live state and so are safe to cache alongside the legs.
type Result struct {
	Legs               []model.Leg
	TotalTravelSeconds int
	Transfers          int
	TotalWalkMetres    float64
}

// FindRoutes is the find_routes entry point: project, enumerate, bind,
// filter, deduplicate, and fill later departures until K distinct routes
// are found or every candidate path is exhausted.
func (e *Engine) FindRoutes(ctx context.Context, origin, destination string, departureDT time.Time, k int) ([]Result, error) {
	return findRoutes(ctx, e, origin, destination, departureDT, k)
}
