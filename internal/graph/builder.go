package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// BuildConfig parameterizes walk-edge generation.
type BuildConfig struct {
	MaxWalkMetres float64
	WalkSpeedKPH  float64
}

// DefaultBuildConfig matches spec.md §6's documented defaults.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{MaxWalkMetres: 500, WalkSpeedKPH: 4.5}
}

// Build is the component-C contract: transform a timetable into an
// immutable graph snapshot. Idempotent and deterministic given identical
// input; an empty timetable yields an empty (not failed) snapshot.
func Build(ctx context.Context, tt store.Timetable, cfg BuildConfig) (*Snapshot, error) {
	stops, err := tt.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("build graph: list stops: %w", err)
	}

	nodes := make(map[string]Node, len(stops))
	for _, st := range stops {
		nodes[st.ID] = Node{StopID: st.ID, Name: st.Name, Lat: st.Lat, Lon: st.Lon}
	}

	tripEdges, err := buildTripEdges(ctx, tt)
	if err != nil {
		return nil, fmt.Errorf("build graph: trip edges: %w", err)
	}

	walkEdges := buildWalkEdges(stops, cfg)

	byPair := make(map[pairKey][]TripEdge)
	for _, e := range tripEdges {
		k := pairKey{e.From, e.To}
		byPair[k] = append(byPair[k], e)
	}

	return &Snapshot{
		BuildID:         uuid.New().String(),
		BuiltAt:         time.Now().UTC(),
		nodes:           nodes,
		tripEdges:       tripEdges,
		tripEdgesByPair: byPair,
		walkEdges:       walkEdges,
	}, nil
}

// buildTripEdges streams stop_times ordered by (trip_id, stop_sequence)
// and retains, per (from, to, route_id) key, only the candidate with
// minimum travel_seconds. Any parse error in a time field treats the
// offending edge as travel=0; it is still emitted, never dropped.
func buildTripEdges(ctx context.Context, tt store.Timetable) (map[edgeKey]TripEdge, error) {
	edges := make(map[edgeKey]TripEdge)

	var prevTripID string
	var prev model.StopTime
	havePrev := false

	err := tt.StreamStopTimes(ctx, func(st model.StopTime) error {
		if st.TripID != prevTripID {
			havePrev = false
			prevTripID = st.TripID
		}
		if havePrev {
			travel := timeutil.ParseHMS(st.ArrivalTime) - timeutil.ParseHMS(prev.DepartureTime)
			if travel < 0 {
				travel = 0
			}
			k := edgeKey{From: prev.StopID, To: st.StopID, RouteID: prev.RouteID}
			if existing, ok := edges[k]; !ok || travel < existing.TravelSeconds {
				edges[k] = TripEdge{
					From:          prev.StopID,
					To:            st.StopID,
					RouteID:       prev.RouteID,
					TripID:        prev.TripID,
					ServiceID:     prev.ServiceID,
					DepartureTime: prev.DepartureTime,
					ArrivalTime:   st.ArrivalTime,
					TravelSeconds: travel,
				}
			}
		}
		prev = st
		havePrev = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// buildWalkEdges emits bidirectional walk edges between every stop pair
// within cfg.MaxWalkMetres, using the latitude-banded spatial index. See
// walkindex_bruteforce.go for the O(n^2) oracle that must produce an
// identical edge set (testable property 6).
func buildWalkEdges(stops []model.Stop, cfg BuildConfig) map[pairKey]WalkEdge {
	walkEdges := make(map[pairKey]WalkEdge)
	metresPerSecond := cfg.WalkSpeedKPH * 1000 / 3600

	for _, pair := range indexedWalkPairs(stops, cfg.MaxWalkMetres) {
		walkSeconds := int(pair.DistanceM / metresPerSecond)
		walkEdges[pairKey{pair.A, pair.B}] = WalkEdge{From: pair.A, To: pair.B, DistanceM: pair.DistanceM, WalkSeconds: walkSeconds}
		walkEdges[pairKey{pair.B, pair.A}] = WalkEdge{From: pair.B, To: pair.A, DistanceM: pair.DistanceM, WalkSeconds: walkSeconds}
	}
	return walkEdges
}
