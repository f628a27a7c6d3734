package httpapi

import (
	"time"

	"github.com/dcmshi/transit-planner/internal/journey"
	"github.com/dcmshi/transit-planner/internal/model"
)

// ErrorResponse is the JSON error body shape, grounded on the teacher's
// apps/api/handlers.ErrorResponse.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// stopResultWire is search_stops's per-stop response shape.
type stopResultWire struct {
	StopID       string   `json:"stop_id"`
	StopName     string   `json:"stop_name"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	RoutesServed []string `json:"routes_served"`
}

// searchStopsResponse wraps search_stops's result list.
type searchStopsResponse struct {
	Stops []stopResultWire `json:"stops"`
}

func toStopResultWire(rs []model.StopResult) []stopResultWire {
	out := make([]stopResultWire, len(rs))
	for i, r := range rs {
		routes := r.RoutesServed
		if routes == nil {
			routes = []string{}
		}
		out[i] = stopResultWire{
			StopID:       r.StopID,
			StopName:     r.StopName,
			Lat:          r.Lat,
			Lon:          r.Lon,
			RoutesServed: routes,
		}
	}
	return out
}

// legRiskWire is the risk object on a trip leg, or omitted (null) for a
// walk leg.
type legRiskWire struct {
	RiskScore   float64  `json:"risk_score"`
	RiskLabel   string   `json:"risk_label"`
	Modifiers   []string `json:"modifiers"`
	IsCancelled bool     `json:"is_cancelled"`
}

// legWire is the tagged trip/walk leg shape spec §6 names exactly.
type legWire struct {
	Kind         string       `json:"kind"`
	FromStopID   string       `json:"from_stop_id"`
	ToStopID     string       `json:"to_stop_id"`
	FromStopName string       `json:"from_stop_name"`
	ToStopName   string       `json:"to_stop_name"`
	TripID       string       `json:"trip_id,omitempty"`
	RouteID      string       `json:"route_id,omitempty"`
	ServiceID    string       `json:"service_id,omitempty"`
	DepartureTime string      `json:"departure_time,omitempty"`
	ArrivalTime   string      `json:"arrival_time,omitempty"`
	TravelSeconds int         `json:"travel_seconds,omitempty"`
	Risk          *legRiskWire `json:"risk"`
	DistanceM     float64     `json:"distance_m,omitempty"`
	WalkSeconds   int         `json:"walk_seconds,omitempty"`
}

func toLegWire(l model.Leg) legWire {
	w := legWire{
		Kind:         string(l.Kind),
		FromStopID:   l.FromStopID,
		ToStopID:     l.ToStopID,
		FromStopName: l.FromStopName,
		ToStopName:   l.ToStopName,
	}
	switch l.Kind {
	case model.LegTrip:
		w.TripID = l.TripID
		w.RouteID = l.RouteID
		w.ServiceID = l.ServiceID
		w.DepartureTime = l.DepartureTime
		w.ArrivalTime = l.ArrivalTime
		w.TravelSeconds = l.TravelSeconds
		if l.Risk != nil {
			w.Risk = &legRiskWire{
				RiskScore:   round3(l.Risk.RiskScore),
				RiskLabel:   string(l.Risk.RiskLabel),
				Modifiers:   nonNilStrings(l.Risk.Modifiers),
				IsCancelled: l.Risk.IsCancelled,
			}
		}
	case model.LegWalk:
		w.DistanceM = l.DistanceM
		w.WalkSeconds = l.WalkSeconds
	}
	return w
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// scoredRouteWire is one ScoredRoute in get_routes's response.
type scoredRouteWire struct {
	Legs               []legWire `json:"legs"`
	TotalTravelSeconds int       `json:"total_travel_seconds"`
	Transfers          int       `json:"transfers"`
	TotalWalkMetres    float64   `json:"total_walk_metres"`
	RiskScore          float64   `json:"risk_score"`
	RiskLabel          string    `json:"risk_label"`
}

func toScoredRouteWire(r model.ScoredRoute) scoredRouteWire {
	legs := make([]legWire, len(r.Legs))
	for i, l := range r.Legs {
		legs[i] = toLegWire(l)
	}
	return scoredRouteWire{
		Legs:               legs,
		TotalTravelSeconds: r.TotalTravelSeconds,
		Transfers:          r.Transfers,
		TotalWalkMetres:    r.TotalWalkMetres,
		RiskScore:          round3(r.RiskScore),
		RiskLabel:          string(r.RiskLabel),
	}
}

// routesResponse is get_routes's top-level response shape.
type routesResponse struct {
	Routes      []scoredRouteWire `json:"routes"`
	Explanation *string           `json:"explanation,omitempty"`
}

func toRoutesResponse(r journey.RoutesResult, explain bool) routesResponse {
	out := routesResponse{Routes: make([]scoredRouteWire, len(r.Routes))}
	for i, rt := range r.Routes {
		out.Routes[i] = toScoredRouteWire(rt)
	}
	if explain {
		exp := r.Explanation
		out.Explanation = &exp
	}
	return out
}

func round3(x float64) float64 {
	return float64(int(x*1000+0.5)) / 1000
}

// healthResponse is health()'s response shape.
type healthResponse struct {
	Status           string    `json:"status"`
	StopCount        int       `json:"stop_count"`
	TripCount        int       `json:"trip_count"`
	ReliabilityCount int       `json:"reliability_count"`
	ResultCacheSize  int       `json:"result_cache_size"`
	GraphBuildID     string    `json:"graph_build_id,omitempty"`
	GraphNodeCount   int       `json:"graph_node_count"`
	GraphTripEdges   int       `json:"graph_trip_edges"`
	GraphWalkEdges   int       `json:"graph_walk_edges"`
	NextRefreshAt   time.Time `json:"next_refresh_at"`
	LastRefreshAt   time.Time `json:"last_refresh_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	LivePollEnabled bool      `json:"live_poll_enabled"`
	LivePollHealthy bool      `json:"live_poll_healthy"`
}

func toHealthResponse(r journey.HealthReport) healthResponse {
	status := "ok"
	if r.LivePollEnabled && !r.LivePollHealthy {
		status = "degraded"
	}
	return healthResponse{
		Status:           status,
		StopCount:        r.StopCount,
		TripCount:        r.TripCount,
		ReliabilityCount: r.ReliabilityCount,
		ResultCacheSize:  r.ResultCacheLen,
		GraphBuildID:     r.GraphBuildID,
		GraphNodeCount:   r.GraphNodeCount,
		GraphTripEdges:   r.GraphTripEdges,
		GraphWalkEdges:   r.GraphWalkEdges,
		NextRefreshAt:    r.NextRefreshAt,
		LastRefreshAt:    r.LastRefreshAt,
		LastPollAt:       r.LastPollAt,
		LivePollEnabled:  r.LivePollEnabled,
		LivePollHealthy:  r.LivePollHealthy,
	}
}
