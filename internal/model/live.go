package model

import "time"

// LiveTripUpdate is the poll-refreshed real-time status of one trip.
// Replaced wholesale on each poll; never mutated in place.
type LiveTripUpdate struct {
	TripID             string
	RouteID            string
	DelaySeconds        int
	IsCancelled         bool
	StopDelayOverrides map[string]int // stop_id -> delay seconds
	FetchedAt           time.Time
}

// ServiceAlert is a GTFS-RT alert entity. Replaced wholesale per poll.
type ServiceAlert struct {
	ID               string
	Header           string
	Description      string
	AffectedRouteIDs []string
	AffectedStopIDs  []string
	FetchedAt        time.Time
}

// VehiclePosition is the last known location of a trip's vehicle.
// Replaced wholesale per poll.
type VehiclePosition struct {
	TripID    string
	Lat       float64
	Lon       float64
	Timestamp time.Time
}
