// Package model holds the data types shared across the routing core: stops,
// routes, trips, stop times, calendars, reliability records, live-feed
// snapshots, and the journey output shapes.
package model

// Stop is a boarding location. Immutable within a graph snapshot.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// StopResult is the search_stops response shape: a stop plus the routes
// that serve it.
type StopResult struct {
	StopID       string
	StopName     string
	Lat          float64
	Lon          float64
	RoutesServed []string // sorted, unique route_ids
}
