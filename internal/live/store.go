// Package live holds the in-memory, poll-refreshed real-time state:
// trip updates, service alerts, and vehicle positions (component E).
// Each of the three maps is swapped wholesale and atomically on every
// poll; readers never observe a half-swapped map.
package live

import (
	"sync/atomic"

	"github.com/dcmshi/transit-planner/internal/model"
)

// Store is the process-wide live-state singleton.
type Store struct {
	tripUpdates      atomic.Pointer[map[string]model.LiveTripUpdate] // by trip_id
	alerts           atomic.Pointer[[]model.ServiceAlert]
	vehiclePositions atomic.Pointer[map[string]model.VehiclePosition] // by trip_id
}

// NewStore returns an empty live-state store.
func NewStore() *Store {
	s := &Store{}
	empty := map[string]model.LiveTripUpdate{}
	s.tripUpdates.Store(&empty)
	emptyAlerts := []model.ServiceAlert{}
	s.alerts.Store(&emptyAlerts)
	emptyPos := map[string]model.VehiclePosition{}
	s.vehiclePositions.Store(&emptyPos)
	return s
}

// TripUpdate returns the live update for tripID, if any.
func (s *Store) TripUpdate(tripID string) (model.LiveTripUpdate, bool) {
	m := *s.tripUpdates.Load()
	u, ok := m[tripID]
	return u, ok
}

// CancelledTripCountForRoute counts trip updates for routeID that are
// flagged is_cancelled, for the live risk combiner's same-route-
// cancellation modifier.
func (s *Store) CancelledTripCountForRoute(routeID string) int {
	m := *s.tripUpdates.Load()
	n := 0
	for _, u := range m {
		if u.RouteID == routeID && u.IsCancelled {
			n++
		}
	}
	return n
}

// Alerts returns the current alert slice.
func (s *Store) Alerts() []model.ServiceAlert {
	return *s.alerts.Load()
}

// HasVehiclePosition reports whether tripID has a known live position.
func (s *Store) HasVehiclePosition(tripID string) bool {
	m := *s.vehiclePositions.Load()
	_, ok := m[tripID]
	return ok
}

// SwapTripUpdates atomically replaces the trip-updates map.
func (s *Store) SwapTripUpdates(updates map[string]model.LiveTripUpdate) {
	if updates == nil {
		updates = map[string]model.LiveTripUpdate{}
	}
	s.tripUpdates.Store(&updates)
}

// SwapAlerts atomically replaces the alert slice.
func (s *Store) SwapAlerts(alerts []model.ServiceAlert) {
	if alerts == nil {
		alerts = []model.ServiceAlert{}
	}
	s.alerts.Store(&alerts)
}

// SwapVehiclePositions atomically replaces the vehicle-positions map.
func (s *Store) SwapVehiclePositions(positions map[string]model.VehiclePosition) {
	if positions == nil {
		positions = map[string]model.VehiclePosition{}
	}
	s.vehiclePositions.Store(&positions)
}

// TripUpdatesSnapshot returns the current trip-updates map reference,
// for callers (e.g. observe_departures) that need to range over it
// without per-lookup overhead. The returned map must be treated as
// read-only; it may be shared with concurrent readers.
func (s *Store) TripUpdatesSnapshot() map[string]model.LiveTripUpdate {
	return *s.tripUpdates.Load()
}
