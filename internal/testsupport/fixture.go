package testsupport

import (
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store/memory"
)

// SmallTimetable builds a four-stop, two-route fixture timetable used
// across package tests that need a populated store.Timetable without a
// database: stops A, B, C, D; trip T1 on route R1 covers A->B->C, trip T2
// on route R2 covers B->D.
func SmallTimetable() *memory.Store {
	s := memory.New()
	s.AddStop(model.Stop{ID: "A", Name: "Alpha", Lat: 41.380, Lon: 2.170})
	s.AddStop(model.Stop{ID: "B", Name: "Bravo", Lat: 41.382, Lon: 2.172})
	s.AddStop(model.Stop{ID: "C", Name: "Charlie", Lat: 41.390, Lon: 2.182})
	s.AddStop(model.Stop{ID: "D", Name: "Delta", Lat: 41.392, Lon: 2.184})

	s.AddTrip(model.Trip{ID: "T1", RouteID: "R1", ServiceID: "20260209", Headsign: "Charlie"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, ArrivalTime: "08:00:00", DepartureTime: "08:00:00"},
		{StopID: "B", StopSequence: 2, ArrivalTime: "08:10:00", DepartureTime: "08:12:00"},
		{StopID: "C", StopSequence: 3, ArrivalTime: "08:25:00", DepartureTime: "08:25:00"},
	})
	s.AddTrip(model.Trip{ID: "T2", RouteID: "R2", ServiceID: "20260209", Headsign: "Delta"}, []model.StopTime{
		{StopID: "B", StopSequence: 1, ArrivalTime: "08:20:00", DepartureTime: "08:20:00"},
		{StopID: "D", StopSequence: 2, ArrivalTime: "08:35:00", DepartureTime: "08:35:00"},
	})
	return s
}
