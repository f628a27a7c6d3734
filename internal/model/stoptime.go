package model

// StopTime is a (trip, stop, sequence) fact. ArrivalTime/DepartureTime are
// stored as the raw "HH:MM:SS" wire strings (HH may exceed 23 for
// post-midnight continuations); callers needing seconds-past-midnight use
// timeutil.ParseHMS on demand. Within one TripID, StopSequence is strictly
// increasing and DepartureTime is monotonically non-decreasing.
type StopTime struct {
	TripID        string
	RouteID       string
	ServiceID     string
	StopID        string
	StopSequence  int
	ArrivalTime   string
	DepartureTime string
}
