package model

import "errors"

// Sentinel errors forming the taxonomy of spec §7. Components wrap these
// with fmt.Errorf("...: %w", ErrX) so callers can errors.Is against them
// across package boundaries.
var (
	// ErrUnknownStop: origin or destination not present in the current
	// graph snapshot. Surfaces as 404-equivalent.
	ErrUnknownStop = errors.New("unknown stop")

	// ErrNoScheduleData: reliability seeding invoked before any trips
	// were loaded into the timetable store.
	ErrNoScheduleData = errors.New("no schedule data")

	// ErrBadTimeInput: malformed date/time on an input boundary.
	ErrBadTimeInput = errors.New("bad time input")

	// ErrTransientFetch: a live or static feed download failed. Callers
	// log and continue; it never propagates out of a scheduled job.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrStorage: unexpected DB failure during routing or storage access.
	ErrStorage = errors.New("storage error")

	// ErrRouting: a DB error surfaced during schedule binding inside
	// find_routes. Maps to a 5xx at the HTTP boundary.
	ErrRouting = errors.New("routing error")
)
