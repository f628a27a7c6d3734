package model

// LegKind discriminates the tagged Leg union.
type LegKind string

const (
	LegTrip LegKind = "trip"
	LegWalk LegKind = "walk"
)

// RiskLabel buckets a risk score into a human-facing tier.
type RiskLabel string

const (
	RiskLow    RiskLabel = "Low"
	RiskMedium RiskLabel = "Medium"
	RiskHigh   RiskLabel = "High"
)

// LegRisk is the per-leg reliability annotation. Only trip legs carry one;
// walk legs forbid it (nil on the Leg).
type LegRisk struct {
	RiskScore   float64
	RiskLabel   RiskLabel
	Modifiers   []string
	IsCancelled bool
}

// Leg is one edge of an assembled journey: either a trip segment between
// two stops or a walking transfer, discriminated on Kind. Trip-kind and
// walk-kind fields sit side by side on this one flat struct; the fields of
// the inapplicable kind stay zero-valued.
type Leg struct {
	Kind LegKind

	FromStopID   string
	ToStopID     string
	FromStopName string
	ToStopName   string

	// Trip-kind fields.
	TripID        string
	RouteID       string
	ServiceID     string
	DepartureTime string // "HH:MM:SS", may exceed 24:00:00
	ArrivalTime   string // "HH:MM:SS", may exceed 24:00:00
	TravelSeconds int
	Risk          *LegRisk // nil unless Kind == LegTrip

	// Walk-kind fields.
	DistanceM   float64
	WalkSeconds int
}
