package model

// RouteType mirrors the GTFS route_type enumeration. Only bus (3) is a
// routing target in this system; others may still appear in the
// timetable store and are passed through untouched.
type RouteType int

const (
	RouteTypeTram    RouteType = 0
	RouteTypeSubway  RouteType = 1
	RouteTypeRail    RouteType = 2
	RouteTypeBus     RouteType = 3
	RouteTypeFerry   RouteType = 4
	RouteTypeCable   RouteType = 5
	RouteTypeAerial  RouteType = 6
	RouteTypeFunicular RouteType = 7
)

// Route identifies a scheduled service line.
type Route struct {
	ID        string
	ShortName string
	LongName  string
	Type      RouteType
}
