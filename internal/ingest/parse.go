package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// rawData is everything parse pulls out of one GTFS zip, before calendar
// expansion. Field names mirror the GTFS column names they come from.
type rawData struct {
	stops         []rawStop
	routes        []rawRoute
	trips         []rawTrip
	stopTimes     []rawStopTime
	calendars     []rawCalendar
	calendarDates []rawCalendarDate
}

type rawStop struct {
	stopID   string
	stopName string
	stopLat  float64
	stopLon  float64
}

type rawRoute struct {
	routeID        string
	routeShortName string
	routeLongName  string
	routeType      int
}

type rawTrip struct {
	tripID      string
	routeID     string
	serviceID   string
	headsign    string
	directionID int
}

type rawStopTime struct {
	tripID        string
	stopID        string
	stopSequence  int
	arrivalTime   string
	departureTime string
}

type rawCalendar struct {
	serviceID string
	weekdays  [7]bool // Monday=0 ... Sunday=6
	startDate string
	endDate   string
}

type rawCalendarDate struct {
	serviceID     string
	date          string
	exceptionType int
}

// parseZip reads a GTFS feed from an in-memory zip, grounded on the
// teacher's archive/zip + encoding/csv parser: per-entity parse functions
// sharing a header-index lookup, warn-and-continue on a malformed row
// rather than aborting the whole file.
func parseZip(data []byte, warn func(format string, args ...any)) (*rawData, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open feed zip: %w", err)
	}

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	out := &rawData{}

	if f, ok := files["stops.txt"]; ok {
		out.stops, err = parseCSV(f, func(rec []string, idx map[string]int) (rawStop, bool) {
			lat, errLat := strconv.ParseFloat(getField(rec, idx, "stop_lat"), 64)
			lon, errLon := strconv.ParseFloat(getField(rec, idx, "stop_lon"), 64)
			if errLat != nil || errLon != nil {
				return rawStop{}, false
			}
			return rawStop{
				stopID:   getField(rec, idx, "stop_id"),
				stopName: getField(rec, idx, "stop_name"),
				stopLat:  lat,
				stopLon:  lon,
			}, true
		})
		if err != nil {
			warn("parse stops.txt: %v", err)
		}
	}

	if f, ok := files["routes.txt"]; ok {
		out.routes, err = parseCSV(f, func(rec []string, idx map[string]int) (rawRoute, bool) {
			routeType, _ := strconv.Atoi(getField(rec, idx, "route_type"))
			return rawRoute{
				routeID:        getField(rec, idx, "route_id"),
				routeShortName: getField(rec, idx, "route_short_name"),
				routeLongName:  getField(rec, idx, "route_long_name"),
				routeType:      routeType,
			}, true
		})
		if err != nil {
			warn("parse routes.txt: %v", err)
		}
	}

	if f, ok := files["trips.txt"]; ok {
		out.trips, err = parseCSV(f, func(rec []string, idx map[string]int) (rawTrip, bool) {
			directionID, _ := strconv.Atoi(getField(rec, idx, "direction_id"))
			return rawTrip{
				tripID:      getField(rec, idx, "trip_id"),
				routeID:     getField(rec, idx, "route_id"),
				serviceID:   getField(rec, idx, "service_id"),
				headsign:    getField(rec, idx, "trip_headsign"),
				directionID: directionID,
			}, true
		})
		if err != nil {
			warn("parse trips.txt: %v", err)
		}
	}

	if f, ok := files["stop_times.txt"]; ok {
		out.stopTimes, err = parseCSV(f, func(rec []string, idx map[string]int) (rawStopTime, bool) {
			seq, errSeq := strconv.Atoi(getField(rec, idx, "stop_sequence"))
			if errSeq != nil {
				return rawStopTime{}, false
			}
			return rawStopTime{
				tripID:        getField(rec, idx, "trip_id"),
				stopID:        getField(rec, idx, "stop_id"),
				stopSequence:  seq,
				arrivalTime:   getField(rec, idx, "arrival_time"),
				departureTime: getField(rec, idx, "departure_time"),
			}, true
		})
		if err != nil {
			warn("parse stop_times.txt: %v", err)
		}
	}

	if f, ok := files["calendar.txt"]; ok {
		out.calendars, err = parseCSV(f, func(rec []string, idx map[string]int) (rawCalendar, bool) {
			c := rawCalendar{
				serviceID: getField(rec, idx, "service_id"),
				startDate: getField(rec, idx, "start_date"),
				endDate:   getField(rec, idx, "end_date"),
			}
			days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
			for i, col := range days {
				c.weekdays[i] = getField(rec, idx, col) == "1"
			}
			return c, true
		})
		if err != nil {
			warn("parse calendar.txt: %v", err)
		}
	}

	if f, ok := files["calendar_dates.txt"]; ok {
		out.calendarDates, err = parseCSV(f, func(rec []string, idx map[string]int) (rawCalendarDate, bool) {
			exceptionType, errType := strconv.Atoi(getField(rec, idx, "exception_type"))
			if errType != nil {
				return rawCalendarDate{}, false
			}
			return rawCalendarDate{
				serviceID:     getField(rec, idx, "service_id"),
				date:          getField(rec, idx, "date"),
				exceptionType: exceptionType,
			}, true
		})
		if err != nil {
			warn("parse calendar_dates.txt: %v", err)
		}
	}

	return out, nil
}

// parseCSV opens f, reads the header row, then calls convert once per
// remaining row; convert returns ok=false to skip a malformed row without
// aborting the file.
func parseCSV[T any](f *zip.File, convert func(record []string, idx map[string]int) (T, bool)) ([]T, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	idx := makeIndex(header)

	var out []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		v, ok := convert(record, idx)
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
