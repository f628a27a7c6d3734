package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dcmshi/transit-planner/internal/store/memory"
)

func buildFixtureZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	writeFile := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	writeFile("stops.txt", "stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,41.38,2.17\nB,Bravo,41.39,2.18\n")
	writeFile("routes.txt", "route_id,route_short_name,route_long_name,route_type\nR1,1,Line One,3\n")
	writeFile("trips.txt", "trip_id,route_id,service_id,trip_headsign,direction_id\nT1,R1,WEEKDAY,Bravo,0\n")
	writeFile("stop_times.txt", "trip_id,stop_id,stop_sequence,arrival_time,departure_time\nT1,A,1,08:00:00,08:00:00\nT1,B,2,08:10:00,08:10:00\n")
	writeFile("calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWEEKDAY,1,1,1,1,1,0,0,20260101,20261231\n")
	writeFile("calendar_dates.txt", "service_id,date,exception_type\n")

	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestRefreshParsesAndLoadsStore(t *testing.T) {
	zipBytes := buildFixtureZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(zipBytes)
	}))
	defer srv.Close()

	ing := NewIngester(srv.URL)
	st := memory.New()

	// 2026-02-09 is a Monday, inside the calendar's weekday mask and
	// start/end range.
	now := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	result, err := ing.Refresh(context.Background(), st, now)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if result.Stops != 2 {
		t.Errorf("Stops = %d, want 2", result.Stops)
	}
	if result.Trips == 0 {
		t.Fatal("expected at least one materialized trip in the window")
	}
	if result.StopTimes == 0 {
		t.Fatal("expected materialized stop_times")
	}

	stops, err := st.ListStops(context.Background())
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if len(stops) != 2 {
		t.Errorf("store has %d stops after refresh, want 2", len(stops))
	}

	min, max, err := st.ServiceIDRange(context.Background())
	if err != nil {
		t.Fatalf("ServiceIDRange: %v", err)
	}
	if min != "20260209" {
		t.Errorf("min service_id = %q, want 20260209 (Monday in-window)", min)
	}
	if max == "" {
		t.Error("expected a non-empty max service_id")
	}
}

func TestRefreshNoFeedURLReturnsErrNoScheduleData(t *testing.T) {
	ing := NewIngester("")
	st := memory.New()
	_, err := ing.Refresh(context.Background(), st, time.Now())
	if err == nil {
		t.Fatal("expected an error with no feed url configured")
	}
}

func TestExpandServiceDatesAppliesExceptions(t *testing.T) {
	calendars := []rawCalendar{
		{serviceID: "WD", weekdays: [7]bool{true, true, true, true, true, false, false}, startDate: "20260101", endDate: "20261231"},
	}
	calendarDates := []rawCalendarDate{
		{serviceID: "WD", date: "20260207", exceptionType: 1}, // Saturday, added
		{serviceID: "WD", date: "20260209", exceptionType: 2}, // Monday, removed
	}
	dates := expandServiceDates(calendars, calendarDates, "20260201", "20260214")

	wd := dates["WD"]
	if !wd["20260207"] {
		t.Error("expected added exception date 20260207 present")
	}
	if wd["20260209"] {
		t.Error("expected removed exception date 20260209 absent")
	}
	if !wd["20260202"] {
		t.Error("expected a plain weekday (Monday 20260202) present")
	}
}
