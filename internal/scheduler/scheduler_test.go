package scheduler

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dcmshi/transit-planner/internal/feed"
	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/ingest"
	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/reliability"
	"github.com/dcmshi/transit-planner/internal/resultcache"
	"github.com/dcmshi/transit-planner/internal/store/memory"
	"github.com/dcmshi/transit-planner/internal/testsupport"
)

func fixtureZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	write := func(name, content string) {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write([]byte(content))
	}
	write("stops.txt", "stop_id,stop_name,stop_lat,stop_lon\nA,Alpha,41.38,2.17\nB,Bravo,41.39,2.18\n")
	write("routes.txt", "route_id,route_short_name,route_long_name,route_type\nR1,1,Line One,3\n")
	write("trips.txt", "trip_id,route_id,service_id,trip_headsign,direction_id\nT1,R1,WD,Bravo,0\n")
	write("stop_times.txt", "trip_id,stop_id,stop_sequence,arrival_time,departure_time\nT1,A,1,08:00:00,08:00:00\nT1,B,2,08:10:00,08:10:00\n")
	write("calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWD,1,1,1,1,1,0,0,20260101,20261231\n")
	write("calendar_dates.txt", "service_id,date,exception_type\n")
	w.Close()
	return buf.Bytes()
}

func TestStaticRefreshOnceRebuildsGraphAndSeedsReliability(t *testing.T) {
	zipBytes := fixtureZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipBytes)
	}))
	defer srv.Close()

	st := memory.New()
	sch := New(
		Config{RefreshInterval: time.Hour, PollInterval: time.Minute},
		st, st,
		ingest.NewIngester(srv.URL),
		nil,
		graph.NewCache(), graph.DefaultBuildConfig(),
		live.NewStore(),
		reliability.NewTracker(st),
		resultcache.New(),
		testsupport.FixedClock{At: time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC)},
	)

	sch.staticRefreshOnce(context.Background())

	if sch.graphCache.Current() == nil {
		t.Fatal("expected a graph snapshot after static refresh")
	}
	if sch.graphCache.Current().NodeCount() == 0 {
		t.Error("expected a non-empty graph after refresh")
	}
}

func TestPollOnceNoFeedClientIsNoOp(t *testing.T) {
	st := memory.New()
	sch := New(
		DefaultConfig(),
		st, st,
		nil, nil,
		graph.NewCache(), graph.DefaultBuildConfig(),
		live.NewStore(),
		reliability.NewTracker(st),
		resultcache.New(),
		testsupport.SystemClock{},
	)
	sch.pollOnce(context.Background()) // must not panic
}

func TestPollOnceDisabledFeedURLsYieldEmptyState(t *testing.T) {
	st := memory.New()
	liveStore := live.NewStore()
	sch := New(
		DefaultConfig(),
		st, st,
		nil,
		feed.NewClient("", "", ""),
		graph.NewCache(), graph.DefaultBuildConfig(),
		liveStore,
		reliability.NewTracker(st),
		resultcache.New(),
		testsupport.SystemClock{},
	)
	sch.pollOnce(context.Background())
	if len(liveStore.Alerts()) != 0 {
		t.Error("expected no alerts with disabled feed urls")
	}
}

func TestObserveDeparturesCancellationRecordsEveryStop(t *testing.T) {
	st := memory.New()
	st.AddTrip(model.Trip{ID: "T1", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, DepartureTime: "08:00:00"},
		{StopID: "B", StopSequence: 2, DepartureTime: "08:10:00"},
		{StopID: "C", StopSequence: 3, DepartureTime: "08:25:00"},
	})
	tracker := reliability.NewTracker(st)
	sch := New(
		DefaultConfig(),
		st, st,
		nil, nil,
		graph.NewCache(), graph.DefaultBuildConfig(),
		live.NewStore(),
		tracker,
		resultcache.New(),
		testsupport.FixedClock{At: time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC)},
	)

	sch.observeDepartures(context.Background(), map[string]model.LiveTripUpdate{
		"T1": {TripID: "T1", RouteID: "R1", IsCancelled: true},
	})

	for _, stopID := range []string{"A", "B", "C"} {
		rec, ok, err := st.Get(context.Background(), "R1", stopID, model.BucketWeekdayAMPeak)
		if err != nil {
			t.Fatalf("Get(%s): %v", stopID, err)
		}
		if !ok || rec.CancellationCount != 1 {
			t.Errorf("stop %s: expected one recorded cancellation, got ok=%v rec=%+v", stopID, ok, rec)
		}
	}
}

func TestObserveDeparturesDelayUsesScheduledAtAndSkipsFutureStops(t *testing.T) {
	st := memory.New()
	st.AddTrip(model.Trip{ID: "T1", RouteID: "R1", ServiceID: "20260209"}, []model.StopTime{
		{StopID: "A", StopSequence: 1, DepartureTime: "08:00:00"},
		{StopID: "B", StopSequence: 2, DepartureTime: "08:10:00"},
		{StopID: "C", StopSequence: 3, DepartureTime: "23:00:00"},
	})
	tracker := reliability.NewTracker(st)
	sch := New(
		DefaultConfig(),
		st, st,
		nil, nil,
		graph.NewCache(), graph.DefaultBuildConfig(),
		live.NewStore(),
		tracker,
		resultcache.New(),
		// 08:15 local on the trip's own service date: A and B have
		// already departed, C has not.
		testsupport.FixedClock{At: time.Date(2026, 2, 9, 8, 15, 0, 0, time.UTC)},
	)

	sch.observeDepartures(context.Background(), map[string]model.LiveTripUpdate{
		"T1": {
			TripID:  "T1",
			RouteID: "R1",
			StopDelayOverrides: map[string]int{
				"A": 60,
				"B": 90,
				"C": 30,
			},
		},
	})

	recA, okA, _ := st.Get(context.Background(), "R1", "A", model.BucketWeekdayAMPeak)
	if !okA || recA.ObservedDepartures != 1 {
		t.Errorf("stop A: expected one observed departure, got ok=%v rec=%+v", okA, recA)
	}
	recB, okB, _ := st.Get(context.Background(), "R1", "B", model.BucketWeekdayAMPeak)
	if !okB || recB.ObservedDepartures != 1 {
		t.Errorf("stop B: expected one observed departure, got ok=%v rec=%+v", okB, recB)
	}
	if _, okC, _ := st.Get(context.Background(), "R1", "C", model.BucketWeekdayOffpeak); okC {
		t.Error("stop C: departs after clock time, should not be recorded yet")
	}
}
