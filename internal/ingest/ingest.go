// Package ingest is the StaticIngester boundary named in SPEC_FULL's
// internal/feed notes: downloads one GTFS static zip, parses it, expands
// calendar.txt/calendar_dates.txt into concrete per-date trips, and
// publishes the result through store.Loader. Grounded on the teacher's
// apps/poller/internal/static package (Download + Parse + populate
// dimension tables), collapsed into a single in-process step since this
// module has no separate web/public asset pipeline to write manifests into.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
)

// downloadTimeout is the daily-refresh feed download's hard timeout per
// spec §5 ("Feed download in daily refresh: 60-second timeout").
const downloadTimeout = 60 * time.Second

// windowDays bounds how far into the future calendar.txt is expanded into
// concrete trips. Routing never looks more than one service date ahead, so
// a short rolling window keeps the store small without dropping any date
// find_routes could plausibly be asked about soon.
const windowDays = 14

// Result summarizes one completed Refresh, for logging and the
// trigger_static_ingest HTTP response.
type Result struct {
	RunID       string
	FeedURL     string
	Stops       int
	Trips       int
	StopTimes   int
	WindowStart string
	WindowEnd   string
	RefreshedAt time.Time
}

// Ingester downloads and parses one GTFS static feed URL.
type Ingester struct {
	httpClient *http.Client
	feedURL    string
}

// NewIngester builds an Ingester for feedURL. An empty feedURL makes
// Refresh a no-op that returns model.ErrNoScheduleData, so a deployment
// without static-feed configuration fails loudly rather than silently
// skipping every scheduled refresh.
func NewIngester(feedURL string) *Ingester {
	return &Ingester{
		httpClient: &http.Client{Timeout: downloadTimeout},
		feedURL:    feedURL,
	}
}

// Refresh downloads the configured feed, parses it, expands calendars
// across [now, now+windowDays-1], and replaces the timetable store's
// contents via loader. now anchors the expansion window (testsupport.Clock
// in callers, so this is deterministic in tests).
func (g *Ingester) Refresh(ctx context.Context, loader store.Loader, now time.Time) (Result, error) {
	if g.feedURL == "" {
		return Result{}, fmt.Errorf("ingest: %w: no static feed url configured", model.ErrNoScheduleData)
	}

	runID := uuid.New().String()
	log.Printf("ingest[%s]: starting refresh from %s", runID, g.feedURL)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	body, err := g.download(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("download feed: %w", err)
	}

	raw, err := parseZip(body, func(format string, args ...any) {
		log.Printf("ingest[%s]: warning: "+format, runID, args...)
	})
	if err != nil {
		return Result{}, fmt.Errorf("parse feed: %w", err)
	}

	windowStart := now.Format("20060102")
	windowEnd := now.AddDate(0, 0, windowDays-1).Format("20060102")
	serviceDates := expandServiceDates(raw.calendars, raw.calendarDates, windowStart, windowEnd)

	data := materialize(raw, serviceDates)

	if err := loader.ReplaceStaticData(ctx, data); err != nil {
		return Result{}, fmt.Errorf("%w: replace static data: %v", model.ErrStorage, err)
	}

	log.Printf("ingest[%s]: loaded %d stops, %d trips, %d stop_times", runID, len(data.Stops), len(data.Trips), len(data.StopTimes))

	return Result{
		RunID:       runID,
		FeedURL:     g.feedURL,
		Stops:       len(data.Stops),
		Trips:       len(data.Trips),
		StopTimes:   len(data.StopTimes),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		RefreshedAt: now,
	}, nil
}

func (g *Ingester) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", model.ErrTransientFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrTransientFetch, err)
	}
	return data, nil
}

// materialize expands raw trips across every concrete service date their
// service_id runs on in the window, emitting one model.Trip per
// (trip_id, date) pair with ServiceID set to the date itself — the
// materialization the rest of the system (store, reliability, routing)
// relies on so "service_id" always means "YYYYMMDD date" downstream.
func materialize(raw *rawData, serviceDates map[string]map[string]bool) store.StaticData {
	data := store.StaticData{}

	for _, s := range raw.stops {
		data.Stops = append(data.Stops, model.Stop{ID: s.stopID, Name: s.stopName, Lat: s.stopLat, Lon: s.stopLon})
	}
	for _, r := range raw.routes {
		data.Routes = append(data.Routes, model.Route{
			ID:        r.routeID,
			ShortName: r.routeShortName,
			LongName:  r.routeLongName,
			Type:      model.RouteType(r.routeType),
		})
	}

	stopTimesByTrip := make(map[string][]rawStopTime)
	for _, st := range raw.stopTimes {
		stopTimesByTrip[st.tripID] = append(stopTimesByTrip[st.tripID], st)
	}

	for _, tr := range raw.trips {
		dates := serviceDates[tr.serviceID]
		for date := range dates {
			materializedID := tr.tripID + "@" + date
			data.Trips = append(data.Trips, model.Trip{
				ID:          materializedID,
				RouteID:     tr.routeID,
				ServiceID:   date,
				Headsign:    tr.headsign,
				DirectionID: tr.directionID,
			})
			for _, st := range stopTimesByTrip[tr.tripID] {
				data.StopTimes = append(data.StopTimes, model.StopTime{
					TripID:        materializedID,
					RouteID:       tr.routeID,
					ServiceID:     date,
					StopID:        st.stopID,
					StopSequence:  st.stopSequence,
					ArrivalTime:   st.arrivalTime,
					DepartureTime: st.departureTime,
				})
			}
		}
	}

	return data
}
