// Package scheduler runs the two background jobs spec §4.I names: a daily
// static-refresh loop and a live-feed poll loop, each its own
// goroutine+ticker, grounded on the teacher's cmd/poller/main.go (two
// independent tickers selecting on ctx.Done(), an atomic.Bool CAS guard
// against overlapping runs of the slower job).
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcmshi/transit-planner/internal/feed"
	"github.com/dcmshi/transit-planner/internal/graph"
	"github.com/dcmshi/transit-planner/internal/ingest"
	"github.com/dcmshi/transit-planner/internal/live"
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/reliability"
	"github.com/dcmshi/transit-planner/internal/resultcache"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/testsupport"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// seedWindowDays bounds how far past "today" reliability seeding
// aggregates scheduled departures, mirroring the ingest window.
const seedWindowDays = 14

// Config parameterizes the two ticker intervals.
type Config struct {
	RefreshInterval time.Duration // GTFS_REFRESH_HOURS, default 24h
	PollInterval    time.Duration // POLL_SECONDS
}

// DefaultConfig returns the spec's defaults (24h static refresh).
func DefaultConfig() Config {
	return Config{RefreshInterval: 24 * time.Hour, PollInterval: 30 * time.Second}
}

// Scheduler owns the background refresh/poll loops and the shared,
// atomically-swapped state they publish into (graph cache, live store,
// result cache, reliability tracker).
type Scheduler struct {
	cfg Config

	tt       store.Timetable
	loader   store.Loader
	ingester *ingest.Ingester
	feedClt  *feed.Client

	graphCache   *graph.Cache
	graphBuildCf graph.BuildConfig
	liveStore    *live.Store
	tracker      *reliability.Tracker
	resultCache  *resultcache.Cache
	clock        testsupport.Clock

	refreshRunning atomic.Bool

	mu              sync.Mutex
	recordedDate    string
	recordedTripIDs map[string]bool

	statusMu      sync.RWMutex
	lastRefreshAt time.Time
	lastPollAt    time.Time
	lastPollErr   error
}

// Status is the scheduler's health-reporting snapshot (component I).
type Status struct {
	LastRefreshAt time.Time
	NextRefreshAt time.Time
	LastPollAt    time.Time
	PollHealthy   bool
	LivePolling   bool // false when no feed client is configured
}

// Status reports the scheduler's last-run timestamps for the health
// endpoint, without exposing any internal locking to the caller.
func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	next := time.Time{}
	if !s.lastRefreshAt.IsZero() {
		next = s.lastRefreshAt.Add(s.cfg.RefreshInterval)
	}
	return Status{
		LastRefreshAt: s.lastRefreshAt,
		NextRefreshAt: next,
		LastPollAt:    s.lastPollAt,
		PollHealthy:   s.lastPollErr == nil,
		LivePolling:   s.feedClt != nil,
	}
}

// New builds a Scheduler. feedClt may be nil to disable live polling
// (e.g. no feed credentials configured); ingester may be nil to disable
// the static-refresh job.
func New(cfg Config, tt store.Timetable, loader store.Loader, ingester *ingest.Ingester, feedClt *feed.Client, graphCache *graph.Cache, graphBuildCf graph.BuildConfig, liveStore *live.Store, tracker *reliability.Tracker, resultCache *resultcache.Cache, clock testsupport.Clock) *Scheduler {
	return &Scheduler{
		cfg:             cfg,
		tt:              tt,
		loader:          loader,
		ingester:        ingester,
		feedClt:         feedClt,
		graphCache:      graphCache,
		graphBuildCf:    graphBuildCf,
		liveStore:       liveStore,
		tracker:         tracker,
		resultCache:     resultCache,
		clock:           clock,
		recordedTripIDs: make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled, running both background loops. An
// initial static refresh and an initial poll happen synchronously before
// the tickers start, so the process never serves routes against an empty
// graph if it can help it.
func (s *Scheduler) Run(ctx context.Context) {
	s.staticRefreshOnce(ctx)
	s.pollOnce(ctx)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.pollOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.staticRefreshOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
}

// staticRefreshOnce runs the daily-refresh sequence: download+parse feed,
// rebuild graph, reseed reliability in fill-gaps-only mode, invalidate the
// result cache. Every step's error is logged and swallowed — per spec the
// scheduler must never die from a failed refresh.
func (s *Scheduler) staticRefreshOnce(ctx context.Context) {
	if s.ingester == nil {
		return
	}
	if !s.refreshRunning.CompareAndSwap(false, true) {
		log.Println("scheduler: static refresh already running, skipping this tick")
		return
	}
	defer s.refreshRunning.Store(false)

	now := s.clock.Now()

	result, err := s.ingester.Refresh(ctx, s.loader, now)
	if err != nil {
		log.Printf("scheduler: static refresh failed: %v", err)
		return
	}
	s.statusMu.Lock()
	s.lastRefreshAt = now
	s.statusMu.Unlock()
	log.Printf("scheduler: static refresh loaded %d stops, %d trips, %d stop_times (window %s-%s)",
		result.Stops, result.Trips, result.StopTimes, result.WindowStart, result.WindowEnd)

	snap, err := graph.Build(ctx, s.tt, s.graphBuildCf)
	if err != nil {
		log.Printf("scheduler: graph rebuild failed: %v", err)
		return
	}
	s.graphCache.Swap(snap)

	if s.tracker != nil {
		if err := s.tracker.SeedFromStatic(ctx, s.tt, seedWindowDays, reliability.SeedFillGapsOnly, now); err != nil {
			log.Printf("scheduler: reliability reseed failed: %v", err)
		}
	}

	if s.resultCache != nil {
		s.resultCache.InvalidateAll()
	}
}

// pollOnce fetches the three live feeds, swaps them into the live store,
// and records today's first-seen departures into the reliability tracker.
func (s *Scheduler) pollOnce(ctx context.Context) {
	if s.feedClt == nil {
		return
	}

	tripUpdates, err := s.feedClt.FetchTripUpdates(ctx)
	s.statusMu.Lock()
	s.lastPollAt = s.clock.Now()
	s.lastPollErr = err
	s.statusMu.Unlock()
	if err != nil {
		log.Printf("scheduler: fetch trip updates failed: %v", err)
		tripUpdates = nil
	} else {
		s.liveStore.SwapTripUpdates(tripUpdates)
	}

	if positions, err := s.feedClt.FetchVehiclePositions(ctx); err != nil {
		log.Printf("scheduler: fetch vehicle positions failed: %v", err)
	} else {
		s.liveStore.SwapVehiclePositions(positions)
	}

	if alerts, err := s.feedClt.FetchAlerts(ctx); err != nil {
		log.Printf("scheduler: fetch alerts failed: %v", err)
	} else {
		s.liveStore.SwapAlerts(alerts)
	}

	if tripUpdates != nil {
		s.observeDepartures(ctx, tripUpdates)
	}
}

// observeDepartures records one reliability observation per (trip_id,
// date) the first time it's seen each service day, resetting its
// seen-set at local midnight so the next day's departures record again.
func (s *Scheduler) observeDepartures(ctx context.Context, tripUpdates map[string]model.LiveTripUpdate) {
	now := s.clock.Now()
	today := now.Format("20060102")

	s.mu.Lock()
	if s.recordedDate != today {
		s.recordedDate = today
		s.recordedTripIDs = make(map[string]bool)
	}
	s.mu.Unlock()

	for tripID, update := range tripUpdates {
		s.mu.Lock()
		already := s.recordedTripIDs[tripID]
		if !already {
			s.recordedTripIDs[tripID] = true
		}
		s.mu.Unlock()
		if already {
			continue
		}

		stopTimes, err := s.tt.TripStopTimes(ctx, tripID)
		if err != nil || len(stopTimes) == 0 {
			continue
		}

		if update.IsCancelled {
			// Every scheduled stop of a cancelled trip counts as a
			// cancellation, not just its first stop.
			for _, st := range stopTimes {
				scheduledAt, ok := timeutil.ServiceDateTime(st.ServiceID, st.DepartureTime)
				if !ok {
					continue
				}
				if err := s.tracker.Record(ctx, st.RouteID, st.StopID, scheduledAt, 0, true); err != nil {
					log.Printf("scheduler: record cancellation for trip %s stop %s failed: %v", tripID, st.StopID, err)
				}
			}
			continue
		}

		for _, st := range stopTimes {
			delay, ok := update.StopDelayOverrides[st.StopID]
			if !ok {
				continue
			}
			// classify_bucket keys on the stop's own scheduled_at, not
			// poll time, and only already-departed stops are observed.
			scheduledAt, ok := timeutil.ServiceDateTime(st.ServiceID, st.DepartureTime)
			if !ok || scheduledAt.After(now) {
				continue
			}
			if err := s.tracker.Record(ctx, st.RouteID, st.StopID, scheduledAt, delay, false); err != nil {
				log.Printf("scheduler: record delay for trip %s stop %s failed: %v", tripID, st.StopID, err)
			}
		}
	}
}
