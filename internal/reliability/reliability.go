// Package reliability maintains rolling per-(route, stop, time-bucket)
// performance statistics: reading the historical prior, recording live
// observations, and seeding synthetic priors from the static schedule
// (component F).
package reliability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/store"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// NeutralPrior is returned when no record exists yet for a
// (route, stop, bucket) triple, or when scheduled_departures is zero.
const NeutralPrior = 0.8

// bucketPrior is a per-bucket synthetic seed used by SeedFromStatic.
type bucketPrior struct {
	reliabilityRate  float64
	cancellationRate float64
	avgDelaySeconds  int64
}

var syntheticPriors = map[model.TimeBucket]bucketPrior{
	model.BucketWeekdayAMPeak:  {reliabilityRate: 0.85, cancellationRate: 0.03, avgDelaySeconds: 180},
	model.BucketWeekdayPMPeak:  {reliabilityRate: 0.80, cancellationRate: 0.05, avgDelaySeconds: 300},
	model.BucketWeekdayOffpeak: {reliabilityRate: 0.90, cancellationRate: 0.02, avgDelaySeconds: 120},
	model.BucketWeekend:        {reliabilityRate: 0.75, cancellationRate: 0.08, avgDelaySeconds: 240},
}

// SeedMode selects SeedFromStatic's write behavior.
type SeedMode int

const (
	// SeedOverwrite replaces every aggregated triple's record wholesale.
	SeedOverwrite SeedMode = iota
	// SeedFillGapsOnly skips triples whose existing record already has
	// observed_departures > 0, preserving accumulated real data.
	SeedFillGapsOnly
)

// Tracker reads and updates reliability records, serializing concurrent
// writers to the same (route_id, stop_id, bucket) key with a per-key
// mutex — the storage engine's own row-level isolation additionally
// protects cross-process writers.
type Tracker struct {
	backend store.Reliability

	keyMu sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker wraps a store.Reliability backend.
func NewTracker(backend store.Reliability) *Tracker {
	return &Tracker{backend: backend, locks: make(map[string]*sync.Mutex)}
}

// RecordCount returns the number of reliability records currently stored,
// for the health endpoint.
func (t *Tracker) RecordCount(ctx context.Context) (int, error) {
	return t.backend.RecordCount(ctx)
}

func (t *Tracker) lockFor(routeID, stopID string, bucket model.TimeBucket) *sync.Mutex {
	key := routeID + "|" + stopID + "|" + string(bucket)
	t.keyMu.Lock()
	defer t.keyMu.Unlock()
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	return m
}

// GetHistoricalReliability returns the [0,1] historical prior for
// (routeID, stopID, bucket). Absent record or zero scheduled_departures
// yields NeutralPrior.
func (t *Tracker) GetHistoricalReliability(ctx context.Context, routeID, stopID string, bucket model.TimeBucket) (float64, error) {
	rec, ok, err := t.backend.Get(ctx, routeID, stopID, bucket)
	if err != nil {
		return 0, fmt.Errorf("get historical reliability: %w", err)
	}
	if !ok || rec.ScheduledDepartures == 0 {
		return NeutralPrior, nil
	}

	observedRate := float64(rec.ObservedDepartures) / float64(rec.ScheduledDepartures)
	cancelRate := float64(rec.CancellationCount) / float64(rec.ScheduledDepartures)

	avgDelayMin := 0.0
	if rec.ObservedDepartures > 0 {
		avgDelayMin = (float64(rec.TotalDelaySeconds) / float64(rec.ObservedDepartures)) / 60
	}
	delayPenalty := min1(avgDelayMin/30) * 0.2

	score := observedRate*(1-cancelRate) - delayPenalty
	return clamp01(score), nil
}

// Record upserts an observation: scheduled_at classifies the bucket,
// scheduled_departures always increments, and either cancellation_count
// or observed_departures+total_delay_seconds increments depending on
// wasCancelled.
func (t *Tracker) Record(ctx context.Context, routeID, stopID string, scheduledAt time.Time, delaySeconds int, wasCancelled bool) error {
	bucket := model.TimeBucket(timeutil.ClassifyBucket(scheduledAt))

	mu := t.lockFor(routeID, stopID, bucket)
	mu.Lock()
	defer mu.Unlock()

	windowEnd := scheduledAt.Format("20060102")
	observedDelta, cancelDelta, delayDelta := 0, 0, int64(0)
	if wasCancelled {
		cancelDelta = 1
	} else {
		observedDelta = 1
		delayDelta = int64(delaySeconds)
	}
	if err := t.backend.Observe(ctx, routeID, stopID, bucket, 1, observedDelta, cancelDelta, delayDelta, windowEnd, time.Now().UTC()); err != nil {
		return fmt.Errorf("record reliability observation: %w", err)
	}
	return nil
}

// SeedFromStatic discovers the service_id range, aggregates scheduled
// departures by (route_id, stop_id, bucket) across a window_days window
// starting at today if today falls in range (else at the range minimum),
// and writes synthetic-prior-derived counters. Fails with
// model.ErrNoScheduleData when the trips table is empty.
func (t *Tracker) SeedFromStatic(ctx context.Context, tt store.Timetable, windowDays int, mode SeedMode, now time.Time) error {
	minID, maxID, err := tt.ServiceIDRange(ctx)
	if err != nil {
		return fmt.Errorf("seed from static: service id range: %w", err)
	}
	if minID == "" || maxID == "" {
		return fmt.Errorf("seed from static: %w", model.ErrNoScheduleData)
	}

	today := now.Format("20060102")
	start := minID
	if today >= minID && today <= maxID {
		start = today
	}
	end := addDays(start, windowDays-1)
	if end > maxID {
		end = maxID
	}

	aggs, err := tt.AggregateScheduledDepartures(ctx, start, end)
	if err != nil {
		return fmt.Errorf("seed from static: aggregate: %w", err)
	}

	// Collapse per-(route,stop,bucket) across the date/hour grain the
	// store aggregates at, classifying bucket from the scheduled
	// service date/hour per the Open Question resolution documented in
	// DESIGN.md — NOT from "now".
	type key struct {
		routeID, stopID string
		bucket          model.TimeBucket
	}
	counts := map[key]int{}
	for _, a := range aggs {
		isWeekend := isWeekendDate(a.ServiceDate)
		bucket := model.TimeBucket(timeutil.ClassifyBucketFromHour(a.HourOfDay, isWeekend))
		counts[key{a.RouteID, a.StopID, bucket}] += a.Count
	}

	for k, n := range counts {
		if mode == SeedFillGapsOnly {
			existing, ok, err := t.backend.Get(ctx, k.routeID, k.stopID, k.bucket)
			if err != nil {
				return fmt.Errorf("seed from static: get existing: %w", err)
			}
			if ok && existing.ObservedDepartures > 0 {
				continue
			}
		}

		p := syntheticPriors[k.bucket]
		observed := roundInt(float64(n) * p.reliabilityRate)
		cancelled := roundInt(float64(n) * p.cancellationRate)
		totalDelay := int64(observed) * p.avgDelaySeconds

		rec := model.ReliabilityRecord{
			RouteID:             k.routeID,
			StopID:              k.stopID,
			Bucket:              k.bucket,
			ScheduledDepartures: n,
			ObservedDepartures:  observed,
			CancellationCount:   cancelled,
			TotalDelaySeconds:   totalDelay,
			WindowStartDate:     start,
			WindowEndDate:       end,
			UpdatedAt:           now.UTC(),
		}
		if err := t.backend.Seed(ctx, rec); err != nil {
			return fmt.Errorf("seed from static: write: %w", err)
		}
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func min1(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}

func roundInt(x float64) int {
	if x < 0 {
		return 0
	}
	return int(x + 0.5)
}

// addDays adds n days to a YYYYMMDD date string.
func addDays(yyyymmdd string, n int) string {
	t, err := time.Parse("20060102", yyyymmdd)
	if err != nil {
		return yyyymmdd
	}
	return t.AddDate(0, 0, n).Format("20060102")
}

func isWeekendDate(yyyymmdd string) bool {
	t, err := time.Parse("20060102", yyyymmdd)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
