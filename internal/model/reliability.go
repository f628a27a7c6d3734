package model

import "time"

// TimeBucket partitions the week for reliability aggregation.
type TimeBucket string

const (
	BucketWeekdayAMPeak  TimeBucket = "weekday_am_peak"
	BucketWeekdayPMPeak  TimeBucket = "weekday_pm_peak"
	BucketWeekdayOffpeak TimeBucket = "weekday_offpeak"
	BucketWeekend        TimeBucket = "weekend"
)

// ReliabilityRecord is the rolling per-(route, stop, bucket) performance
// counter set. Invariant: Observed+Cancelled <= Scheduled; all counters
// non-negative.
type ReliabilityRecord struct {
	RouteID           string
	StopID            string
	Bucket            TimeBucket
	ScheduledDepartures int
	ObservedDepartures  int
	TotalDelaySeconds   int64
	CancellationCount   int
	WindowStartDate     string // YYYYMMDD
	WindowEndDate       string // YYYYMMDD
	UpdatedAt           time.Time
}
