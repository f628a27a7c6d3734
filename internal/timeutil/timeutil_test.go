package timeutil

import (
	"testing"
	"time"
)

func TestParseHMSRoundTrip(t *testing.T) {
	cases := []struct {
		h, m, s int
	}{
		{0, 0, 0},
		{6, 30, 15},
		{23, 59, 59},
		{25, 10, 5}, // post-midnight continuation
		{100, 0, 0},
	}
	for _, c := range cases {
		s := FormatHMS(c.h*3600 + c.m*60 + c.s)
		got := ParseHMS(s)
		want := c.h*3600 + c.m*60 + c.s
		if got != want {
			t.Errorf("ParseHMS(FormatHMS(%d,%d,%d)) = %d, want %d", c.h, c.m, c.s, got, want)
		}
	}
}

func TestParseHMSMalformed(t *testing.T) {
	for _, s := range []string{"", "garbage", "12:34", "12:60:00", "ab:cd:ef", "1:2:3:4"} {
		if got := ParseHMS(s); got != 0 {
			t.Errorf("ParseHMS(%q) = %d, want 0", s, got)
		}
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	d := HaversineM(41.38, 2.17, 41.38, 2.17)
	if d != 0 {
		t.Errorf("HaversineM same point = %f, want 0", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Barcelona Sants to Placa Catalunya, roughly 2.7km.
	d := HaversineM(41.3792, 2.1400, 41.3870, 2.1701)
	if d < 2000 || d > 3500 {
		t.Errorf("HaversineM = %f, expected roughly 2000-3500m", d)
	}
}

// S1 — bucket boundaries.
func TestClassifyBucketBoundaries(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		dt   time.Time
		want Bucket
	}{
		{"mon-0600", time.Date(2026, 2, 9, 6, 0, 0, 0, loc), BucketWeekdayAMPeak},
		{"mon-0900", time.Date(2026, 2, 9, 9, 0, 0, 0, loc), BucketWeekdayOffpeak},
		{"mon-1500", time.Date(2026, 2, 9, 15, 0, 0, 0, loc), BucketWeekdayPMPeak},
		{"mon-1900", time.Date(2026, 2, 9, 19, 0, 0, 0, loc), BucketWeekdayOffpeak},
		{"sat-1000", time.Date(2026, 2, 7, 10, 0, 0, 0, loc), BucketWeekend},
	}
	for _, c := range cases {
		if got := ClassifyBucket(c.dt); got != c.want {
			t.Errorf("%s: ClassifyBucket = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestClassifyBucketWeekendIgnoresHour(t *testing.T) {
	for h := 0; h < 24; h++ {
		dt := time.Date(2026, 2, 8, h, 0, 0, 0, time.UTC) // Sunday
		if got := ClassifyBucket(dt); got != BucketWeekend {
			t.Errorf("Sunday hour %d classified as %s, want weekend", h, got)
		}
	}
}
