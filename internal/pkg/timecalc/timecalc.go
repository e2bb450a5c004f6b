package timecalc

import (
	"errors"
	"sort"
	"time"
)

var ErrInvalidInterval = errors.New("interval end precedes its start")

// Interval is a half-open span of time [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Elapsed returns end - start. It fails when end precedes start.
func Elapsed(start, end time.Time) (time.Duration, error) {
	if end.Before(start) {
		return 0, ErrInvalidInterval
	}
	return end.Sub(start), nil
}

// ExcludeIntervals returns the duration of total minus the union of the
// given sub-intervals. Sub-intervals are clipped to total and merged before
// subtraction, so overlapping time is only removed once.
func ExcludeIntervals(total Interval, intervals []Interval) (time.Duration, error) {
	whole, err := Elapsed(total.Start, total.End)
	if err != nil {
		return 0, err
	}

	clipped := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.Before(iv.Start) {
			return 0, ErrInvalidInterval
		}
		start, end := iv.Start, iv.End
		if start.Before(total.Start) {
			start = total.Start
		}
		if end.After(total.End) {
			end = total.End
		}
		if !end.After(start) {
			continue
		}
		clipped = append(clipped, Interval{Start: start, End: end})
	}

	var excluded time.Duration
	for _, iv := range Merge(clipped) {
		excluded += iv.End.Sub(iv.Start)
	}

	worked := whole - excluded
	if worked < 0 {
		worked = 0
	}
	return worked, nil
}

// Merge sorts intervals by start and joins any that overlap or touch.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SplitRegularOvertime splits worked time at the daily threshold.
// A non-positive threshold means every worked minute is regular time.
func SplitRegularOvertime(worked, threshold time.Duration) (regular, overtime time.Duration) {
	if worked < 0 {
		worked = 0
	}
	if threshold <= 0 || worked <= threshold {
		return worked, 0
	}
	return threshold, worked - threshold
}

// Lateness is the whole minutes actualStart exceeds scheduledStart beyond
// the grace window, floored at zero.
func Lateness(scheduledStart, actualStart time.Time, graceMinutes int) int {
	return minutesBeyond(actualStart.Sub(scheduledStart), graceMinutes)
}

// EarlyDeparture is the whole minutes actualEnd precedes scheduledEnd beyond
// the grace window, floored at zero.
func EarlyDeparture(scheduledEnd, actualEnd time.Time, graceMinutes int) int {
	return minutesBeyond(scheduledEnd.Sub(actualEnd), graceMinutes)
}

func minutesBeyond(diff time.Duration, graceMinutes int) int {
	if graceMinutes < 0 {
		graceMinutes = 0
	}
	minutes := int(diff/time.Minute) - graceMinutes
	if minutes < 0 {
		return 0
	}
	return minutes
}

// WholeMinutes truncates d to whole minutes.
func WholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Hours converts d to fractional hours rounded to two decimals.
func Hours(d time.Duration) float64 {
	return float64(centiHours(d)) / 100
}

// SplitHours rounds worked and regular to two decimals and derives overtime
// from the rounded values, so regular + overtime always equals total.
func SplitHours(worked, regular time.Duration) (total, reg, overtime float64) {
	totalCents := centiHours(worked)
	regCents := min(centiHours(regular), totalCents)
	return float64(totalCents) / 100, float64(regCents) / 100, float64(totalCents-regCents) / 100
}

func centiHours(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d.Hours()*100 + 0.5)
}
