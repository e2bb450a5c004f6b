package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timecalc"
)

// StartBreak appends a new open break. At most one break may be open, and a
// new break may not start before an earlier break has ended.
func StartBreak(rec *Attendance, id string, breakType BreakType, at time.Time) (*Break, error) {
	if rec.ClockIn == nil || rec.ClockOut != nil {
		return nil, ErrNotClockedIn
	}
	if HasOpenBreak(rec) {
		return nil, ErrBreakAlreadyOpen
	}
	if rec.FindBreak(id) != nil {
		return nil, ErrBreakExists
	}
	if at.Before(*rec.ClockIn) {
		return nil, ErrInvalidInterval
	}
	for _, b := range rec.Breaks {
		if b.EndedAt != nil && at.Before(*b.EndedAt) {
			return nil, ErrInvalidInterval
		}
	}
	if !breakType.Valid() {
		breakType = BreakOther
	}

	rec.Breaks = append(rec.Breaks, Break{
		ID:           id,
		AttendanceID: rec.ID,
		Type:         breakType,
		StartedAt:    at,
	})
	return &rec.Breaks[len(rec.Breaks)-1], nil
}

// EndBreak closes an open break and refreshes the record's break total.
func EndBreak(rec *Attendance, breakID string, at time.Time) (*Break, error) {
	b := rec.FindBreak(breakID)
	if b == nil {
		return nil, ErrBreakNotFound
	}
	if !b.IsOpen() {
		return nil, ErrBreakAlreadyClosed
	}
	if at.Before(b.StartedAt) {
		return nil, ErrInvalidInterval
	}

	end := at
	b.EndedAt = &end
	b.Duration = end.Sub(b.StartedAt)
	rec.BreakMinutes = TotalBreakMinutes(rec)
	return b, nil
}

func HasOpenBreak(rec *Attendance) bool {
	return rec.OpenBreak() != nil
}

// TotalBreakMinutes sums the durations of all closed breaks.
func TotalBreakMinutes(rec *Attendance) int {
	var total time.Duration
	for _, b := range rec.Breaks {
		if b.EndedAt != nil {
			total += b.Duration
		}
	}
	return timecalc.WholeMinutes(total)
}
