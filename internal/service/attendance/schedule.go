package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// FixedShift gives every employee the same daily shift, expressed as wall
// clock times in one location. An end at or before the start ends next day.
type FixedShift struct {
	start    time.Duration
	end      time.Duration
	location *time.Location
}

// NewFixedShift parses "15:04" clock strings. Both empty yields a nil
// resolver, meaning days have no schedule.
func NewFixedShift(start, end string, loc *time.Location) (*FixedShift, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	s, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("shift start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("shift end: %w", err)
	}
	if e <= s {
		e += 24 * time.Hour
	}

	return &FixedShift{start: s, end: e, location: loc}, nil
}

func parseClock(v string) (time.Duration, error) {
	offset, ok := validator.IsValidClock(v)
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", v)
	}
	return offset, nil
}

// ScheduleFor implements attendance.ScheduleResolver. A nil shift has no schedule.
func (f *FixedShift) ScheduleFor(_ context.Context, _ string, date time.Time) (attendance.Schedule, error) {
	if f == nil {
		return attendance.Schedule{}, nil
	}
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, f.location)
	start := midnight.Add(f.start).UTC()
	end := midnight.Add(f.end).UTC()
	return attendance.Schedule{Start: &start, End: &end}, nil
}
