package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timecalc"
)

// ClockIn moves a NOT_STARTED day to CLOCKED_IN.
func ClockIn(rec *Attendance, at time.Time, schedule Schedule, location LocationType, policy Policy) error {
	if rec.ClockIn != nil {
		return ErrAlreadyClockedIn
	}

	rec.ClockIn = &at
	if schedule.Start != nil {
		rec.ScheduledStart = schedule.Start
	}
	if schedule.End != nil {
		rec.ScheduledEnd = schedule.End
	}
	if location.Valid() {
		rec.Location = location
	} else if !rec.Location.Valid() {
		rec.Location = LocationOnsite
	}

	return Recompute(rec, policy)
}

// ClockOut moves a CLOCKED_IN day to CLOCKED_OUT. An open break is never
// closed implicitly; the caller must end it first.
func ClockOut(rec *Attendance, at time.Time, policy Policy) error {
	switch rec.State() {
	case StateNotStarted:
		return ErrNotClockedIn
	case StateClockedOut:
		return ErrAlreadyClockedOut
	case StateOnBreak:
		return ErrOpenBreakExists
	}

	if !at.After(*rec.ClockIn) {
		return ErrInvalidInterval
	}
	for _, b := range rec.Breaks {
		if b.EndedAt != nil && b.EndedAt.After(at) {
			return ErrInvalidInterval
		}
	}

	rec.ClockOut = &at
	return Recompute(rec, policy)
}

// Reclock overwrites the clock instants with the non-nil values given and
// recomputes the day as if those had been the original clock events.
func Reclock(rec *Attendance, clockIn, clockOut *time.Time, policy Policy) error {
	newIn := rec.ClockIn
	if clockIn != nil {
		newIn = clockIn
	}
	newOut := rec.ClockOut
	if clockOut != nil {
		newOut = clockOut
	}

	if newIn == nil {
		return ErrNotClockedIn
	}
	if newOut != nil {
		if !newOut.After(*newIn) {
			return ErrInvalidInterval
		}
		if HasOpenBreak(rec) {
			return ErrOpenBreakExists
		}
	}
	for _, b := range rec.Breaks {
		if b.StartedAt.Before(*newIn) {
			return ErrInvalidInterval
		}
		if newOut != nil && b.EndedAt != nil && b.EndedAt.After(*newOut) {
			return ErrInvalidInterval
		}
	}

	in := *newIn
	rec.ClockIn = &in
	if newOut != nil {
		out := *newOut
		rec.ClockOut = &out
	}
	return Recompute(rec, policy)
}

// Recompute derives every accounting field from the clock instants, the
// schedule and the closed breaks. It is the only place derived fields are set.
func Recompute(rec *Attendance, policy Policy) error {
	rec.BreakMinutes = TotalBreakMinutes(rec)

	rec.LateMinutes = 0
	if rec.ClockIn != nil && rec.ScheduledStart != nil {
		rec.LateMinutes = timecalc.Lateness(*rec.ScheduledStart, *rec.ClockIn, policy.GraceMinutes)
	}

	rec.EarlyDepartureMinutes = 0
	if rec.ClockOut != nil && rec.ScheduledEnd != nil {
		rec.EarlyDepartureMinutes = timecalc.EarlyDeparture(*rec.ScheduledEnd, *rec.ClockOut, policy.EarlyDepartureGraceMinutes)
	}

	rec.WorkedDuration, rec.RegularDuration, rec.OvertimeDuration = 0, 0, 0
	if rec.ClockIn != nil && rec.ClockOut != nil {
		worked, err := timecalc.ExcludeIntervals(
			timecalc.Interval{Start: *rec.ClockIn, End: *rec.ClockOut},
			rec.ClosedBreakIntervals(),
		)
		if err != nil {
			return err
		}
		rec.WorkedDuration = worked
		rec.RegularDuration, rec.OvertimeDuration = timecalc.SplitRegularOvertime(worked, policy.DailyOvertimeThreshold)
	}

	rec.Status = DeriveStatus(*rec, policy)
	return nil
}

// DeriveStatus maps a record's fields to its summary status. Days without a
// clock-in keep an externally assigned ABSENT, ON_LEAVE or HOLIDAY marker.
func DeriveStatus(rec Attendance, policy Policy) Status {
	if rec.ClockIn == nil {
		switch rec.Status {
		case StatusOnLeave, StatusHoliday, StatusAbsent:
			return rec.Status
		}
		return StatusAbsent
	}

	if rec.ClockOut != nil && policy.HalfDayThreshold > 0 && rec.WorkedDuration < policy.HalfDayThreshold {
		return StatusHalfDay
	}
	if rec.LateMinutes > 0 {
		return StatusLate
	}
	return StatusPresent
}
