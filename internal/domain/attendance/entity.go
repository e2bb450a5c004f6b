package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timecalc"
)

type Status string

const (
	StatusAbsent  Status = "ABSENT"
	StatusPresent Status = "PRESENT"
	StatusLate    Status = "LATE"
	StatusHalfDay Status = "HALF_DAY"
	StatusOnLeave Status = "ON_LEAVE"
	StatusHoliday Status = "HOLIDAY"
)

// DayState is the clock cycle position of a work day. It is derived from the
// record's fields and never stored.
type DayState string

const (
	StateNotStarted DayState = "NOT_STARTED"
	StateClockedIn  DayState = "CLOCKED_IN"
	StateOnBreak    DayState = "ON_BREAK"
	StateClockedOut DayState = "CLOCKED_OUT"
)

type BreakType string

const (
	BreakMeal  BreakType = "MEAL"
	BreakRest  BreakType = "REST"
	BreakOther BreakType = "OTHER"
)

func (t BreakType) Valid() bool {
	switch t {
	case BreakMeal, BreakRest, BreakOther:
		return true
	}
	return false
}

type LocationType string

const (
	LocationOnsite LocationType = "ONSITE"
	LocationRemote LocationType = "REMOTE"
)

func (l LocationType) Valid() bool {
	return l == LocationOnsite || l == LocationRemote
}

// Attendance is the single record of one employee's work day. It owns its
// breaks; corrections reference it by ID.
type Attendance struct {
	ID             string
	EmployeeID     string
	Date           time.Time
	ClockIn        *time.Time
	ClockOut       *time.Time
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	Status         Status
	Location       LocationType
	Notes          *string

	WorkedDuration   time.Duration
	RegularDuration  time.Duration
	OvertimeDuration time.Duration

	BreakMinutes          int
	LateMinutes           int
	EarlyDepartureMinutes int

	Breaks []Break

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Break struct {
	ID           string
	AttendanceID string
	Type         BreakType
	StartedAt    time.Time
	EndedAt      *time.Time
	Duration     time.Duration
	CreatedAt    time.Time
}

func (b Break) IsOpen() bool {
	return b.EndedAt == nil
}

// Key identifies one work day.
type Key struct {
	EmployeeID string
	Date       time.Time
}

func (k Key) String() string {
	return k.EmployeeID + "/" + k.Date.Format("2006-01-02")
}

// WorkDate normalizes t to midnight UTC of its calendar date in loc.
func WorkDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (a Attendance) Key() Key {
	return Key{EmployeeID: a.EmployeeID, Date: a.Date}
}

// IsNew reports whether the record has not been persisted yet.
func (a Attendance) IsNew() bool {
	return a.ID == ""
}

func (a Attendance) State() DayState {
	switch {
	case a.ClockIn == nil:
		return StateNotStarted
	case a.ClockOut != nil:
		return StateClockedOut
	case a.OpenBreak() != nil:
		return StateOnBreak
	default:
		return StateClockedIn
	}
}

// OpenBreak returns the break without an end instant, if any.
func (a *Attendance) OpenBreak() *Break {
	for i := range a.Breaks {
		if a.Breaks[i].IsOpen() {
			return &a.Breaks[i]
		}
	}
	return nil
}

func (a *Attendance) FindBreak(id string) *Break {
	for i := range a.Breaks {
		if a.Breaks[i].ID == id {
			return &a.Breaks[i]
		}
	}
	return nil
}

// ClosedBreakIntervals lists the [start, end) spans of every closed break.
func (a Attendance) ClosedBreakIntervals() []timecalc.Interval {
	intervals := make([]timecalc.Interval, 0, len(a.Breaks))
	for _, b := range a.Breaks {
		if b.EndedAt == nil {
			continue
		}
		intervals = append(intervals, timecalc.Interval{Start: b.StartedAt, End: *b.EndedAt})
	}
	return intervals
}

func (a Attendance) TotalHours() float64 {
	total, _, _ := timecalc.SplitHours(a.WorkedDuration, a.RegularDuration)
	return total
}

func (a Attendance) RegularHours() float64 {
	_, regular, _ := timecalc.SplitHours(a.WorkedDuration, a.RegularDuration)
	return regular
}

// OvertimeHours is total minus regular after rounding both.
func (a Attendance) OvertimeHours() float64 {
	_, _, overtime := timecalc.SplitHours(a.WorkedDuration, a.RegularDuration)
	return overtime
}

// Clone returns a deep copy so a failed mutation never leaks into the original.
func (a Attendance) Clone() Attendance {
	c := a
	c.ClockIn = cloneTime(a.ClockIn)
	c.ClockOut = cloneTime(a.ClockOut)
	c.ScheduledStart = cloneTime(a.ScheduledStart)
	c.ScheduledEnd = cloneTime(a.ScheduledEnd)
	if a.Notes != nil {
		n := *a.Notes
		c.Notes = &n
	}
	if a.Breaks != nil {
		c.Breaks = make([]Break, len(a.Breaks))
		for i, b := range a.Breaks {
			b.EndedAt = cloneTime(b.EndedAt)
			c.Breaks[i] = b
		}
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Policy holds the tolerances used when deriving time accounting.
type Policy struct {
	GraceMinutes               int
	EarlyDepartureGraceMinutes int
	DailyOvertimeThreshold     time.Duration
	HalfDayThreshold           time.Duration
	Location                   *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		GraceMinutes:           5,
		DailyOvertimeThreshold: 8 * time.Hour,
		HalfDayThreshold:       4 * time.Hour,
		Location:               time.UTC,
	}
}

// Schedule is the planned shift for one work day.
type Schedule struct {
	Start *time.Time
	End   *time.Time
}

// NormalizeDate drops the time of day, keeping d's calendar date at midnight UTC.
func NormalizeDate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
