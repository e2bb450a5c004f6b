package attendance

import (
	"errors"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timecalc"
)

// Attendance domain errors
var (
	// State violations
	ErrAlreadyClockedIn   = errors.New("already clocked in for this work day")
	ErrNotClockedIn       = errors.New("not clocked in for this work day")
	ErrAlreadyClockedOut  = errors.New("already clocked out for this work day")
	ErrBreakAlreadyOpen   = errors.New("a break is already open")
	ErrBreakAlreadyClosed = errors.New("break has already been closed")
	ErrBreakNotFound      = errors.New("break not found")
	ErrBreakExists        = errors.New("break id already used for this work day")
	ErrOpenBreakExists    = errors.New("an open break must be ended before clocking out")

	// Input violations
	ErrInvalidInterval = timecalc.ErrInvalidInterval

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrAttendanceExists   = errors.New("attendance record already exists for this work day")
)
