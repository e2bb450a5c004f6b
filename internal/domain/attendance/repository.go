package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
// Records are unique per (employee, work date) and are never deleted.
type AttendanceRepository interface {
	// Create inserts a new record and returns it with its generated ID.
	// Returns ErrAttendanceExists if the work day already has a record.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// Update overwrites the mutable fields of an existing record
	Update(ctx context.Context, attendance Attendance) error

	// GetByID retrieves a record without its breaks
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetByEmployeeAndDate returns nil, nil when the work day has no record
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)

	// GetOpenSession returns the most recent record that is clocked in but not clocked out
	GetOpenSession(ctx context.Context, employeeID string) (*Attendance, error)

	// LockWorkDay takes the storage-level exclusive right on a work day for the
	// current transaction. Callers must be inside a transaction.
	LockWorkDay(ctx context.Context, key Key) error

	// List retrieves records with filters and pagination
	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)
}

// BreakRepository stores the breaks owned by an attendance record.
type BreakRepository interface {
	ListByAttendance(ctx context.Context, attendanceID string) ([]Break, error)

	// Save inserts the break or updates it when the ID already exists
	Save(ctx context.Context, b Break) (Break, error)
}

// ScheduleResolver supplies the planned shift for a work day. A nil Start or
// End means the day has no such boundary.
type ScheduleResolver interface {
	ScheduleFor(ctx context.Context, employeeID string, date time.Time) (Schedule, error)
}
