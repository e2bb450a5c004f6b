package attendance

import (
	"context"
)

// AttendanceService defines business logic for the daily clock cycle
type AttendanceService interface {
	// ClockIn opens the work day, creating its record on first use
	ClockIn(ctx context.Context, req ClockInRequest) (AttendanceResponse, error)

	// ClockOut closes the work day and finalizes its time accounting
	ClockOut(ctx context.Context, req ClockOutRequest) (AttendanceResponse, error)

	StartBreak(ctx context.Context, req StartBreakRequest) (AttendanceResponse, error)
	EndBreak(ctx context.Context, req EndBreakRequest) (AttendanceResponse, error)

	// GetToday reports the employee's position in today's clock cycle
	GetToday(ctx context.Context, employeeID string) (TodayStatusResponse, error)

	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
}
