package report

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

const maxTimesheetDays = 366

type TimesheetRequest struct {
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
}

func (r *TimesheetRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	if end.Before(start) {
		return ErrInvalidDateRange
	}
	if end.Sub(start) >= maxTimesheetDays*24*time.Hour {
		return ErrRangeTooLong
	}

	return nil
}

// TimesheetRow is one work day. Clock times are rendered in the policy location.
type TimesheetRow struct {
	Date                  string  `json:"date"`
	ClockIn               string  `json:"clock_in"`
	ClockOut              string  `json:"clock_out"`
	BreakMinutes          int     `json:"break_minutes"`
	TotalHours            float64 `json:"total_hours"`
	RegularHours          float64 `json:"regular_hours"`
	OvertimeHours         float64 `json:"overtime_hours"`
	LateMinutes           int     `json:"late_minutes"`
	EarlyDepartureMinutes int     `json:"early_departure_minutes"`
	Status                string  `json:"status"`
}

type TimesheetTotals struct {
	DaysWorked            int     `json:"days_worked"`
	BreakMinutes          int     `json:"break_minutes"`
	TotalHours            float64 `json:"total_hours"`
	RegularHours          float64 `json:"regular_hours"`
	OvertimeHours         float64 `json:"overtime_hours"`
	LateMinutes           int     `json:"late_minutes"`
	EarlyDepartureMinutes int     `json:"early_departure_minutes"`
}

type Timesheet struct {
	EmployeeID  string          `json:"employee_id"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	GeneratedAt string          `json:"generated_at"`
	Rows        []TimesheetRow  `json:"rows"`
	Totals      TimesheetTotals `json:"totals"`
}
