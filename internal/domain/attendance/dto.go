package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ========================================
// CLOCK CYCLE DTOs
// ========================================

// ClockInRequest opens a work day. At and Date default to the clock's now
// and its calendar date in the policy location.
type ClockInRequest struct {
	EmployeeID     string     `json:"-"`
	Date           *string    `json:"date,omitempty"` // YYYY-MM-DD
	At             *time.Time `json:"at,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	Location       string     `json:"location,omitempty"` // ONSITE, REMOTE
	Notes          *string    `json:"notes,omitempty"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = appendEmployee(errs, r.EmployeeID)
	errs = appendDate(errs, "date", r.Date)

	if r.Location != "" && !LocationType(strings.ToUpper(r.Location)).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "location must be one of: ONSITE, REMOTE",
		})
	}

	if r.ScheduledStart != nil && r.ScheduledEnd != nil && !r.ScheduledEnd.After(*r.ScheduledStart) {
		errs = append(errs, validator.ValidationError{
			Field:   "scheduled_end",
			Message: "scheduled_end must be after scheduled_start",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ClockOutRequest struct {
	EmployeeID string     `json:"-"`
	Date       *string    `json:"date,omitempty"` // YYYY-MM-DD
	At         *time.Time `json:"at,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = appendEmployee(errs, r.EmployeeID)
	errs = appendDate(errs, "date", r.Date)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type StartBreakRequest struct {
	EmployeeID string     `json:"-"`
	Date       *string    `json:"date,omitempty"` // YYYY-MM-DD
	Type       string     `json:"type"`           // MEAL, REST, OTHER
	At         *time.Time `json:"at,omitempty"`
}

func (r *StartBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = appendEmployee(errs, r.EmployeeID)
	errs = appendDate(errs, "date", r.Date)

	if r.Type != "" && !BreakType(strings.ToUpper(r.Type)).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: MEAL, REST, OTHER",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EndBreakRequest struct {
	EmployeeID string     `json:"-"`
	BreakID    string     `json:"-"`
	Date       *string    `json:"date,omitempty"` // YYYY-MM-DD
	At         *time.Time `json:"at,omitempty"`
}

func (r *EndBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	errs = appendEmployee(errs, r.EmployeeID)
	errs = appendDate(errs, "date", r.Date)

	if validator.IsEmpty(r.BreakID) {
		errs = append(errs, validator.ValidationError{
			Field:   "break_id",
			Message: "break_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func appendEmployee(errs validator.ValidationErrors, employeeID string) validator.ValidationErrors {
	if validator.IsEmpty(employeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	return errs
}

func appendDate(errs validator.ValidationErrors, field string, date *string) validator.ValidationErrors {
	if date != nil && *date != "" {
		if _, valid := validator.IsValidDate(*date); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: field + " must be in YYYY-MM-DD format",
			})
		}
	}
	return errs
}

// ========================================
// RESPONSE DTOs
// ========================================

type BreakResponse struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	Minutes  *int    `json:"minutes,omitempty"`
	IsActive bool    `json:"is_active"`
}

type AttendanceResponse struct {
	ID                    string          `json:"id"`
	EmployeeID            string          `json:"employee_id"`
	Date                  string          `json:"date"`
	ClockInTime           *string         `json:"clock_in_time,omitempty"`
	ClockOutTime          *string         `json:"clock_out_time,omitempty"`
	ScheduledStart        *string         `json:"scheduled_start,omitempty"`
	ScheduledEnd          *string         `json:"scheduled_end,omitempty"`
	State                 string          `json:"state"`
	Status                string          `json:"status"`
	Location              string          `json:"location"`
	Notes                 *string         `json:"notes,omitempty"`
	TotalHours            float64         `json:"total_hours"`
	RegularHours          float64         `json:"regular_hours"`
	OvertimeHours         float64         `json:"overtime_hours"`
	BreakMinutes          int             `json:"break_minutes"`
	LateMinutes           int             `json:"late_minutes"`
	EarlyDepartureMinutes int             `json:"early_departure_minutes"`
	Breaks                []BreakResponse `json:"breaks"`
	CreatedAt             string          `json:"created_at"`
	UpdatedAt             string          `json:"updated_at"`
}

// ToResponse renders the record with RFC3339 instants.
func ToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:                    a.ID,
		EmployeeID:            a.EmployeeID,
		Date:                  a.Date.Format("2006-01-02"),
		ClockInTime:           formatTime(a.ClockIn),
		ClockOutTime:          formatTime(a.ClockOut),
		ScheduledStart:        formatTime(a.ScheduledStart),
		ScheduledEnd:          formatTime(a.ScheduledEnd),
		State:                 string(a.State()),
		Status:                string(a.Status),
		Location:              string(a.Location),
		Notes:                 a.Notes,
		TotalHours:            a.TotalHours(),
		RegularHours:          a.RegularHours(),
		OvertimeHours:         a.OvertimeHours(),
		BreakMinutes:          a.BreakMinutes,
		LateMinutes:           a.LateMinutes,
		EarlyDepartureMinutes: a.EarlyDepartureMinutes,
		Breaks:                make([]BreakResponse, 0, len(a.Breaks)),
		CreatedAt:             a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             a.UpdatedAt.Format(time.RFC3339),
	}

	for _, b := range a.Breaks {
		br := BreakResponse{
			ID:       b.ID,
			Type:     string(b.Type),
			Start:    b.StartedAt.Format(time.RFC3339),
			End:      formatTime(b.EndedAt),
			IsActive: b.IsOpen(),
		}
		if !b.IsOpen() {
			minutes := int(b.Duration / time.Minute)
			br.Minutes = &minutes
		}
		resp.Breaks = append(resp.Breaks, br)
	}

	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// TodayStatusResponse tells a client which clock actions are currently allowed.
type TodayStatusResponse struct {
	Date           string              `json:"date"`
	State          string              `json:"state"`
	CanClockIn     bool                `json:"can_clock_in"`
	CanClockOut    bool                `json:"can_clock_out"`
	CanStartBreak  bool                `json:"can_start_break"`
	OpenBreakID    string              `json:"open_break_id,omitempty"`
	HasOpenSession bool                `json:"has_open_session"`
	OpenSession    string              `json:"open_session_date,omitempty"`
	Attendance     *AttendanceResponse `json:"attendance,omitempty"`
	Message        string              `json:"message"`
}

// ========================================
// LISTING DTOs
// ========================================

type AttendanceFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`

	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortBy    string `json:"sort_by"`    // date, clock_in_time, clock_out_time, status
	SortOrder string `json:"sort_order"` // asc, desc
}

var validSortFields = []string{"date", "clock_in_time", "clock_out_time", "status"}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil {
		status := Status(strings.ToUpper(*f.Status))
		switch status {
		case StatusAbsent, StatusPresent, StatusLate, StatusHalfDay, StatusOnLeave, StatusHoliday:
			*f.Status = string(status)
		default:
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: ABSENT, PRESENT, LATE, HALF_DAY, ON_LEAVE, HOLIDAY",
			})
		}
	}

	errs = appendDate(errs, "start_date", f.StartDate)
	errs = appendDate(errs, "end_date", f.EndDate)

	if f.StartDate != nil && f.EndDate != nil {
		start, okStart := validator.IsValidDate(*f.StartDate)
		end, okEnd := validator.IsValidDate(*f.EndDate)
		if okStart && okEnd && end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		}
	}

	if f.SortBy != "" {
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: " + strings.Join(validSortFields, ", "),
			})
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		f.SortOrder = strings.ToLower(f.SortOrder)
		if f.SortOrder != "asc" && f.SortOrder != "desc" {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}
