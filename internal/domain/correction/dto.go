package correction

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type SubmitCorrectionRequest struct {
	AttendanceID      string     `json:"attendance_id"`
	RequestedBy       string     `json:"-"`
	Category          string     `json:"category"` // MISSED_CLOCK_IN, MISSED_CLOCK_OUT, WRONG_TIME, OTHER
	RequestedClockIn  *time.Time `json:"requested_clock_in,omitempty"`
	RequestedClockOut *time.Time `json:"requested_clock_out,omitempty"`
	Reason            string     `json:"reason"`
}

// Validate checks request shape. An empty reason is reported separately as
// ErrReasonRequired by the service.
func (r *SubmitCorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.AttendanceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "attendance_id",
			Message: "attendance_id is required",
		})
	}

	if validator.IsEmpty(r.RequestedBy) {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_by",
			Message: "requested_by is required",
		})
	}

	if r.Category == "" {
		r.Category = string(CategoryOther)
	}
	r.Category = strings.ToUpper(r.Category)
	if !Category(r.Category).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "category",
			Message: "category must be one of: MISSED_CLOCK_IN, MISSED_CLOCK_OUT, WRONG_TIME, OTHER",
		})
	}

	if r.RequestedClockIn != nil && r.RequestedClockOut != nil && !r.RequestedClockOut.After(*r.RequestedClockIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "requested_clock_out",
			Message: "requested_clock_out must be after requested_clock_in",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ReviewCorrectionRequest is used for both approval and rejection
type ReviewCorrectionRequest struct {
	ID         string  `json:"-"`
	ReviewedBy string  `json:"-"`
	Comments   *string `json:"comments,omitempty"`
}

func (r *ReviewCorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "correction id is required",
		})
	}

	if validator.IsEmpty(r.ReviewedBy) {
		errs = append(errs, validator.ValidationError{
			Field:   "reviewed_by",
			Message: "reviewed_by is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CorrectionResponse struct {
	ID                string  `json:"id"`
	AttendanceID      string  `json:"attendance_id"`
	EmployeeID        string  `json:"employee_id"`
	WorkDate          string  `json:"work_date"`
	RequestedBy       string  `json:"requested_by"`
	Category          string  `json:"category"`
	OriginalClockIn   *string `json:"original_clock_in,omitempty"`
	OriginalClockOut  *string `json:"original_clock_out,omitempty"`
	RequestedClockIn  *string `json:"requested_clock_in,omitempty"`
	RequestedClockOut *string `json:"requested_clock_out,omitempty"`
	Reason            string  `json:"reason"`
	Status            string  `json:"status"`
	ReviewedBy        *string `json:"reviewed_by,omitempty"`
	ReviewerComments  *string `json:"reviewer_comments,omitempty"`
	SubmittedAt       string  `json:"submitted_at"`
	ResolvedAt        *string `json:"resolved_at,omitempty"`
}

func ToResponse(c Correction) CorrectionResponse {
	return CorrectionResponse{
		ID:                c.ID,
		AttendanceID:      c.AttendanceID,
		EmployeeID:        c.EmployeeID,
		WorkDate:          c.WorkDate.Format("2006-01-02"),
		RequestedBy:       c.RequestedBy,
		Category:          string(c.Category),
		OriginalClockIn:   formatTime(c.OriginalClockIn),
		OriginalClockOut:  formatTime(c.OriginalClockOut),
		RequestedClockIn:  formatTime(c.RequestedClockIn),
		RequestedClockOut: formatTime(c.RequestedClockOut),
		Reason:            c.Reason,
		Status:            string(c.Status),
		ReviewedBy:        c.ReviewedBy,
		ReviewerComments:  c.ReviewerComments,
		SubmittedAt:       c.SubmittedAt.Format(time.RFC3339),
		ResolvedAt:        formatTime(c.ResolvedAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type CorrectionFilter struct {
	EmployeeID   *string `json:"employee_id,omitempty"`
	AttendanceID *string `json:"attendance_id,omitempty"`
	Status       *string `json:"status,omitempty"`

	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *CorrectionFilter) Validate() error {
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
		case StatusPending, StatusApproved, StatusRejected:
			*f.Status = string(status)
		default:
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: PENDING, APPROVED, REJECTED",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListCorrectionResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Corrections []CorrectionResponse `json:"corrections"`
}
