package correction

import "time"

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Category string

const (
	CategoryMissedClockIn  Category = "MISSED_CLOCK_IN"
	CategoryMissedClockOut Category = "MISSED_CLOCK_OUT"
	CategoryWrongTime      Category = "WRONG_TIME"
	CategoryOther          Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMissedClockIn, CategoryMissedClockOut, CategoryWrongTime, CategoryOther:
		return true
	}
	return false
}

// Correction asks for the clock instants of one attendance record to be
// overwritten. It is resolved exactly once and is immutable afterwards.
type Correction struct {
	ID           string
	AttendanceID string
	EmployeeID   string
	WorkDate     time.Time
	RequestedBy  string
	Category     Category

	// Snapshot of the record when the request was submitted
	OriginalClockIn  *time.Time
	OriginalClockOut *time.Time

	RequestedClockIn  *time.Time
	RequestedClockOut *time.Time
	Reason            string

	Status           Status
	ReviewedBy       *string
	ReviewerComments *string
	SubmittedAt      time.Time
	ResolvedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Correction) IsPending() bool {
	return c.Status == StatusPending
}

// Resolution is the outcome written when a pending request is decided.
type Resolution struct {
	Status     Status
	ReviewedBy string
	Comments   *string
	ResolvedAt time.Time
}

// Resolve applies r if the request is still pending.
func (c *Correction) Resolve(r Resolution) error {
	if !c.IsPending() {
		return ErrNotPending
	}
	reviewer := r.ReviewedBy
	resolvedAt := r.ResolvedAt
	c.Status = r.Status
	c.ReviewedBy = &reviewer
	c.ReviewerComments = r.Comments
	c.ResolvedAt = &resolvedAt
	return nil
}
