// Package events carries committed attendance and correction changes to
// collaborators such as notification and payroll services.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Type string

const (
	AttendanceClockedIn  Type = "attendance.clocked_in"
	AttendanceClockedOut Type = "attendance.clocked_out"
	BreakStarted         Type = "attendance.break_started"
	BreakEnded           Type = "attendance.break_ended"
	CorrectionSubmitted  Type = "correction.submitted"
	CorrectionApproved   Type = "correction.approved"
	CorrectionRejected   Type = "correction.rejected"
)

// Event describes one committed change. Data is the JSON-ready response
// body of the changed record.
type Event struct {
	Type         Type      `json:"type"`
	EmployeeID   string    `json:"employee_id"`
	AttendanceID string    `json:"attendance_id,omitempty"`
	CorrectionID string    `json:"correction_id,omitempty"`
	WorkDate     string    `json:"work_date,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	Data         any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes event and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		slog.Error("Failed to publish event",
			"type", event.Type,
			"employee_id", event.EmployeeID,
			"attendance_id", event.AttendanceID,
			"correction_id", event.CorrectionID,
			"error", err,
		)
	}
}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Discard drops every event.
var Discard Publisher = discard{}
