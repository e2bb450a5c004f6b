package correction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/service/ledger"
)

type CorrectionServiceImpl struct {
	ledger *ledger.Ledger
	correction.CorrectionRepository
	attendances attendance.AttendanceRepository
	publisher   events.Publisher
	clock       clock.Clock
	policy      attendance.Policy
}

func NewCorrectionService(
	l *ledger.Ledger,
	correctionRepo correction.CorrectionRepository,
	attendanceRepo attendance.AttendanceRepository,
	publisher events.Publisher,
	clk clock.Clock,
	policy attendance.Policy,
) correction.CorrectionService {
	if publisher == nil {
		publisher = events.Discard
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &CorrectionServiceImpl{
		ledger:               l,
		CorrectionRepository: correctionRepo,
		attendances:          attendanceRepo,
		publisher:            publisher,
		clock:                clk,
		policy:               policy,
	}
}

// Submit implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Submit(ctx context.Context, req correction.SubmitCorrectionRequest) (correction.CorrectionResponse, error) {
	if validator.IsEmpty(req.Reason) {
		return correction.CorrectionResponse{}, correction.ErrReasonRequired
	}
	if err := req.Validate(); err != nil {
		return correction.CorrectionResponse{}, err
	}
	if req.RequestedClockIn == nil && req.RequestedClockOut == nil {
		return correction.CorrectionResponse{}, correction.ErrNothingRequested
	}

	rec, err := s.attendances.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	now := s.clock.Now()
	c := correction.Correction{
		AttendanceID:      rec.ID,
		EmployeeID:        rec.EmployeeID,
		WorkDate:          rec.Date,
		RequestedBy:       req.RequestedBy,
		Category:          correction.Category(req.Category),
		OriginalClockIn:   rec.ClockIn,
		OriginalClockOut:  rec.ClockOut,
		RequestedClockIn:  utc(req.RequestedClockIn),
		RequestedClockOut: utc(req.RequestedClockOut),
		Reason:            req.Reason,
		Status:            correction.StatusPending,
		SubmittedAt:       now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.CorrectionRepository.Create(ctx, c)
	if err != nil {
		return correction.CorrectionResponse{}, fmt.Errorf("failed to create correction: %w", err)
	}

	slog.Info("Correction submitted",
		"correction_id", created.ID,
		"attendance_id", created.AttendanceID,
		"employee_id", created.EmployeeID,
		"category", created.Category,
	)
	return s.respond(ctx, events.CorrectionSubmitted, created), nil
}

// Approve implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Approve(ctx context.Context, req correction.ReviewCorrectionRequest) (correction.CorrectionResponse, error) {
	resolved, rec, err := s.resolve(ctx, req, correction.StatusApproved, func(c correction.Correction, rec *attendance.Attendance) error {
		return attendance.Reclock(rec, c.RequestedClockIn, c.RequestedClockOut, s.policy)
	})
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	slog.Info("Correction approved",
		"correction_id", resolved.ID,
		"attendance_id", rec.ID,
		"employee_id", rec.EmployeeID,
		"date", rec.Date.Format("2006-01-02"),
		"status", rec.Status,
	)
	return s.respond(ctx, events.CorrectionApproved, resolved), nil
}

// Reject implements correction.CorrectionService.
func (s *CorrectionServiceImpl) Reject(ctx context.Context, req correction.ReviewCorrectionRequest) (correction.CorrectionResponse, error) {
	resolved, _, err := s.resolve(ctx, req, correction.StatusRejected, nil)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}

	slog.Info("Correction rejected",
		"correction_id", resolved.ID,
		"attendance_id", resolved.AttendanceID,
		"employee_id", resolved.EmployeeID,
	)
	return s.respond(ctx, events.CorrectionRejected, resolved), nil
}

// resolve decides a pending request under the record's work day lock. apply,
// if set, mutates the record in the same transaction as the resolution.
func (s *CorrectionServiceImpl) resolve(
	ctx context.Context,
	req correction.ReviewCorrectionRequest,
	status correction.Status,
	apply func(c correction.Correction, rec *attendance.Attendance) error,
) (correction.Correction, attendance.Attendance, error) {
	if err := req.Validate(); err != nil {
		return correction.Correction{}, attendance.Attendance{}, err
	}

	c, err := s.CorrectionRepository.GetByID(ctx, req.ID)
	if err != nil {
		return correction.Correction{}, attendance.Attendance{}, err
	}
	if !c.IsPending() {
		return correction.Correction{}, attendance.Attendance{}, correction.ErrNotPending
	}

	var resolved correction.Correction
	key := attendance.Key{EmployeeID: c.EmployeeID, Date: c.WorkDate}
	rec, err := s.ledger.WithRecordLock(ctx, key, func(txCtx context.Context, rec *attendance.Attendance) error {
		current, err := s.CorrectionRepository.GetByID(txCtx, c.ID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return correction.ErrNotPending
		}
		if rec.ID != current.AttendanceID {
			return correction.ErrAttendanceMismatch
		}

		if apply != nil {
			if err := apply(current, rec); err != nil {
				return err
			}
		}

		resolved, err = s.CorrectionRepository.Resolve(txCtx, current.ID, correction.Resolution{
			Status:     status,
			ReviewedBy: req.ReviewedBy,
			Comments:   req.Comments,
			ResolvedAt: s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return correction.Correction{}, attendance.Attendance{}, err
	}

	return resolved, rec, nil
}

// GetCorrection implements correction.CorrectionService.
func (s *CorrectionServiceImpl) GetCorrection(ctx context.Context, id string) (correction.CorrectionResponse, error) {
	c, err := s.CorrectionRepository.GetByID(ctx, id)
	if err != nil {
		return correction.CorrectionResponse{}, err
	}
	return correction.ToResponse(c), nil
}

// ListCorrections implements correction.CorrectionService.
func (s *CorrectionServiceImpl) ListCorrections(ctx context.Context, filter correction.CorrectionFilter) (correction.ListCorrectionResponse, error) {
	if err := filter.Validate(); err != nil {
		return correction.ListCorrectionResponse{}, err
	}

	items, total, err := s.CorrectionRepository.List(ctx, filter)
	if err != nil {
		return correction.ListCorrectionResponse{}, fmt.Errorf("failed to list corrections: %w", err)
	}

	responses := make([]correction.CorrectionResponse, 0, len(items))
	for _, c := range items {
		responses = append(responses, correction.ToResponse(c))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return correction.ListCorrectionResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Corrections: responses,
	}, nil
}

func (s *CorrectionServiceImpl) respond(ctx context.Context, t events.Type, c correction.Correction) correction.CorrectionResponse {
	resp := correction.ToResponse(c)
	events.Emit(ctx, s.publisher, events.Event{
		Type:         t,
		EmployeeID:   c.EmployeeID,
		AttendanceID: c.AttendanceID,
		CorrectionID: c.ID,
		WorkDate:     resp.WorkDate,
		OccurredAt:   s.clock.Now(),
		Data:         resp,
	})
	return resp
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
