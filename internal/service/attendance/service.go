package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/service/ledger"
	"github.com/google/uuid"
)

type AttendanceServiceImpl struct {
	ledger *ledger.Ledger
	attendance.AttendanceRepository
	attendance.BreakRepository
	schedules attendance.ScheduleResolver
	publisher events.Publisher
	clock     clock.Clock
	policy    attendance.Policy
}

func NewAttendanceService(
	l *ledger.Ledger,
	attendanceRepo attendance.AttendanceRepository,
	breakRepo attendance.BreakRepository,
	schedules attendance.ScheduleResolver,
	publisher events.Publisher,
	clk clock.Clock,
	policy attendance.Policy,
) attendance.AttendanceService {
	if publisher == nil {
		publisher = events.Discard
	}
	if clk == nil {
		clk = clock.System{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		ledger:               l,
		AttendanceRepository: attendanceRepo,
		BreakRepository:      breakRepo,
		schedules:            schedules,
		publisher:            publisher,
		clock:                clk,
		policy:               policy,
	}
}

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	at := s.instant(req.At)
	date := attendance.WorkDate(at, s.policy.Location)
	if req.Date != nil && *req.Date != "" {
		date, _ = validator.IsValidDate(*req.Date)
	}

	schedule, err := s.scheduleFor(ctx, req.EmployeeID, date, req.ScheduledStart, req.ScheduledEnd)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	location := attendance.LocationType(strings.ToUpper(req.Location))

	key := attendance.Key{EmployeeID: req.EmployeeID, Date: date}
	rec, err := s.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		if err := attendance.ClockIn(rec, at, schedule, location, s.policy); err != nil {
			return err
		}
		if req.Notes != nil {
			rec.Notes = req.Notes
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Clock in recorded",
		"employee_id", rec.EmployeeID,
		"date", rec.Date.Format("2006-01-02"),
		"attendance_id", rec.ID,
		"status", rec.Status,
		"late_minutes", rec.LateMinutes,
	)
	return s.respond(ctx, events.AttendanceClockedIn, rec), nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	at := s.instant(req.At)
	date, err := s.sessionDate(ctx, req.EmployeeID, req.Date, at)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	key := attendance.Key{EmployeeID: req.EmployeeID, Date: date}
	rec, err := s.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		if err := attendance.ClockOut(rec, at, s.policy); err != nil {
			return err
		}
		if req.Notes != nil {
			rec.Notes = req.Notes
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Clock out recorded",
		"employee_id", rec.EmployeeID,
		"date", rec.Date.Format("2006-01-02"),
		"attendance_id", rec.ID,
		"status", rec.Status,
		"worked", rec.WorkedDuration.String(),
		"overtime", rec.OvertimeDuration.String(),
	)
	return s.respond(ctx, events.AttendanceClockedOut, rec), nil
}

// StartBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.StartBreakRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	breakID, err := uuid.NewV7()
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("generate break id: %w", err)
	}

	at := s.instant(req.At)
	date, err := s.sessionDate(ctx, req.EmployeeID, req.Date, at)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	breakType := attendance.BreakType(strings.ToUpper(req.Type))

	key := attendance.Key{EmployeeID: req.EmployeeID, Date: date}
	rec, err := s.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		_, err := attendance.StartBreak(rec, breakID.String(), breakType, at)
		return err
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Break started",
		"employee_id", rec.EmployeeID,
		"date", rec.Date.Format("2006-01-02"),
		"attendance_id", rec.ID,
		"break_id", breakID.String(),
	)
	return s.respond(ctx, events.BreakStarted, rec), nil
}

// EndBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.EndBreakRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	at := s.instant(req.At)
	date, err := s.sessionDate(ctx, req.EmployeeID, req.Date, at)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	key := attendance.Key{EmployeeID: req.EmployeeID, Date: date}
	rec, err := s.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		_, err := attendance.EndBreak(rec, req.BreakID, at)
		return err
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Break ended",
		"employee_id", rec.EmployeeID,
		"date", rec.Date.Format("2006-01-02"),
		"attendance_id", rec.ID,
		"break_id", req.BreakID,
		"break_minutes", rec.BreakMinutes,
	)
	return s.respond(ctx, events.BreakEnded, rec), nil
}

// GetToday implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetToday(ctx context.Context, employeeID string) (attendance.TodayStatusResponse, error) {
	if validator.IsEmpty(employeeID) {
		return attendance.TodayStatusResponse{}, validator.ValidationErrors{{Field: "employee_id", Message: "employee_id is required"}}
	}

	today := attendance.WorkDate(s.clock.Now(), s.policy.Location)
	resp := attendance.TodayStatusResponse{Date: today.Format("2006-01-02")}

	open, err := s.AttendanceRepository.GetOpenSession(ctx, employeeID)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open != nil && !open.Date.Equal(today) {
		resp.HasOpenSession = true
		resp.OpenSession = open.Date.Format("2006-01-02")
	}

	rec, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, today)
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to get today's attendance: %w", err)
	}

	if rec == nil {
		resp.State = string(attendance.StateNotStarted)
		resp.CanClockIn = !resp.HasOpenSession
		resp.CanClockOut = resp.HasOpenSession
		resp.Message = "Not clocked in yet"
		if resp.HasOpenSession {
			resp.Message = "Clock out the session from " + resp.OpenSession + " first"
		}
		return resp, nil
	}

	if err := s.loadBreaks(ctx, rec); err != nil {
		return attendance.TodayStatusResponse{}, err
	}
	detail := attendance.ToResponse(*rec)
	resp.Attendance = &detail

	state := rec.State()
	resp.State = string(state)
	switch state {
	case attendance.StateClockedIn:
		resp.CanClockOut = true
		resp.CanStartBreak = true
		resp.Message = "Clocked in"
	case attendance.StateOnBreak:
		resp.OpenBreakID = rec.OpenBreak().ID
		resp.Message = "On break, end it before clocking out"
	case attendance.StateClockedOut:
		resp.Message = "Clocked out for the day"
	default:
		resp.CanClockIn = true
		resp.Message = "Not clocked in yet"
	}

	return resp, nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := s.loadBreaks(ctx, &rec); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.ToResponse(rec), nil
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		if err := s.loadBreaks(ctx, &rec); err != nil {
			return attendance.ListAttendanceResponse{}, err
		}
		responses = append(responses, attendance.ToResponse(rec))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

func (s *AttendanceServiceImpl) instant(at *time.Time) time.Time {
	if at != nil {
		return at.UTC()
	}
	return s.clock.Now()
}

// sessionDate picks the work day a clock-out or break event belongs to. An
// explicit date wins, then an open session, so a shift crossing midnight
// still closes the day it started on.
func (s *AttendanceServiceImpl) sessionDate(ctx context.Context, employeeID string, date *string, at time.Time) (time.Time, error) {
	if date != nil && *date != "" {
		d, _ := validator.IsValidDate(*date)
		return d, nil
	}

	open, err := s.AttendanceRepository.GetOpenSession(ctx, employeeID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open != nil {
		return open.Date, nil
	}
	return attendance.WorkDate(at, s.policy.Location), nil
}

func (s *AttendanceServiceImpl) scheduleFor(ctx context.Context, employeeID string, date time.Time, start, end *time.Time) (attendance.Schedule, error) {
	var schedule attendance.Schedule
	if s.schedules != nil && (start == nil || end == nil) {
		resolved, err := s.schedules.ScheduleFor(ctx, employeeID, date)
		if err != nil {
			return attendance.Schedule{}, fmt.Errorf("failed to resolve schedule: %w", err)
		}
		schedule = resolved
	}
	if start != nil {
		v := start.UTC()
		schedule.Start = &v
	}
	if end != nil {
		v := end.UTC()
		schedule.End = &v
	}
	return schedule, nil
}

func (s *AttendanceServiceImpl) loadBreaks(ctx context.Context, rec *attendance.Attendance) error {
	breaks, err := s.BreakRepository.ListByAttendance(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load breaks: %w", err)
	}
	rec.Breaks = breaks
	return nil
}

func (s *AttendanceServiceImpl) respond(ctx context.Context, t events.Type, rec attendance.Attendance) attendance.AttendanceResponse {
	resp := attendance.ToResponse(rec)
	events.Emit(ctx, s.publisher, events.Event{
		Type:         t,
		EmployeeID:   rec.EmployeeID,
		AttendanceID: rec.ID,
		WorkDate:     resp.Date,
		OccurredAt:   s.clock.Now(),
		Data:         resp,
	})
	return resp
}
