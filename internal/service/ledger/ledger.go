// Package ledger serializes every mutation of a work day's attendance record.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
)

var ErrLockTimeout = errors.New("timed out waiting for attendance record lock")

// MutateFunc changes rec in place. rec is a private copy: returning an error
// discards every change. ctx carries the ledger transaction.
type MutateFunc func(ctx context.Context, rec *attendance.Attendance) error

type Options struct {
	// WaitTimeout bounds how long a caller waits for a busy key. Zero waits
	// until the caller's context is done.
	WaitTimeout time.Duration
}

type Ledger struct {
	locks *lockTable
	tx    database.Transactor
	attendance.AttendanceRepository
	attendance.BreakRepository
	clock clock.Clock
	opts  Options
}

func New(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	breakRepo attendance.BreakRepository,
	clk clock.Clock,
	opts Options,
) *Ledger {
	if clk == nil {
		clk = clock.System{}
	}
	return &Ledger{
		locks:                newLockTable(),
		tx:                   tx,
		AttendanceRepository: attendanceRepo,
		BreakRepository:      breakRepo,
		clock:                clk,
		opts:                 opts,
	}
}

// WithRecordLock runs fn against the record for key while holding the key
// exclusively. A missing record is handed to fn as a fresh, unsaved one.
// Changes made by fn are persisted in one transaction before the key is
// released; no change at all skips the write.
func (l *Ledger) WithRecordLock(ctx context.Context, key attendance.Key, fn MutateFunc) (attendance.Attendance, error) {
	key.Date = attendance.NormalizeDate(key.Date)

	release, err := l.wait(ctx, key)
	if err != nil {
		return attendance.Attendance{}, err
	}
	defer release()

	// Once inside, the operation runs to completion even if the caller leaves.
	ctx = context.WithoutCancel(ctx)

	var result attendance.Attendance
	err = l.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := l.AttendanceRepository.LockWorkDay(txCtx, key); err != nil {
			return fmt.Errorf("lock work day: %w", err)
		}

		current, err := l.load(txCtx, key)
		if err != nil {
			return err
		}

		working := current.Clone()
		if err := fn(txCtx, &working); err != nil {
			return err
		}

		if reflect.DeepEqual(current, working) {
			result = working
			return nil
		}

		saved, err := l.persist(txCtx, current, working)
		if err != nil {
			return err
		}
		result = saved
		return nil
	})
	if err != nil {
		return attendance.Attendance{}, err
	}

	return result, nil
}

func (l *Ledger) wait(ctx context.Context, key attendance.Key) (func(), error) {
	waitCtx := ctx
	if l.opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.opts.WaitTimeout)
		defer cancel()
	}

	release, err := l.locks.acquire(waitCtx, key.String())
	if err == nil {
		return release, nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Attendance lock wait timed out",
			"employee_id", key.EmployeeID,
			"date", key.Date.Format("2006-01-02"),
			"timeout", l.opts.WaitTimeout,
		)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return nil, fmt.Errorf("wait for attendance lock: %w", err)
}

func (l *Ledger) load(ctx context.Context, key attendance.Key) (attendance.Attendance, error) {
	rec, err := l.AttendanceRepository.GetByEmployeeAndDate(ctx, key.EmployeeID, key.Date)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("load attendance: %w", err)
	}
	if rec == nil {
		return attendance.Attendance{EmployeeID: key.EmployeeID, Date: key.Date}, nil
	}

	breaks, err := l.BreakRepository.ListByAttendance(ctx, rec.ID)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("load breaks: %w", err)
	}
	rec.Breaks = breaks
	return *rec, nil
}

func (l *Ledger) persist(ctx context.Context, before, after attendance.Attendance) (attendance.Attendance, error) {
	now := l.clock.Now()
	after.UpdatedAt = now

	if after.IsNew() {
		after.CreatedAt = now
		created, err := l.AttendanceRepository.Create(ctx, after)
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("create attendance: %w", err)
		}
		after.ID = created.ID
		after.CreatedAt = created.CreatedAt
	} else if err := l.AttendanceRepository.Update(ctx, after); err != nil {
		return attendance.Attendance{}, fmt.Errorf("update attendance: %w", err)
	}

	for i := range after.Breaks {
		b := &after.Breaks[i]
		if prev := before.FindBreak(b.ID); prev != nil && reflect.DeepEqual(*prev, *b) {
			continue
		}
		b.AttendanceID = after.ID
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		saved, err := l.BreakRepository.Save(ctx, *b)
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("save break: %w", err)
		}
		*b = saved
	}

	return after, nil
}
