package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return workDate.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func newLedger(opts Options) (*Ledger, attendance.AttendanceRepository, attendance.BreakRepository) {
	store := memory.NewStore()
	attendanceRepo := memory.NewAttendanceRepository(store)
	breakRepo := memory.NewBreakRepository(store)
	return New(store, attendanceRepo, breakRepo, clock.NewFixed(at("08:00")), opts), attendanceRepo, breakRepo
}

func clockInFn(when time.Time) MutateFunc {
	return func(_ context.Context, rec *attendance.Attendance) error {
		return attendance.ClockIn(rec, when, attendance.Schedule{}, "", attendance.DefaultPolicy())
	}
}

func TestWithRecordLock_CreatesOnFirstUse(t *testing.T) {
	l, repo, _ := newLedger(Options{})
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	rec, err := l.WithRecordLock(context.Background(), key, clockInFn(at("09:00")))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, at("08:00"), rec.CreatedAt)

	stored, err := repo.GetByEmployeeAndDate(context.Background(), "emp-1", workDate)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rec.ID, stored.ID)
	assert.Equal(t, at("09:00"), *stored.ClockIn)
}

func TestWithRecordLock_FailureLeavesRecordUntouched(t *testing.T) {
	l, repo, breaks := newLedger(Options{})
	ctx := context.Background()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	_, err := l.WithRecordLock(ctx, key, clockInFn(at("09:00")))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = l.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		if _, err := attendance.StartBreak(rec, "b1", attendance.BreakMeal, at("12:00")); err != nil {
			return err
		}
		rec.Notes = new(string)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByEmployeeAndDate(ctx, "emp-1", workDate)
	require.NoError(t, err)
	assert.Nil(t, stored.Notes)
	got, err := breaks.ListByAttendance(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithRecordLock_PersistsBreaks(t *testing.T) {
	l, _, breaks := newLedger(Options{})
	ctx := context.Background()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	rec, err := l.WithRecordLock(ctx, key, clockInFn(at("09:00")))
	require.NoError(t, err)

	_, err = l.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		_, err := attendance.StartBreak(rec, "b1", attendance.BreakMeal, at("12:00"))
		return err
	})
	require.NoError(t, err)

	updated, err := l.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		_, err := attendance.EndBreak(rec, "b1", at("12:30"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.BreakMinutes)

	stored, err := breaks.ListByAttendance(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].AttendanceID)
	assert.False(t, stored[0].IsOpen())
}

func TestWithRecordLock_ConcurrentClockInExactlyOnce(t *testing.T) {
	l, _, _ := newLedger(Options{})
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	const callers = 16
	var wg sync.WaitGroup
	var succeeded, alreadyIn atomic.Int32
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := l.WithRecordLock(context.Background(), key, clockInFn(at("09:00").Add(time.Duration(i)*time.Second)))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, attendance.ErrAlreadyClockedIn):
				alreadyIn.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(callers-1), alreadyIn.Load())
	assert.Equal(t, 0, l.locks.len())
}

func TestWithRecordLock_DifferentKeysDoNotBlock(t *testing.T) {
	l, _, _ := newLedger(Options{})
	inside := make(chan struct{})
	hold := make(chan struct{})

	go func() {
		_, _ = l.WithRecordLock(context.Background(), attendance.Key{EmployeeID: "emp-1", Date: workDate},
			func(ctx context.Context, rec *attendance.Attendance) error {
				close(inside)
				<-hold
				return nil
			})
	}()
	<-inside
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.WithRecordLock(ctx, attendance.Key{EmployeeID: "emp-2", Date: workDate}, clockInFn(at("09:00")))
	assert.NoError(t, err)
}

func TestWithRecordLock_WaitTimeout(t *testing.T) {
	l, repo, _ := newLedger(Options{WaitTimeout: 20 * time.Millisecond})
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}
	inside := make(chan struct{})
	hold := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = l.WithRecordLock(context.Background(), key, func(ctx context.Context, rec *attendance.Attendance) error {
			close(inside)
			<-hold
			return nil
		})
	}()
	<-inside

	_, err := l.WithRecordLock(context.Background(), key, clockInFn(at("09:00")))
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(hold)
	<-done

	stored, err := repo.GetByEmployeeAndDate(context.Background(), "emp-1", workDate)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, 0, l.locks.len())
}

func TestWithRecordLock_CancelledWhileWaiting(t *testing.T) {
	l, _, _ := newLedger(Options{})
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}
	inside := make(chan struct{})
	hold := make(chan struct{})
	defer close(hold)

	go func() {
		_, _ = l.WithRecordLock(context.Background(), key, func(ctx context.Context, rec *attendance.Attendance) error {
			close(inside)
			<-hold
			return nil
		})
	}()
	<-inside

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	errc := make(chan error, 1)
	go func() {
		_, err := l.WithRecordLock(ctx, key, func(ctx context.Context, rec *attendance.Attendance) error {
			ran.Store(true)
			return nil
		})
		errc <- err
	}()
	cancel()

	err := <-errc
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran.Load())
}

func TestWithRecordLock_NoChangeSkipsWrite(t *testing.T) {
	l, repo, _ := newLedger(Options{})
	ctx := context.Background()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	_, err := l.WithRecordLock(ctx, key, func(context.Context, *attendance.Attendance) error { return nil })
	require.NoError(t, err)

	stored, err := repo.GetByEmployeeAndDate(ctx, "emp-1", workDate)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLockTable_ArrivalOrder(t *testing.T) {
	table := newLockTable()
	ctx := context.Background()

	release, err := table.acquire(ctx, "k")
	require.NoError(t, err)

	const waiters = 5
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, err := table.acquire(ctx, "k")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			rel()
		}(i)
		// let waiter i block before i+1 arrives
		require.Eventually(t, func() bool {
			table.mu.Lock()
			defer table.mu.Unlock()
			return table.entries["k"].refs == i+2
		}, time.Second, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, table.len())
}

func TestLockTable_ReleaseIsIdempotent(t *testing.T) {
	table := newLockTable()
	release, err := table.acquire(context.Background(), "k")
	require.NoError(t, err)

	release()
	release()
	assert.Equal(t, 0, table.len())

	again, err := table.acquire(context.Background(), "k")
	require.NoError(t, err)
	again()
}
