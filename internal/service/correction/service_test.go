package correction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/service/ledger"
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

func ptr(t time.Time) *time.Time { return &t }

type fixture struct {
	svc         correction.CorrectionService
	ledger      *ledger.Ledger
	attendances attendance.AttendanceRepository
	breaks      attendance.BreakRepository
	clock       *clock.Fixed
	policy      attendance.Policy
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	attendanceRepo := memory.NewAttendanceRepository(store)
	breakRepo := memory.NewBreakRepository(store)
	correctionRepo := memory.NewCorrectionRepository(store)
	clk := clock.NewFixed(at("18:00"))
	policy := attendance.DefaultPolicy()

	l := ledger.New(store, attendanceRepo, breakRepo, clk, ledger.Options{WaitTimeout: time.Second})
	return fixture{
		svc:         NewCorrectionService(l, correctionRepo, attendanceRepo, nil, clk, policy),
		ledger:      l,
		attendances: attendanceRepo,
		breaks:      breakRepo,
		clock:       clk,
		policy:      policy,
	}
}

// closedDay records 09:00-17:00 against a 09:00 start, with clock-in at in.
func (f fixture) closedDay(t *testing.T, in string) attendance.Attendance {
	t.Helper()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}
	rec, err := f.ledger.WithRecordLock(context.Background(), key, func(_ context.Context, rec *attendance.Attendance) error {
		schedule := attendance.Schedule{Start: ptr(at("09:00")), End: ptr(at("17:00"))}
		if err := attendance.ClockIn(rec, at(in), schedule, "", f.policy); err != nil {
			return err
		}
		return attendance.ClockOut(rec, at("17:00"), f.policy)
	})
	require.NoError(t, err)
	return rec
}

func (f fixture) submit(t *testing.T, attendanceID string, in *time.Time, out *time.Time) correction.CorrectionResponse {
	t.Helper()
	resp, err := f.svc.Submit(context.Background(), correction.SubmitCorrectionRequest{
		AttendanceID:      attendanceID,
		RequestedBy:       "user-1",
		Category:          "WRONG_TIME",
		RequestedClockIn:  in,
		RequestedClockOut: out,
		Reason:            "badge reader was down",
	})
	require.NoError(t, err)
	return resp
}

func TestSubmit_SnapshotsRecord(t *testing.T) {
	f := newFixture(t)
	rec := f.closedDay(t, "09:20")

	resp := f.submit(t, rec.ID, ptr(at("08:45")), nil)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "emp-1", resp.EmployeeID)
	assert.Equal(t, "2025-03-10", resp.WorkDate)
	require.NotNil(t, resp.OriginalClockIn)
	assert.Equal(t, at("09:20").Format(time.RFC3339), *resp.OriginalClockIn)
	assert.Equal(t, at("18:00").Format(time.RFC3339), resp.SubmittedAt)
}

func TestSubmit_Errors(t *testing.T) {
	f := newFixture(t)
	rec := f.closedDay(t, "09:00")
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, correction.SubmitCorrectionRequest{AttendanceID: rec.ID, RequestedBy: "u", RequestedClockIn: ptr(at("08:00")), Reason: "  "})
	assert.ErrorIs(t, err, correction.ErrReasonRequired)

	_, err = f.svc.Submit(ctx, correction.SubmitCorrectionRequest{AttendanceID: rec.ID, RequestedBy: "u", Reason: "forgot"})
	assert.ErrorIs(t, err, correction.ErrNothingRequested)

	_, err = f.svc.Submit(ctx, correction.SubmitCorrectionRequest{AttendanceID: "missing", RequestedBy: "u", RequestedClockIn: ptr(at("08:00")), Reason: "forgot"})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestApprove_RecomputesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.closedDay(t, "09:20")
	require.Equal(t, 15, rec.LateMinutes)
	require.Equal(t, attendance.StatusLate, rec.Status)

	c := f.submit(t, rec.ID, ptr(at("08:45")), nil)
	comments := "ok"
	approved, err := f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr-1", Comments: &comments})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, "mgr-1", *approved.ReviewedBy)
	assert.NotNil(t, approved.ResolvedAt)

	updated, err := f.attendances.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, at("08:45"), *updated.ClockIn)
	assert.Equal(t, 0, updated.LateMinutes)
	assert.Equal(t, attendance.StatusPresent, updated.Status)
	assert.Equal(t, 8*time.Hour+15*time.Minute, updated.WorkedDuration)
	assert.Equal(t, 15*time.Minute, updated.OvertimeDuration)
}

func TestApprove_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.closedDay(t, "09:20")
	c := f.submit(t, rec.ID, ptr(at("08:45")), nil)

	_, err := f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr-1"})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr-2"})
	assert.ErrorIs(t, err, correction.ErrNotPending)

	got, err := f.svc.GetCorrection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", *got.ReviewedBy)
}

func TestApprove_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.closedDay(t, "09:20")
	c := f.submit(t, rec.ID, ptr(at("08:45")), nil)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr"})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, correction.ErrNotPending)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestReject_LeavesRecordUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.closedDay(t, "09:20")

	first := f.submit(t, rec.ID, ptr(at("08:45")), nil)
	_, err := f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: first.ID, ReviewedBy: "mgr"})
	require.NoError(t, err)
	approved, err := f.attendances.GetByID(ctx, rec.ID)
	require.NoError(t, err)

	second := f.submit(t, rec.ID, ptr(at("08:45")), nil)
	rejected, err := f.svc.Reject(ctx, correction.ReviewCorrectionRequest{ID: second.ID, ReviewedBy: "mgr"})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)

	after, err := f.attendances.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, approved, after)

	_, err = f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: second.ID, ReviewedBy: "mgr"})
	assert.ErrorIs(t, err, correction.ErrNotPending)
}

func TestApprove_InvalidWindowStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	rec, err := f.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		if err := attendance.ClockIn(rec, at("09:00"), attendance.Schedule{}, "", f.policy); err != nil {
			return err
		}
		if _, err := attendance.StartBreak(rec, "b1", attendance.BreakMeal, at("12:00")); err != nil {
			return err
		}
		_, err := attendance.EndBreak(rec, "b1", at("12:30"))
		return err
	})
	require.NoError(t, err)

	c := f.submit(t, rec.ID, nil, ptr(at("12:15")))
	_, err = f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr"})
	assert.ErrorIs(t, err, attendance.ErrInvalidInterval)

	got, err := f.svc.GetCorrection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", got.Status)

	stored, err := f.attendances.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ClockOut)
}

func TestApprove_MissedClockOutWhileOnBreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := attendance.Key{EmployeeID: "emp-1", Date: workDate}

	rec, err := f.ledger.WithRecordLock(ctx, key, func(_ context.Context, rec *attendance.Attendance) error {
		if err := attendance.ClockIn(rec, at("09:00"), attendance.Schedule{}, "", f.policy); err != nil {
			return err
		}
		_, err := attendance.StartBreak(rec, "b1", attendance.BreakRest, at("15:00"))
		return err
	})
	require.NoError(t, err)

	c := f.submit(t, rec.ID, nil, ptr(at("17:00")))
	_, err = f.svc.Approve(ctx, correction.ReviewCorrectionRequest{ID: c.ID, ReviewedBy: "mgr"})
	assert.ErrorIs(t, err, attendance.ErrOpenBreakExists)
}

func TestListCorrections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.closedDay(t, "09:20")

	first := f.submit(t, rec.ID, ptr(at("08:45")), nil)
	f.clock.Advance(time.Minute)
	f.submit(t, rec.ID, nil, ptr(at("17:30")))
	_, err := f.svc.Reject(ctx, correction.ReviewCorrectionRequest{ID: first.ID, ReviewedBy: "mgr"})
	require.NoError(t, err)

	pending := "pending"
	list, err := f.svc.ListCorrections(ctx, correction.CorrectionFilter{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)
	assert.Equal(t, "1-1 of 1", list.Showing)

	all, err := f.svc.ListCorrections(ctx, correction.CorrectionFilter{AttendanceID: &rec.ID})
	require.NoError(t, err)
	require.Len(t, all.Corrections, 2)
	assert.Equal(t, "REJECTED", all.Corrections[1].Status)
}
