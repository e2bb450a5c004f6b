package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func on(day int, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2025, 3, day, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func seedDay(t *testing.T, repo attendance.AttendanceRepository, day int, in, out string, breakMinutes int) {
	t.Helper()
	policy := attendance.DefaultPolicy()
	rec := attendance.Attendance{
		EmployeeID: "emp-1",
		Date:       time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
	}
	schedule := attendance.Schedule{Start: ptr(on(day, "09:00")), End: ptr(on(day, "17:00"))}

	require.NoError(t, attendance.ClockIn(&rec, on(day, in), schedule, "", policy))
	if breakMinutes > 0 {
		start := on(day, "12:00")
		_, err := attendance.StartBreak(&rec, "b-1", attendance.BreakMeal, start)
		require.NoError(t, err)
		_, err = attendance.EndBreak(&rec, "b-1", start.Add(time.Duration(breakMinutes)*time.Minute))
		require.NoError(t, err)
	}
	require.NoError(t, attendance.ClockOut(&rec, on(day, out), policy))

	_, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
}

func newService(t *testing.T) report.ReportService {
	t.Helper()
	repo := memory.NewAttendanceRepository(memory.NewStore())
	seedDay(t, repo, 10, "09:00", "17:30", 30)
	seedDay(t, repo, 11, "09:20", "18:20", 0)
	seedDay(t, repo, 20, "09:00", "17:00", 0)
	return NewReportService(repo, clock.NewFixed(on(31, "08:00")), attendance.DefaultPolicy())
}

func TestGenerateTimesheet(t *testing.T) {
	svc := newService(t)

	sheet, err := svc.GenerateTimesheet(context.Background(), report.TimesheetRequest{
		EmployeeID: "emp-1",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-15",
	})
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "2025-03-10", sheet.Rows[0].Date)
	assert.Equal(t, "09:00", sheet.Rows[0].ClockIn)
	assert.Equal(t, "17:30", sheet.Rows[0].ClockOut)
	assert.Equal(t, 30, sheet.Rows[0].BreakMinutes)
	assert.Equal(t, 8.0, sheet.Rows[0].TotalHours)

	assert.Equal(t, "2025-03-11", sheet.Rows[1].Date)
	assert.Equal(t, 15, sheet.Rows[1].LateMinutes)
	assert.Equal(t, 1.0, sheet.Rows[1].OvertimeHours)
	assert.Equal(t, "LATE", sheet.Rows[1].Status)

	assert.Equal(t, 2, sheet.Totals.DaysWorked)
	assert.Equal(t, 17.0, sheet.Totals.TotalHours)
	assert.Equal(t, 16.0, sheet.Totals.RegularHours)
	assert.Equal(t, 1.0, sheet.Totals.OvertimeHours)
	assert.Equal(t, "2025-03-31T08:00:00Z", sheet.GeneratedAt)
}

func TestGenerateTimesheet_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     report.TimesheetRequest
		wantErr error
	}{
		{"reversed range", report.TimesheetRequest{EmployeeID: "emp-1", StartDate: "2025-03-15", EndDate: "2025-03-01"}, report.ErrInvalidDateRange},
		{"too long", report.TimesheetRequest{EmployeeID: "emp-1", StartDate: "2024-01-01", EndDate: "2025-03-01"}, report.ErrRangeTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GenerateTimesheet(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.GenerateTimesheet(ctx, report.TimesheetRequest{StartDate: "bad"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestExportTimesheet_WritesWorkbook(t *testing.T) {
	svc := newService(t)

	var buf bytes.Buffer
	err := svc.ExportTimesheet(context.Background(), report.TimesheetRequest{
		EmployeeID: "emp-1",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-31",
	}, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(timesheetSheet)
	require.NoError(t, err)
	// title, header, three days, totals
	require.Len(t, rows, 6)
	assert.Equal(t, "Date", rows[1][0])
	assert.Equal(t, "2025-03-10", rows[2][0])
	assert.Equal(t, "2025-03-20", rows[4][0])
	assert.Equal(t, "Total", rows[5][0])
	assert.Equal(t, "3 days", rows[5][1])
}
