package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timecalc"
	"github.com/xuri/excelize/v2"
)

const (
	timesheetSheet = "Timesheet"
	pageSize       = 100
)

var timesheetHeaders = []any{
	"Date", "Clock In", "Clock Out", "Break (min)", "Total Hours",
	"Regular Hours", "Overtime Hours", "Late (min)", "Early Departure (min)", "Status",
}

type ReportServiceImpl struct {
	attendance.AttendanceRepository
	clock  clock.Clock
	policy attendance.Policy
}

func NewReportService(attendanceRepo attendance.AttendanceRepository, clk clock.Clock, policy attendance.Policy) report.ReportService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &ReportServiceImpl{
		AttendanceRepository: attendanceRepo,
		clock:                clk,
		policy:               policy,
	}
}

// GenerateTimesheet implements report.ReportService.
func (s *ReportServiceImpl) GenerateTimesheet(ctx context.Context, req report.TimesheetRequest) (report.Timesheet, error) {
	if err := req.Validate(); err != nil {
		return report.Timesheet{}, err
	}

	records, err := s.collect(ctx, req)
	if err != nil {
		return report.Timesheet{}, fmt.Errorf("%w: %w", report.ErrReportGenerationFailed, err)
	}

	sheet := report.Timesheet{
		EmployeeID:  req.EmployeeID,
		PeriodStart: req.StartDate,
		PeriodEnd:   req.EndDate,
		GeneratedAt: s.clock.Now().Format(time.RFC3339),
		Rows:        make([]report.TimesheetRow, 0, len(records)),
	}

	var worked, regular time.Duration
	for _, rec := range records {
		sheet.Rows = append(sheet.Rows, report.TimesheetRow{
			Date:                  rec.Date.Format("2006-01-02"),
			ClockIn:               s.clockTime(rec.ClockIn),
			ClockOut:              s.clockTime(rec.ClockOut),
			BreakMinutes:          rec.BreakMinutes,
			TotalHours:            rec.TotalHours(),
			RegularHours:          rec.RegularHours(),
			OvertimeHours:         rec.OvertimeHours(),
			LateMinutes:           rec.LateMinutes,
			EarlyDepartureMinutes: rec.EarlyDepartureMinutes,
			Status:                string(rec.Status),
		})

		if rec.ClockIn != nil {
			sheet.Totals.DaysWorked++
		}
		sheet.Totals.BreakMinutes += rec.BreakMinutes
		sheet.Totals.LateMinutes += rec.LateMinutes
		sheet.Totals.EarlyDepartureMinutes += rec.EarlyDepartureMinutes
		worked += rec.WorkedDuration
		regular += rec.RegularDuration
	}
	sheet.Totals.TotalHours, sheet.Totals.RegularHours, sheet.Totals.OvertimeHours = timecalc.SplitHours(worked, regular)

	return sheet, nil
}

// ExportTimesheet implements report.ReportService.
func (s *ReportServiceImpl) ExportTimesheet(ctx context.Context, req report.TimesheetRequest, w io.Writer) error {
	sheet, err := s.GenerateTimesheet(ctx, req)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", timesheetSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(timesheetSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(timesheetHeaders), 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	rowNum := 1
	setRow := func(values []any, opts ...excelize.RowOpts) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		rowNum++
		return sw.SetRow(cell, values, opts...)
	}

	if err := setRow([]any{fmt.Sprintf("Timesheet %s (%s to %s)", sheet.EmployeeID, sheet.PeriodStart, sheet.PeriodEnd)}); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := setRow(timesheetHeaders, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range sheet.Rows {
		values := []any{
			row.Date, row.ClockIn, row.ClockOut, row.BreakMinutes, row.TotalHours,
			row.RegularHours, row.OvertimeHours, row.LateMinutes, row.EarlyDepartureMinutes, row.Status,
		}
		if err := setRow(values); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+1, err)
		}
	}

	t := sheet.Totals
	totals := []any{
		"Total", fmt.Sprintf("%d days", t.DaysWorked), "", t.BreakMinutes, t.TotalHours,
		t.RegularHours, t.OvertimeHours, t.LateMinutes, t.EarlyDepartureMinutes, "",
	}
	if err := setRow(totals, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	slog.Info("Timesheet exported", "employee_id", sheet.EmployeeID, "rows", len(sheet.Rows))
	return nil
}

// collect pages through the repository in date order.
func (s *ReportServiceImpl) collect(ctx context.Context, req report.TimesheetRequest) ([]attendance.Attendance, error) {
	filter := attendance.AttendanceFilter{
		EmployeeID: &req.EmployeeID,
		StartDate:  &req.StartDate,
		EndDate:    &req.EndDate,
		Limit:      pageSize,
		SortBy:     "date",
		SortOrder:  "asc",
	}

	var records []attendance.Attendance
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.AttendanceRepository.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		if len(batch) == 0 || int64(len(records)) >= total {
			return records, nil
		}
	}
}

func (s *ReportServiceImpl) clockTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.policy.Location).Format("15:04")
}
