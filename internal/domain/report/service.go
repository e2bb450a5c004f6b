package report

import (
	"context"
	"io"
)

// ReportService defines the interface for report generation
type ReportService interface {
	// GenerateTimesheet collects one row per work day in the period
	GenerateTimesheet(ctx context.Context, req TimesheetRequest) (Timesheet, error)

	// ExportTimesheet writes the timesheet as an XLSX workbook to w
	ExportTimesheet(ctx context.Context, req TimesheetRequest, w io.Writer) error
}
