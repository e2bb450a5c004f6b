package report

import "errors"

var (
	ErrInvalidDateRange       = errors.New("end date must not be before start date")
	ErrRangeTooLong           = errors.New("timesheet period must not exceed 366 days")
	ErrReportGenerationFailed = errors.New("failed to generate report")
)
