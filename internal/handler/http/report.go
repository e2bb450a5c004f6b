package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler interface {
	// Timesheet returns the rows as JSON
	Timesheet(w http.ResponseWriter, r *http.Request)

	// ExportTimesheet downloads the same rows as an XLSX workbook
	ExportTimesheet(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// timesheetRequestFrom defaults the employee to the caller. Only managers may
// name another employee.
func timesheetRequestFrom(r *http.Request) (report.TimesheetRequest, bool) {
	id := identityFrom(r)
	req := report.TimesheetRequest{
		EmployeeID: r.URL.Query().Get("employee_id"),
		StartDate:  r.URL.Query().Get("start_date"),
		EndDate:    r.URL.Query().Get("end_date"),
	}
	if req.EmployeeID == "" {
		req.EmployeeID = id.EmployeeID
	}
	return req, id.CanAccessEmployee(req.EmployeeID)
}

// Timesheet handles GET /attendance/timesheet
func (h *reportHandlerImpl) Timesheet(w http.ResponseWriter, r *http.Request) {
	req, allowed := timesheetRequestFrom(r)
	if !allowed {
		response.Forbidden(w, auth.ErrForbidden.Error())
		return
	}

	result, err := h.reportService.GenerateTimesheet(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportTimesheet handles GET /attendance/export
func (h *reportHandlerImpl) ExportTimesheet(w http.ResponseWriter, r *http.Request) {
	req, allowed := timesheetRequestFrom(r)
	if !allowed {
		response.Forbidden(w, auth.ErrForbidden.Error())
		return
	}

	// Buffered so that a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.reportService.ExportTimesheet(r.Context(), req, &buf); err != nil {
		response.HandleError(w, err)
		return
	}

	filename := fmt.Sprintf("timesheet_%s_%s_%s.xlsx", req.EmployeeID, req.StartDate, req.EndDate)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
