package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CorrectionHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type correctionHandlerImpl struct {
	correctionService correction.CorrectionService
	attendanceService attendance.AttendanceService
}

func NewCorrectionHandler(correctionService correction.CorrectionService, attendanceService attendance.AttendanceService) CorrectionHandler {
	return &correctionHandlerImpl{
		correctionService: correctionService,
		attendanceService: attendanceService,
	}
}

// Submit implements CorrectionHandler. Employees may only file against their
// own records.
func (h *correctionHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	var req correction.SubmitCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	id := identityFrom(r)
	req.RequestedBy = id.UserID

	if req.AttendanceID != "" {
		record, err := h.attendanceService.GetAttendance(r.Context(), req.AttendanceID)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		if !id.CanAccessEmployee(record.EmployeeID) {
			response.Forbidden(w, auth.ErrForbidden.Error())
			return
		}
	}

	result, err := h.correctionService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Correction request submitted", result)
}

// List implements CorrectionHandler.
func (h *correctionHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := correction.CorrectionFilter{
		EmployeeID:   getStringQueryParam(r, "employee_id"),
		AttendanceID: getStringQueryParam(r, "attendance_id"),
		Status:       getStringQueryParam(r, "status"),
		Page:         getIntQueryParam(r, "page", 1),
		Limit:        getIntQueryParam(r, "limit", 20),
	}

	if id := identityFrom(r); !id.IsManager() {
		filter.EmployeeID = &id.EmployeeID
	}

	results, err := h.correctionService.ListCorrections(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Get implements CorrectionHandler.
func (h *correctionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.correctionService.GetCorrection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if !identityFrom(r).CanAccessEmployee(result.EmployeeID) {
		response.Forbidden(w, auth.ErrForbidden.Error())
		return
	}

	response.Success(w, result)
}

func reviewRequestFrom(r *http.Request) (correction.ReviewCorrectionRequest, error) {
	var req correction.ReviewCorrectionRequest
	if err := decodeOptional(r, &req); err != nil {
		return req, err
	}
	req.ID = chi.URLParam(r, "id")
	req.ReviewedBy = identityFrom(r).UserID
	return req, nil
}

// Approve implements CorrectionHandler.
func (h *correctionHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	req, err := reviewRequestFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.correctionService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request approved", result)
}

// Reject implements CorrectionHandler.
func (h *correctionHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	req, err := reviewRequestFrom(r)
	if err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.correctionService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Correction request rejected", result)
}
