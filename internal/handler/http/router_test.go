package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	correctionService "github.com/cmlabs-hris/attendance-engine/internal/service/correction"
	"github.com/cmlabs-hris/attendance-engine/internal/service/ledger"
	reportService "github.com/cmlabs-hris/attendance-engine/internal/service/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

var (
	employee = auth.Identity{UserID: "u-1", EmployeeID: "emp-1", Role: auth.RoleEmployee}
	other    = auth.Identity{UserID: "u-2", EmployeeID: "emp-2", Role: auth.RoleEmployee}
	manager  = auth.Identity{UserID: "u-9", Role: auth.RoleManager}
)

type testServer struct {
	t      *testing.T
	router http.Handler
	jwt    jwt.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	attendanceRepo := memory.NewAttendanceRepository(store)
	breakRepo := memory.NewBreakRepository(store)
	correctionRepo := memory.NewCorrectionRepository(store)
	clk := clock.NewFixed(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	policy := attendance.DefaultPolicy()
	hub := events.NewHub()

	shift, err := attendanceService.NewFixedShift("09:00", "17:00", time.UTC)
	require.NoError(t, err)

	l := ledger.New(store, attendanceRepo, breakRepo, clk, ledger.Options{WaitTimeout: time.Second})
	attSvc := attendanceService.NewAttendanceService(l, attendanceRepo, breakRepo, shift, hub, clk, policy)
	corrSvc := correctionService.NewCorrectionService(l, correctionRepo, attendanceRepo, hub, clk, policy)
	repSvc := reportService.NewReportService(attendanceRepo, clk, policy)

	jwtSvc := jwt.NewJWTService(handlerTestSecret, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := NewRouter(logger, []string{"http://localhost:3000"}, jwtSvc, Handlers{
		Attendance: NewAttendanceHandler(attSvc),
		Correction: NewCorrectionHandler(corrSvc, attSvc),
		Report:     NewReportHandler(repSvc),
		Events:     NewEventsHandler(hub, jwtSvc),
	})

	return &testServer{t: t, router: router, jwt: jwtSvc}
}

func (s *testServer) do(id *auth.Identity, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		token, _, err := s.jwt.GenerateAccessToken(*id)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&resp))
	}
	return w, resp
}

func data(resp map[string]any) map[string]any {
	d, _ := resp["data"].(map[string]any)
	return d
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(nil, http.MethodPost, "/api/v1/attendance/clock-in", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_FullDay(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-in", map[string]any{"at": "2025-03-10T08:58:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CLOCKED_IN", data(resp)["state"])

	w, _ = s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-in", map[string]any{"at": "2025-03-10T09:00:00Z"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = s.do(&employee, http.MethodPost, "/api/v1/attendance/breaks/start", map[string]any{"type": "MEAL", "at": "2025-03-10T12:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)
	breaks := data(resp)["breaks"].([]any)
	require.Len(t, breaks, 1)
	breakID := breaks[0].(map[string]any)["id"].(string)

	w, _ = s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-out", map[string]any{"at": "2025-03-10T17:00:00Z"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(&employee, http.MethodPost, "/api/v1/attendance/breaks/"+breakID+"/end", map[string]any{"at": "2025-03-10T12:30:00Z"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-out", map[string]any{"at": "2025-03-10T17:30:00Z"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CLOCKED_OUT", data(resp)["state"])
	assert.Equal(t, 8.0, data(resp)["total_hours"])
	assert.Equal(t, 30.0, data(resp)["break_minutes"])

	w, resp = s.do(&employee, http.MethodGet, "/api/v1/attendance/today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, data(resp)["can_clock_in"])
}

func TestRouter_AccessControl(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-in", map[string]any{"at": "2025-03-10T09:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)
	recordID := data(resp)["id"].(string)

	w, _ = s.do(&employee, http.MethodGet, "/api/v1/attendance", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(&manager, http.MethodGet, "/api/v1/attendance", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(&other, http.MethodGet, "/api/v1/attendance/"+recordID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(&employee, http.MethodGet, "/api/v1/attendance/"+recordID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(&manager, http.MethodPost, "/api/v1/attendance/clock-in", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "approver without employee_id cannot clock in")

	w, _ = s.do(&other, http.MethodPost, "/api/v1/corrections", map[string]any{
		"attendance_id":      recordID,
		"requested_clock_in": "2025-03-10T08:45:00Z",
		"reason":             "not mine",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_CorrectionApproval(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-in", map[string]any{"at": "2025-03-10T09:30:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)
	recordID := data(resp)["id"].(string)
	assert.Equal(t, 25.0, data(resp)["late_minutes"])

	w, _ = s.do(&employee, http.MethodPost, "/api/v1/corrections", map[string]any{
		"attendance_id":      recordID,
		"requested_clock_in": "2025-03-10T08:45:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason is required")

	w, resp = s.do(&employee, http.MethodPost, "/api/v1/corrections", map[string]any{
		"attendance_id":      recordID,
		"category":           "wrong_time",
		"requested_clock_in": "2025-03-10T08:45:00Z",
		"reason":             "badge reader offline",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	correctionID := data(resp)["id"].(string)
	assert.Equal(t, "PENDING", data(resp)["status"])

	w, _ = s.do(&employee, http.MethodPost, "/api/v1/corrections/"+correctionID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(&manager, http.MethodPost, "/api/v1/corrections/"+correctionID+"/approve", map[string]any{"comments": "ok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "APPROVED", data(resp)["status"])
	assert.Equal(t, manager.UserID, data(resp)["reviewed_by"])

	w, _ = s.do(&manager, http.MethodPost, "/api/v1/corrections/"+correctionID+"/reject", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = s.do(&employee, http.MethodGet, "/api/v1/attendance/"+recordID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-10T08:45:00Z", data(resp)["clock_in_time"])
	assert.Equal(t, 0.0, data(resp)["late_minutes"])

	w, resp = s.do(&other, http.MethodGet, "/api/v1/corrections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, data(resp)["total_count"])
}

func TestRouter_ExportTimesheet(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(&employee, http.MethodPost, "/api/v1/attendance/clock-in", map[string]any{"at": "2025-03-10T09:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(&employee, http.MethodGet, "/api/v1/attendance/export?start_date=2025-03-01&end_date=2025-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timesheet_emp-1_2025-03-01_2025-03-31.xlsx")
	assert.NotZero(t, w.Body.Len())

	w, _ = s.do(&employee, http.MethodGet, "/api/v1/attendance/export?employee_id=emp-2&start_date=2025-03-01&end_date=2025-03-31", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(&employee, http.MethodGet, "/api/v1/attendance/timesheet?start_date=2025-03-31&end_date=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_SSETokenAndStreamAuth(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(&employee, http.MethodGet, "/api/v1/events/token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, data(resp)["token"])

	w, _ = s.do(nil, http.MethodGet, "/api/v1/events/stream", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(nil, http.MethodGet, "/api/v1/events/stream?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_StreamConnectedFrameIsJSON(t *testing.T) {
	s := newTestServer(t)

	odd := auth.Identity{UserID: "u-3", EmployeeID: "emp-\"3\"\x7f\\", Role: auth.RoleEmployee}
	token, _, err := s.jwt.GenerateSSEToken(odd)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/stream?token="+url.QueryEscape(token), nil).WithContext(ctx)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var payload string
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, payload)

	var frame map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload), &frame))
	assert.Equal(t, "connected", frame["status"])
	assert.Equal(t, odd.EmployeeID, frame["employee_id"])
}
