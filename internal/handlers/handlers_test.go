package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stovelink/internal/coordinator"
	"stovelink/internal/firenet"
	"stovelink/internal/logger"
	"stovelink/internal/models"
	"stovelink/internal/service"

	"github.com/gin-gonic/gin"
)

// mockAuth scripts the Authorization service.
type mockAuth struct {
	signUpID  int
	signUpErr error
	token     string
	tokenErr  error
	parseID   int
	parseErr  error
}

func (m *mockAuth) SignUp(string, string) (int, error)           { return m.signUpID, m.signUpErr }
func (m *mockAuth) GenerateToken(string, string) (string, error) { return m.token, m.tokenErr }
func (m *mockAuth) ParseToken(string) (int, error)               { return m.parseID, m.parseErr }

// mockEventLog scripts the EventLog service.
type mockEventLog struct {
	got    service.LogFilter
	result []models.StoveEvent
	err    error
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.StoveEvent, error) {
	m.got = f
	return m.result, m.err
}

// stubStoveAPI serves one stove with a scripted snapshot.
type stubStoveAPI struct {
	state     *models.StoveState
	submitErr error
}

func fp(v float64) *float64 { return &v }
func ipt(v int) *int        { return &v }
func bpt(v bool) *bool      { return &v }

func runningSnapshot() *models.StoveState {
	return &models.StoveState{
		Name:            "Living Room",
		LastSeenMinutes: ipt(0),
		Sensors: models.Sensors{
			MainState:       ipt(4),
			SubState:        ipt(0),
			RoomTemperature: fp(19.6),
			FeedRateTotal:   fp(100),
		},
		Controls: models.Controls{
			OnOff:             bpt(true),
			OperatingMode:     ipt(1),
			TargetTemperature: fp(21),
		},
	}
}

func (s *stubStoveAPI) Connect(context.Context) error { return nil }

func (s *stubStoveAPI) DiscoverStoves(context.Context) ([]firenet.DiscoveredStove, error) {
	return []firenet.DiscoveredStove{{ID: "12345", Name: "Living Room"}}, nil
}

func (s *stubStoveAPI) GetStoveState(context.Context, string) (*models.StoveState, error) {
	if s.state == nil {
		return nil, errors.New("offline")
	}
	return s.state, nil
}

func (s *stubStoveAPI) SetStoveControls(_ context.Context, _ string, _ models.Controls) (*models.StoveState, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return s.state, nil
}

func (s *stubStoveAPI) FailureCount() int { return 0 }

func newTestHandler(t *testing.T, api *stubStoveAPI, auth *mockAuth, log *mockEventLog) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coord := coordinator.New(api, nil, nil, coordinator.Options{
		ScanInterval:       time.Hour,
		DefaultTemperature: 21,
	}, logger.Get(logger.ErrorLevel))
	if err := coord.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	svc := &service.Service{Authorization: auth, EventLog: log}
	h := NewHandler(svc, coord, logger.Get(logger.ErrorLevel))
	return h, h.InitRoutes()
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer token")
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("body: %v", err)
	}
	if out["stoves"] != float64(1) {
		t.Errorf("stoves = %v", out["stoves"])
	}
}

func TestAPIRequiresToken(t *testing.T) {
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{parseErr: errors.New("expired")}, &mockEventLog{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stoves", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stoves", nil)
	req.Header.Set("Authorization", "Bearer expired")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", w.Code)
	}
}

func TestListStoves(t *testing.T) {
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodGet, "/api/v1/stoves", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var out []stoveSummary
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(out) != 1 || out[0].ID != "12345" || out[0].StatusKey != "running" || !out[0].Online {
		t.Errorf("summary = %+v", out)
	}
}

func TestGetStoveState(t *testing.T) {
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodGet, "/api/v1/stoves/12345/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out stoveView
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("body: %v", err)
	}
	if out.StatusKey != "running" || out.HVACMode != "auto" || out.HVACAction != "heating" {
		t.Errorf("view = %+v", out)
	}
	if out.RoomTemperature == nil || *out.RoomTemperature != 19.6 {
		t.Errorf("room temperature = %v", out.RoomTemperature)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/stoves/nope/state", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", w.Code)
	}
}

func TestSetHVACMode(t *testing.T) {
	h, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodPost, "/api/v1/stoves/12345/hvac-mode", `{"mode":"heat"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	s, _ := h.coord.Stove("12345")
	if !s.HasPendingChanges() {
		t.Error("mode change should mark pending")
	}
	if got := s.HVACMode(); got != models.HVACModeHeat {
		t.Errorf("mode = %s", got)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/stoves/12345/hvac-mode", `{"mode":"tropical"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode: status = %d", w.Code)
	}
}

func TestSetHVACModeAppliesDefaultTemperature(t *testing.T) {
	api := &stubStoveAPI{state: runningSnapshot()}
	api.state.Controls.TargetTemperature = nil

	h, r := newTestHandler(t, api, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodPost, "/api/v1/stoves/12345/hvac-mode", `{"mode":"heat"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}

	s, _ := h.coord.Stove("12345")
	if temp, ok := s.TargetTemperature(); !ok || temp != 21 {
		t.Errorf("target = %v,%v, want configured default 21", temp, ok)
	}
}

func TestPatchControlsConflictWithoutSnapshot(t *testing.T) {
	_, r := newTestHandler(t, &stubStoveAPI{state: nil}, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodPost, "/api/v1/stoves/12345/controls", `{"on":true}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 before the first sync", w.Code)
	}
}

func TestPatchControls(t *testing.T) {
	h, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})

	w := doJSON(r, http.MethodPost, "/api/v1/stoves/12345/controls",
		`{"targetTemperature": 22.5, "ecoMode": true}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	s, _ := h.coord.Stove("12345")
	controls, _ := s.ControlState()
	if controls.TargetTemperature == nil || *controls.TargetTemperature != 22.5 {
		t.Errorf("target = %v", controls.TargetTemperature)
	}
	if controls.EcoMode == nil || !*controls.EcoMode {
		t.Errorf("ecoMode = %v", controls.EcoMode)
	}
	// untouched fields keep their fetched values
	if controls.OperatingMode == nil || *controls.OperatingMode != 1 {
		t.Errorf("operatingMode = %v", controls.OperatingMode)
	}
}

func TestPelletEndpoints(t *testing.T) {
	h, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, &mockEventLog{})
	s, _ := h.coord.Stove("12345")

	w := doJSON(r, http.MethodPut, "/api/v1/stoves/12345/pellets/capacity", `{"capacityKg": 20}`)
	if w.Code != http.StatusOK {
		t.Fatalf("capacity: status = %d", w.Code)
	}
	if got := s.PelletCapacity(); got != 20 {
		t.Errorf("capacity = %v", got)
	}

	w = doJSON(r, http.MethodPut, "/api/v1/stoves/12345/pellets/capacity", `{"capacityKg": -3}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative capacity: status = %d", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/stoves/12345/pellets/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", w.Code)
	}
	if got := s.PelletStock(); got != 20 {
		t.Errorf("stock = %v, want full after reset", got)
	}
}

func TestGetLogs(t *testing.T) {
	logSvc := &mockEventLog{result: []models.StoveEvent{{EventID: "e1", Type: "RESTART"}}}
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, &mockAuth{}, logSvc)

	w := doJSON(r, http.MethodGet, "/api/v1/logs?from=2026-02-01&to=2026-02-02&type=restart&stove=12345", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	if logSvc.got.From.IsZero() || logSvc.got.To.IsZero() {
		t.Error("date-only bounds should parse")
	}
	// a bare date as upper bound covers the whole day
	if logSvc.got.To.Hour() != 23 || logSvc.got.To.Minute() != 59 {
		t.Errorf("to = %v, want end of day", logSvc.got.To)
	}
	if logSvc.got.StoveID != "12345" {
		t.Errorf("stove filter = %q", logSvc.got.StoveID)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/logs?from=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad time: status = %d", w.Code)
	}
}

func TestSignInRoutes(t *testing.T) {
	auth := &mockAuth{signUpID: 7, token: "jwt-token"}
	_, r := newTestHandler(t, &stubStoveAPI{state: runningSnapshot()}, auth, &mockEventLog{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-up: status = %d body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in: status = %d", w.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("body: %v", err)
	}
	if out["token"] != "jwt-token" {
		t.Errorf("token = %q", out["token"])
	}

	auth.tokenErr = errors.New("bad credentials")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials: status = %d", w.Code)
	}
}
