package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"visitledger/internal/config"
	"visitledger/internal/ledger"
	"visitledger/internal/store"
)

func newTestHandler(t *testing.T, names ...string) (http.Handler, *Service, *store.Memory) {
	t.Helper()
	svc, mem := newTestService(t, config.Config{SeedExecutives: names})
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return NewHTTPServer(svc, "*").Handler(), svc, mem
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["code"] != code {
		t.Fatalf("code = %v, want %s", body["code"], code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")
	rec := doJSON(t, handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")
	rec := doJSON(t, handler, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["status"] != "ready" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLogEndpoint(t *testing.T) {
	handler, _, mem := newTestHandler(t, "ALICE")

	rec := doJSON(t, handler, http.MethodPost, "/log",
		`{"name":"ALICE","visitType":"CD3","visitTime":9.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	led := decodePrimary(t, mem, todayKey)
	if led.Rows[0].History != "CD3-9.5" {
		t.Fatalf("history = %q", led.Rows[0].History)
	}

	// The literal is preserved, so the same entry as a JSON string is a
	// duplicate.
	rec = doJSON(t, handler, http.MethodPost, "/log",
		`{"name":"ALICE","visitType":"CD3","visitTime":"9.5"}`)
	assertErrorCode(t, rec, http.StatusBadRequest, "DUPLICATE_ENTRY")
}

func TestLogEndpointValidation(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing name", `{"visitType":"CD3","visitTime":9.5}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing type", `{"name":"ALICE","visitTime":9.5}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing time", `{"name":"ALICE","visitType":"CD3"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time out of range", `{"name":"ALICE","visitType":"CD3","visitTime":24}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time not numeric", `{"name":"ALICE","visitType":"CD3","visitTime":"morning"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time hex float", `{"name":"ALICE","visitType":"CD3","visitTime":"0x1p3"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time exponent", `{"name":"ALICE","visitType":"CD3","visitTime":"1e1"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time nan", `{"name":"ALICE","visitType":"CD3","visitTime":"NaN"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"time negative", `{"name":"ALICE","visitType":"CD3","visitTime":"-1"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"malformed json", `{"name":`, http.StatusBadRequest, "INVALID_BODY"},
		{"unknown executive", `{"name":"CAROL","visitType":"CD3","visitTime":9.5}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/log", tc.body)
			assertErrorCode(t, rec, tc.status, tc.code)
		})
	}
}

func TestReportEndpointMorningFilter(t *testing.T) {
	handler, svc, _ := newTestHandler(t, "ALICE", "BOB")
	ctx := context.Background()
	_ = svc.LogVisit(ctx, "ALICE", "CD3", "9.5")
	_ = svc.LogVisit(ctx, "BOB", "YB", "14")

	rec := doJSON(t, handler, http.MethodGet, "/report?time=morning", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var table [][]any
	decodeJSON(t, rec, &table)
	if len(table) != 3 {
		t.Fatalf("expected header, one row and total, got %d", len(table))
	}
	if table[1][1] != "ALICE" {
		t.Fatalf("expected ALICE row, got %v", table[1])
	}
	if table[2][0] != "TOTAL" || table[2][3] != float64(1) {
		t.Fatalf("expected filtered total 1, got %v", table[2])
	}
}

func TestExecutivesEndpoint(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE", "BOB")
	rec := doJSON(t, handler, http.MethodGet, "/executives", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var names []string
	decodeJSON(t, rec, &names)
	if len(names) != 2 || names[0] != "ALICE" || names[1] != "BOB" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRosterEndpoints(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")

	rec := doJSON(t, handler, http.MethodPost, "/add-executive", `{"name":"bob"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/add-executive", `{"name":"BOB"}`)
	assertErrorCode(t, rec, http.StatusBadRequest, "DUPLICATE_NAME")
	rec = doJSON(t, handler, http.MethodPost, "/add-executive", `{"name":"  "}`)
	assertErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = doJSON(t, handler, http.MethodPost, "/remove-executive", `{"name":"BOB"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/remove-executive", `{"name":"BOB"}`)
	assertErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = doJSON(t, handler, http.MethodGet, "/executives", "")
	var names []string
	decodeJSON(t, rec, &names)
	if len(names) != 1 || names[0] != "ALICE" {
		t.Fatalf("unexpected roster %v", names)
	}
}

func TestResetEndpoint(t *testing.T) {
	handler, svc, mem := newTestHandler(t, "ALICE")
	_ = svc.LogVisit(context.Background(), "ALICE", "CD3", "9.5")

	rec := doJSON(t, handler, http.MethodPost, "/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	led := decodePrimary(t, mem, todayKey)
	if led.Rows[0].History != "" {
		t.Fatalf("reset did not clear: %q", led.Rows[0].History)
	}
}

func TestNewFileEndpoint(t *testing.T) {
	svc, mem := newTestService(t, config.Config{})
	handler := NewHTTPServer(svc, "*").Handler()

	uploadLedger(t, mem, ledger.New(yesterdayKey, []string{"ALICE"}))

	rec := doJSON(t, handler, http.MethodPost, "/new-file", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["file"] != todayKey.PrimaryObject() {
		t.Fatalf("unexpected file %v", body["file"])
	}

	rec = doJSON(t, handler, http.MethodPost, "/new-file", "")
	assertErrorCode(t, rec, http.StatusConflict, "CONFLICT")
}

func TestHistoryEndpoints(t *testing.T) {
	handler, _, mem := newTestHandler(t, "ALICE")
	uploadLedger(t, mem, ledger.New(yesterdayKey, []string{"ALICE"}))

	rec := doJSON(t, handler, http.MethodGet, "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var keys []string
	decodeJSON(t, rec, &keys)
	if len(keys) != 2 || keys[0] != string(todayKey) || keys[1] != string(yesterdayKey) {
		t.Fatalf("unexpected keys %v", keys)
	}

	rec = doJSON(t, handler, http.MethodGet, "/history/"+todayKey.PrimaryObject(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") {
		t.Fatalf("content disposition = %q", cd)
	}

	rec = doJSON(t, handler, http.MethodGet, "/history/VisitLog_2019-01-01.xlsx", "")
	assertErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = doJSON(t, handler, http.MethodGet, "/history/..%2Fsecrets", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("traversal status = %d", rec.Code)
	}
}

func TestReportFileEndpoint(t *testing.T) {
	handler, svc, _ := newTestHandler(t, "ALICE")
	_ = svc.LogVisit(context.Background(), "ALICE", "CD3", "9.5")

	rec := doJSON(t, handler, http.MethodGet, "/report/"+todayKey.PrimaryObject(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "ALICE") {
		t.Fatalf("report missing executive row")
	}

	rec = doJSON(t, handler, http.MethodGet, "/report/not-a-ledger.xlsx", "")
	assertErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")
}

func TestExcelEndpoints(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")

	rec := doJSON(t, handler, http.MethodGet, "/view-excel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("view status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "inline; filename=VisitLog_ViewOnly.xlsx" {
		t.Fatalf("view disposition = %q", cd)
	}

	rec = doJSON(t, handler, http.MethodGet, "/download-excel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=Visit_Report.xlsx" {
		t.Fatalf("download disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("download content type = %q", ct)
	}
}

func TestCORSPreflightAndUnknownRoute(t *testing.T) {
	handler, _, _ := newTestHandler(t, "ALICE")

	rec := doJSON(t, handler, http.MethodOptions, "/log", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("cors origin = %q", got)
	}

	rec = doJSON(t, handler, http.MethodGet, "/nope", "")
	assertErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")
}
