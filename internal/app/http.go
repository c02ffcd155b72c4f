package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/log" {
		s.handleLog(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/report" {
		table, err := s.service.Report(
			r.Context(),
			strings.TrimSpace(r.URL.Query().Get("executive")),
			strings.TrimSpace(r.URL.Query().Get("type")),
			strings.TrimSpace(r.URL.Query().Get("time")),
		)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, table)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/reset" {
		if err := s.service.Reset(r.Context()); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/executives" {
		names, err := s.service.Executives(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, names)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/add-executive" {
		s.handleRosterChange(w, r, s.service.AddExecutive)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/remove-executive" {
		s.handleRosterChange(w, r, s.service.RemoveExecutive)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/new-file" {
		key, err := s.service.Rollover(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "file": key.PrimaryObject()})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/history" {
		keys, err := s.service.History(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, keys)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/view-excel" {
		data, _, err := s.service.ViewBlob(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeBlob(w, data, "inline; filename=VisitLog_ViewOnly.xlsx")
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/download-excel" {
		data, err := s.service.PrimaryBlob(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeBlob(w, data, "attachment; filename=Visit_Report.xlsx")
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 2 && parts[0] == "history" && r.Method == http.MethodGet {
		data, err := s.service.LedgerBlob(r.Context(), parts[1])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeBlob(w, data, "inline; filename="+parts[1])
		return
	}

	if len(parts) == 2 && parts[0] == "report" && r.Method == http.MethodGet {
		page, err := s.service.RenderReportFile(r.Context(), parts[1])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleLog(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string          `json:"name"`
		VisitType string          `json:"visitType"`
		VisitTime json.RawMessage `json:"visitTime"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
		return
	}
	if strings.TrimSpace(body.VisitType) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "visitType is required", nil)
		return
	}
	visitTime, err := timeLiteral(body.VisitTime)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	if err := s.service.LogVisit(r.Context(), body.Name, body.VisitType, visitTime); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleRosterChange(w http.ResponseWriter, r *http.Request, change func(context.Context, string) error) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := change(r.Context(), body.Name); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// decimalHourPattern pins the literal to plain decimal digits: ParseFloat on
// its own would also take hex floats, exponents, NaN and Inf.
var decimalHourPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// timeLiteral extracts the visit time exactly as the caller wrote it, string
// or number, so duplicate detection stays a verbatim token match. The literal
// must still parse as a decimal hour in [0, 24).
func timeLiteral(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", errors.New("visitTime is required")
	}
	if strings.HasPrefix(trimmed, `"`) {
		var literal string
		if err := json.Unmarshal(raw, &literal); err != nil {
			return "", errors.New("visitTime must be a decimal hour")
		}
		trimmed = strings.TrimSpace(literal)
	}
	if !decimalHourPattern.MatchString(trimmed) {
		return "", errors.New("visitTime must be a decimal hour in [0, 24)")
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed >= 24 {
		return "", errors.New("visitTime must be a decimal hour in [0, 24)")
	}
	return trimmed, nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeBlob(w http.ResponseWriter, data []byte, disposition string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
