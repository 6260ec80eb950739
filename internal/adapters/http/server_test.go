package httpadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secapi/internal/domain"
	"secapi/internal/ports"
)

type stubOrchestrator struct {
	submitRes ports.SubmitResult
	submitErr error
	getJob    *domain.Job
	getErr    error
	deleteErr error
}

func (s *stubOrchestrator) Submit(context.Context, string, string, domain.ScanRequest) (ports.SubmitResult, error) {
	return s.submitRes, s.submitErr
}

func (s *stubOrchestrator) Get(context.Context, string, string) (*domain.Job, error) {
	return s.getJob, s.getErr
}

func (s *stubOrchestrator) List(context.Context, string, ports.JobFilter) (ports.JobPage, error) {
	return ports.JobPage{Page: 1, PageSize: 20}, nil
}

func (s *stubOrchestrator) Delete(context.Context, string, string) error {
	return s.deleteErr
}

func doRequest(t *testing.T, orch ports.Orchestrator, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-User-Id", "alice")
	rec := httptest.NewRecorder()
	New(orch).Routes().ServeHTTP(rec, req)
	return rec
}

func TestSubmitAcceptedResponse(t *testing.T) {
	orch := &stubOrchestrator{submitRes: ports.SubmitResult{JobID: "job-1"}}
	rec := doRequest(t, orch, http.MethodPost, "/api/v1/scans", `{"scan_type":"container-image","target":"nginx:latest"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"job-1"`)
	assert.Contains(t, rec.Body.String(), "/api/v1/scans/job-1")
}

func TestSubmitCachedResponse(t *testing.T) {
	orch := &stubOrchestrator{submitRes: ports.SubmitResult{
		Cached: true,
		Result: &domain.ScanResult{Summary: domain.SeverityCount{Critical: 1}},
	}}
	rec := doRequest(t, orch, http.MethodPost, "/api/v1/scans", `{"scan_type":"container-image","target":"nginx:latest"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":true`)
}

func TestSubmitMissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	New(&stubOrchestrator{}).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &domain.ValidationError{Field: "target", Reason: "bad"}, http.StatusBadRequest},
		{"rate limit", &domain.RateLimitError{RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{"queue full", domain.ErrQueueFull, http.StatusServiceUnavailable},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"adapter error stays internal", &domain.AdapterError{Scanner: "trivy", ExitCode: 2, Stderr: "secret"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := &stubOrchestrator{submitErr: tt.err}
			rec := doRequest(t, orch, http.MethodPost, "/api/v1/scans", `{"scan_type":"container-image","target":"nginx"}`)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	orch := &stubOrchestrator{submitErr: &domain.RateLimitError{RetryAfter: 90 * time.Second}}
	rec := doRequest(t, orch, http.MethodPost, "/api/v1/scans", `{"scan_type":"container-image","target":"nginx"}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestInternalDetailIsHidden(t *testing.T) {
	orch := &stubOrchestrator{submitErr: &domain.AdapterError{Scanner: "trivy", ExitCode: 2, Stderr: "/var/lib/trivy corrupted"}}
	rec := doRequest(t, orch, http.MethodPost, "/api/v1/scans", `{"scan_type":"container-image","target":"nginx"}`)

	assert.NotContains(t, rec.Body.String(), "corrupted")
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestGetNotFound(t *testing.T) {
	orch := &stubOrchestrator{getErr: domain.ErrNotFound}
	rec := doRequest(t, orch, http.MethodGet, "/api/v1/scans/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	orch := &stubOrchestrator{deleteErr: domain.ErrNotFound}
	rec := doRequest(t, orch, http.MethodDelete, "/api/v1/scans/gone", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteRunningConflicts(t *testing.T) {
	orch := &stubOrchestrator{deleteErr: &domain.InvalidTransitionError{From: domain.JobRunning, Event: "delete"}}
	rec := doRequest(t, orch, http.MethodDelete, "/api/v1/scans/busy", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
