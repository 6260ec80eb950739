// Package httpadapter exposes the orchestrator over HTTP. It is a thin
// boundary: decode, call, encode. Authentication happens upstream; the
// authenticated user id and tier arrive as trusted headers.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"secapi/internal/domain"
	"secapi/internal/ports"
)

const (
	headerUser = "X-User-Id"
	headerTier = "X-User-Tier"
)

type Server struct {
	orch ports.Orchestrator
}

func New(orch ports.Orchestrator) *Server {
	return &Server{orch: orch}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scans", s.submit)
		r.Get("/scans", s.list)
		r.Get("/scans/{id}", s.get)
		r.Delete("/scans/{id}", s.remove)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	user, tier, ok := identity(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "missing identity"})
		return
	}

	var req domain.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid json"})
		return
	}

	res, err := s.orch.Submit(r.Context(), user, tier, req)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	if res.Cached {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]any{
			"status":  "completed",
			"cached":  true,
			"results": res.Result,
		})
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"job_id":           res.JobID,
		"status":           string(domain.JobPending),
		"check_status_url": "/api/v1/scans/" + res.JobID,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	user, _, ok := identity(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "missing identity"})
		return
	}
	job, err := s.orch.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	user, _, ok := identity(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "missing identity"})
		return
	}
	q := r.URL.Query()
	filter := ports.JobFilter{
		State:    domain.JobState(q.Get("status")),
		ScanType: domain.ScanType(q.Get("type")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	page, err := s.orch.List(r.Context(), user, filter)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"scans":     page.Jobs,
	})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	user, _, ok := identity(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "missing identity"})
		return
	}
	err := s.orch.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		// Deleting an already-deleted job is a no-op for the caller.
		s.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusNoContent)
	render.NoContent(w, r)
}

func identity(r *http.Request) (user, tier string, ok bool) {
	user = r.Header.Get(headerUser)
	tier = r.Header.Get(headerTier)
	if tier == "" {
		tier = "free"
	}
	return user, tier, user != ""
}

// renderError maps the error taxonomy onto HTTP statuses. Everything typed
// surfaces with its message; only unknown errors hide behind a 500.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		rate       *domain.RateLimitError
		invalid    *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		render.Status(r, http.StatusBadRequest)
	case errors.As(err, &rate):
		w.Header().Set("Retry-After", strconv.Itoa(int(rate.RetryAfter.Seconds())+1))
		render.Status(r, http.StatusTooManyRequests)
	case errors.As(err, &invalid):
		render.Status(r, http.StatusConflict)
	case errors.Is(err, domain.ErrQueueFull):
		render.Status(r, http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		render.Status(r, http.StatusNotFound)
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
		return
	}
	render.JSON(w, r, map[string]string{"error": err.Error()})
}
