// Package orchestrator is the facade the API boundary talks to: it owns the
// submit pipeline (validate, fingerprint, cache, rate limit, queue cap,
// persist) and delegates reads and deletes to the job store.
package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"secapi/internal/domain"
	"secapi/internal/fingerprint"
	"secapi/internal/ports"
	"secapi/internal/security"
)

const submitEndpoint = "scan:submit"

type Service struct {
	jobs     ports.JobStore
	cache    ports.ResultCache
	limiter  ports.RateLimiter
	maxQueue int
}

func New(jobs ports.JobStore, cache ports.ResultCache, limiter ports.RateLimiter, maxQueue int) *Service {
	return &Service{jobs: jobs, cache: cache, limiter: limiter, maxQueue: maxQueue}
}

// Submit runs the intake pipeline. A cache hit returns the stored result
// without touching the rate limiter or the queue; the submission never
// blocks on scanner execution.
func (s *Service) Submit(ctx context.Context, userID, tier string, req domain.ScanRequest) (ports.SubmitResult, error) {
	if err := security.ValidateRequest(req); err != nil {
		return ports.SubmitResult{}, err
	}

	fp := fingerprint.Compute(req)

	if result, ok, err := s.cache.Lookup(ctx, fp); err != nil {
		// A cache outage degrades to a fresh scan rather than failing the
		// submission.
		log.Printf("cache lookup failed for %s: %v", fp, err)
	} else if ok {
		return ports.SubmitResult{Cached: true, Result: result}, nil
	}

	decision, err := s.limiter.CheckAndRecord(ctx, userID, tier, submitEndpoint)
	if err != nil {
		return ports.SubmitResult{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !decision.Allowed {
		return ports.SubmitResult{}, &domain.RateLimitError{RetryAfter: decision.RetryAfter}
	}

	if s.maxQueue > 0 {
		pending, err := s.jobs.CountPending(ctx)
		if err != nil {
			return ports.SubmitResult{}, fmt.Errorf("queue depth check: %w", err)
		}
		if pending >= s.maxQueue {
			return ports.SubmitResult{}, domain.ErrQueueFull
		}
	}

	job := domain.NewJob(uuid.NewString(), userID, tier, req, fp)
	if err := s.jobs.Create(ctx, job); err != nil {
		return ports.SubmitResult{}, fmt.Errorf("persist job: %w", err)
	}

	log.Printf("scan submitted: job=%s type=%s user=%s", job.ID, job.ScanType, userID)
	return ports.SubmitResult{JobID: job.ID}, nil
}

func (s *Service) Get(ctx context.Context, userID, jobID string) (*domain.Job, error) {
	return s.jobs.Get(ctx, jobID, userID)
}

func (s *Service) List(ctx context.Context, userID string, filter ports.JobFilter) (ports.JobPage, error) {
	return s.jobs.List(ctx, userID, filter)
}

func (s *Service) Delete(ctx context.Context, userID, jobID string) error {
	err := s.jobs.Delete(ctx, jobID, userID)
	if err == nil {
		log.Printf("scan deleted: job=%s user=%s", jobID, userID)
	}
	return err
}
