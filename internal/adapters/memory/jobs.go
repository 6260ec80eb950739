// Package memory provides in-memory implementations of the store ports.
// They back tests and DB-less local runs; the postgres and redis adapters
// are the production counterparts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"secapi/internal/domain"
	"secapi/internal/ports"
)

// JobStore is a mutex-guarded JobStore. Claim is a compare-and-swap under
// the lock, so a job can never be taken by two workers.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.Job)}
}

func (s *JobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *JobStore) ClaimNext(_ context.Context) (*domain.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.Job
	for _, j := range s.jobs {
		if j.State != domain.JobPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = j
		}
	}
	if oldest == nil {
		return nil, false, nil
	}
	now := time.Now().UTC()
	oldest.State = domain.JobRunning
	oldest.StartedAt = &now
	cp := *oldest
	return &cp, true, nil
}

func (s *JobStore) MarkCompleted(_ context.Context, jobID string, raw []byte, result *domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.State != domain.JobRunning {
		return &domain.InvalidTransitionError{From: j.State, Event: "complete"}
	}
	now := time.Now().UTC()
	j.State = domain.JobCompleted
	j.CompletedAt = &now
	j.RawOutput = raw
	j.Result = result
	return nil
}

func (s *JobStore) MarkFailed(_ context.Context, jobID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if j.State != domain.JobRunning {
		return &domain.InvalidTransitionError{From: j.State, Event: "fail"}
	}
	now := time.Now().UTC()
	j.State = domain.JobFailed
	j.CompletedAt = &now
	j.Error = reason
	return nil
}

func (s *JobStore) Get(_ context.Context, jobID, userID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *JobStore) List(_ context.Context, userID string, f ports.JobFilter) (ports.JobPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Job
	for _, j := range s.jobs {
		if j.UserID != userID {
			continue
		}
		if f.State != "" && j.State != f.State {
			continue
		}
		if f.ScanType != "" && j.ScanType != f.ScanType {
			continue
		}
		matched = append(matched, *j)
	}
	sort.Slice(matched, func(i, k int) bool {
		return matched[i].CreatedAt.After(matched[k].CreatedAt)
	})

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	out := ports.JobPage{Total: len(matched), Page: page, PageSize: size}
	lo := (page - 1) * size
	if lo < len(matched) {
		hi := lo + size
		if hi > len(matched) {
			hi = len(matched)
		}
		out.Jobs = matched[lo:hi]
	}
	return out, nil
}

func (s *JobStore) Delete(_ context.Context, jobID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.UserID != userID {
		return domain.ErrNotFound
	}
	switch {
	case j.State == domain.JobPending:
		// Canceling is what removes a pending job from the queue: workers
		// only ever claim pending jobs.
		j.State = domain.JobCanceled
		now := time.Now().UTC()
		j.CompletedAt = &now
	case j.State.Terminal():
		delete(s.jobs, jobID)
	default:
		return &domain.InvalidTransitionError{From: j.State, Event: "delete"}
	}
	return nil
}

func (s *JobStore) CountPending(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.State == domain.JobPending {
			n++
		}
	}
	return n, nil
}
