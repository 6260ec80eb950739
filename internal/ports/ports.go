package ports

import (
	"context"

	"secapi/internal/domain"
)

// SubmitResult is what a submission returns immediately. Cached submissions
// short-circuit the queue and carry the result inline.
type SubmitResult struct {
	JobID  string
	Cached bool
	Result *domain.ScanResult
}

// JobFilter narrows and pages a listing. Zero values mean "no filter".
type JobFilter struct {
	State    domain.JobState
	ScanType domain.ScanType
	Page     int
	PageSize int
}

// JobPage is one page of a user's jobs, newest first.
type JobPage struct {
	Total    int
	Page     int
	PageSize int
	Jobs     []domain.Job
}

// Orchestrator is the single entry point consumed by the API boundary. The
// caller supplies an authenticated user id and tier; the core trusts both.
type Orchestrator interface {
	Submit(ctx context.Context, userID, tier string, req domain.ScanRequest) (SubmitResult, error)
	Get(ctx context.Context, userID, jobID string) (*domain.Job, error)
	List(ctx context.Context, userID string, filter JobFilter) (JobPage, error)
	Delete(ctx context.Context, userID, jobID string) error
}
