package ports

import (
	"context"
	"time"

	"secapi/internal/domain"
)

// JobStore is the durable record of every submitted scan. All state changes
// are single-record atomic operations; claims are compare-and-swap on
// pending -> running so a job is never taken by two workers.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error

	// ClaimNext atomically transitions the oldest pending job to running
	// and returns it. found is false when nothing is pending.
	ClaimNext(ctx context.Context) (job *domain.Job, found bool, err error)

	// MarkCompleted transitions running -> completed; any other source
	// state is an InvalidTransitionError.
	MarkCompleted(ctx context.Context, jobID string, raw []byte, result *domain.ScanResult) error

	// MarkFailed transitions running -> failed with a client-safe reason.
	MarkFailed(ctx context.Context, jobID string, reason string) error

	// Get enforces ownership: a job belonging to another user is
	// domain.ErrNotFound, never a distinct "forbidden".
	Get(ctx context.Context, jobID, userID string) (*domain.Job, error)

	List(ctx context.Context, userID string, filter JobFilter) (JobPage, error)

	// Delete cancels a pending job (removing it from the queue) or removes
	// a terminal one. Deleting a running job is an InvalidTransitionError.
	Delete(ctx context.Context, jobID, userID string) error

	// CountPending backs the orchestrator's queue-depth cap.
	CountPending(ctx context.Context) (int, error)
}

// ResultCache stores completed results keyed by request fingerprint. Failed
// scans are never cached. Concurrent stores are last-write-wins.
type ResultCache interface {
	Lookup(ctx context.Context, fingerprint string) (result *domain.ScanResult, ok bool, err error)
	Store(ctx context.Context, fingerprint string, result *domain.ScanResult, ttl time.Duration) error
	Invalidate(ctx context.Context, fingerprint string) error
}

// RateDecision is the outcome of a single atomic check-and-record.
type RateDecision struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter counts requests per (user, endpoint) hour bucket. The check
// and the increment are one atomic operation.
type RateLimiter interface {
	CheckAndRecord(ctx context.Context, userID, tier, endpoint string) (RateDecision, error)
}

// CompletionNotifier pushes terminal-state events so clients are not limited
// to polling. Implementations must be safe to call from multiple workers.
type CompletionNotifier interface {
	Publish(ctx context.Context, job *domain.Job) error
}
