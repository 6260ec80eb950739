// Package scanrunner claims pending jobs and drives them to a terminal
// state. A single dispatcher goroutine polls the store and feeds a fixed
// pool of workers; the pool size is the only concurrency control on scanner
// execution.
package scanrunner

import (
	"context"
	"errors"
	"log"
	"time"

	"secapi/internal/domain"
	"secapi/internal/ports"
	"secapi/internal/scanners"
)

// Executor performs one claimed job: execute the adapter, normalize the
// output, transition the job, cache the result, publish the event.
type Executor struct {
	Jobs     ports.JobStore
	Cache    ports.ResultCache
	Notifier ports.CompletionNotifier
	// TTLFor maps a tier to its cache TTL; the TTL is chosen at store time.
	TTLFor func(tier string) time.Duration
	// Timeout is the hard per-scan bound; past it the job fails with a
	// TimeoutError.
	Timeout time.Duration
	// AdapterFor is swappable in tests; nil means the real scanner set.
	AdapterFor func(domain.ScanType) (scanners.Adapter, bool)
}

// Process drives one running job to completed or failed. The job must
// already be claimed; Process never touches jobs it was not handed.
func (e *Executor) Process(ctx context.Context, job *domain.Job) error {
	adapterFor := e.AdapterFor
	if adapterFor == nil {
		adapterFor = scanners.For
	}
	adapter, ok := adapterFor(job.ScanType)
	if !ok {
		return e.fail(ctx, job, &domain.ValidationError{Field: "scan_type", Reason: "no adapter for " + string(job.ScanType)})
	}

	scanCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	req := domain.ScanRequest{ScanType: job.ScanType, Target: job.Target, Options: job.Options}
	started := time.Now()

	raw, err := adapter.Execute(scanCtx, req)
	if err != nil {
		return e.fail(ctx, job, err)
	}

	meta := domain.ScanMetadata{
		ScannedAt:       time.Now().UTC(),
		ScannerVersion:  adapter.Name() + " " + adapter.Version(),
		DurationSeconds: time.Since(started).Seconds(),
		Target:          job.Target,
	}
	result, err := scanners.Normalize(job.ScanType, raw, meta)
	if err != nil {
		return e.fail(ctx, job, err)
	}

	if err := e.Jobs.MarkCompleted(ctx, job.ID, raw, result); err != nil {
		return err
	}
	job.State = domain.JobCompleted
	job.Result = result

	// Only completed results are cached; failures always trigger a fresh
	// scan on resubmission.
	if err := e.Cache.Store(ctx, job.Fingerprint, result, e.TTLFor(job.Tier)); err != nil {
		log.Printf("cache store failed for job %s: %v", job.ID, err)
	}
	e.publish(ctx, job)

	log.Printf("job %s completed: %d findings in %.2fs", job.ID, result.Summary.Total(), meta.DurationSeconds)
	return nil
}

func (e *Executor) fail(ctx context.Context, job *domain.Job, cause error) error {
	// Full detail stays in server logs; the stored message is redacted.
	log.Printf("job %s failed: %v", job.ID, cause)
	if err := e.Jobs.MarkFailed(ctx, job.ID, domain.ClientMessage(cause)); err != nil {
		var inv *domain.InvalidTransitionError
		if !errors.As(err, &inv) {
			return err
		}
	}
	job.State = domain.JobFailed
	e.publish(ctx, job)
	return cause
}

func (e *Executor) publish(ctx context.Context, job *domain.Job) {
	if e.Notifier == nil {
		return
	}
	if err := e.Notifier.Publish(ctx, job); err != nil {
		log.Printf("completion notify failed for job %s: %v", job.ID, err)
	}
}

// Run starts the dispatcher and worker goroutines and blocks until ctx is
// done. Claimed jobs flow through a channel sized to the pool so the
// dispatcher backs off while all workers are busy.
func Run(ctx context.Context, exec *Executor, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan *domain.Job, concurrency)

	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					job, found, err := exec.Jobs.ClaimNext(ctx)
					if err != nil {
						if ctx.Err() == nil {
							log.Printf("job claim error: %v", err)
						}
						break
					}
					if !found {
						break
					}
					select {
					case jobsCh <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	done := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			defer func() { done <- struct{}{} }()
			for job := range jobsCh {
				if err := exec.Process(ctx, job); err != nil {
					log.Printf("worker %d: job %s: %v", idx, job.ID, err)
				}
			}
		}(i)
	}
	for i := 0; i < concurrency; i++ {
		<-done
	}
}
