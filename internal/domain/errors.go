package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across adapters and services.
var (
	// ErrNotFound covers both unknown job ids and jobs owned by another
	// user; the two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("scan not found")
	// ErrQueueFull is the back-pressure signal when too many jobs are pending.
	ErrQueueFull = errors.New("scan queue is full")
)

// ValidationError rejects a malformed request before it is fingerprinted or
// persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RateLimitError carries the retry hint for a denied request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// InvalidTransitionError signals an illegal state change, e.g. deleting a
// running job or completing a job twice.
type InvalidTransitionError struct {
	From  JobState
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s a %s scan", e.Event, e.From)
}

// AdapterError means the scanner process itself failed. Error() includes the
// full detail for server-side logs; Redacted() is what clients see.
type AdapterError struct {
	Scanner  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter failed (exit %d): %s", e.Scanner, e.ExitCode, e.Stderr)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Redacted omits stderr, which may leak registry hosts or file paths.
func (e *AdapterError) Redacted() string {
	return fmt.Sprintf("scanner %s failed with exit code %d", e.Scanner, e.ExitCode)
}

// TimeoutError distinguishes "tool too slow" from "tool crashed".
type TimeoutError struct {
	Scanner string
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s scan timed out after %s", e.Scanner, e.Limit)
}

// NormalizationError means the scanner exited cleanly but produced output the
// normalizer cannot parse.
type NormalizationError struct {
	Scanner string
	Reason  string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot parse %s output: %s", e.Scanner, e.Reason)
}

// ClientMessage returns the error text safe to store on a job and return to
// the submitting user. Adapter detail is redacted, everything else passes
// through as-is.
func ClientMessage(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Redacted()
	}
	return err.Error()
}
