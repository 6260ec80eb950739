// Package notify pushes terminal-state scan events over NATS so clients are
// not limited to polling. Notification is best-effort; job state is the
// source of truth either way.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"secapi/internal/domain"
)

const subjectCompleted = "scans.completed"

type event struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	ScanType    string     `json:"scan_type"`
	Fingerprint string     `json:"fingerprint"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Publisher publishes completion events to NATS.
type Publisher struct {
	nc *nats.Conn
}

func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Publish(_ context.Context, job *domain.Job) error {
	data, err := json.Marshal(event{
		JobID:       job.ID,
		Status:      string(job.State),
		ScanType:    string(job.ScanType),
		Fingerprint: job.Fingerprint,
		CompletedAt: job.CompletedAt,
	})
	if err != nil {
		return err
	}
	return p.nc.Publish(subjectCompleted, data)
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}

// Noop discards events; used when no NATS URL is configured and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, *domain.Job) error { return nil }
