package domain

import (
	"sort"
	"strings"
	"time"
)

// ScanType selects which scanner backs a request. The set is closed; adding a
// scanner means adding a constant here and a matching adapter variant.
type ScanType string

const (
	ScanTypeContainerImage ScanType = "container-image"
	ScanTypeIaC            ScanType = "iac"
	ScanTypeSecrets        ScanType = "secrets"
)

func (t ScanType) Valid() bool {
	switch t {
	case ScanTypeContainerImage, ScanTypeIaC, ScanTypeSecrets:
		return true
	}
	return false
}

// ScanOptions are the scanner flags a caller may tune. Zero values mean
// "use the documented defaults"; Normalized fills them in so an explicit
// default and an omitted option are indistinguishable downstream.
type ScanOptions struct {
	// Severity filters findings at scan time (CRITICAL, HIGH, MEDIUM, LOW, INFO).
	Severity []string `json:"severity,omitempty"`
	// Scanners selects trivy sub-scanners (vuln, config, secret, license).
	// Ignored for iac and secrets scans.
	Scanners []string `json:"scanners,omitempty"`
}

var (
	defaultSeverity = []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"}
	defaultScanners = []string{"vuln"}
)

// Normalized returns a copy with defaults applied, casing fixed and lists
// sorted. Fingerprinting and the adapters both work from this form.
func (o ScanOptions) Normalized(t ScanType) ScanOptions {
	out := ScanOptions{}
	if len(o.Severity) == 0 {
		out.Severity = append(out.Severity, defaultSeverity...)
	} else {
		for _, s := range o.Severity {
			out.Severity = append(out.Severity, strings.ToUpper(strings.TrimSpace(s)))
		}
	}
	sort.Strings(out.Severity)

	if t == ScanTypeContainerImage {
		if len(o.Scanners) == 0 {
			out.Scanners = append(out.Scanners, defaultScanners...)
		} else {
			for _, s := range o.Scanners {
				out.Scanners = append(out.Scanners, strings.ToLower(strings.TrimSpace(s)))
			}
		}
		sort.Strings(out.Scanners)
	}
	return out
}

// ScanRequest is the immutable submission value. Target casing is preserved:
// image tags and repo paths are case-sensitive.
type ScanRequest struct {
	ScanType ScanType    `json:"scan_type"`
	Target   string      `json:"target"`
	Options  ScanOptions `json:"options"`
}

// JobState is the lifecycle state of a scan job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Terminal reports whether no further transition is permitted from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCanceled:
		return true
	}
	return false
}

// Job is the mutable scan entity. It is owned by the job store; everything
// else mutates it only through the store's transition operations.
type Job struct {
	ID          string      `json:"job_id"`
	UserID      string      `json:"-"`
	Tier        string      `json:"-"`
	ScanType    ScanType    `json:"scan_type"`
	Target      string      `json:"target"`
	Options     ScanOptions `json:"options"`
	Fingerprint string      `json:"fingerprint"`
	State       JobState    `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	// RawOutput is the scanner's native output, retained server-side only.
	RawOutput []byte      `json:"-"`
	Result    *ScanResult `json:"results,omitempty"`
	Error     string      `json:"error_message,omitempty"`
}

// NewJob builds a pending job for a normalized request.
func NewJob(id, userID, tier string, req ScanRequest, fingerprint string) *Job {
	return &Job{
		ID:          id,
		UserID:      userID,
		Tier:        tier,
		ScanType:    req.ScanType,
		Target:      req.Target,
		Options:     req.Options.Normalized(req.ScanType),
		Fingerprint: fingerprint,
		State:       JobPending,
		CreatedAt:   time.Now().UTC(),
	}
}
