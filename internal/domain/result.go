package domain

import (
	"sort"
	"strings"
	"time"
)

// Severity is the unified five-level scale (plus unknown) every scanner's
// native vocabulary maps onto.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
	SeverityUnknown:  0,
}

// Rank orders severities for sorting; higher is more severe.
func (s Severity) Rank() int { return severityRank[s] }

// ParseSeverity maps the vocabulary shared across scanners onto the unified
// scale. Strings outside the mapping become SeverityUnknown, never dropped.
func ParseSeverity(raw string) Severity {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	case "INFO", "INFORMATIONAL", "NEGLIGIBLE":
		return SeverityInfo
	default:
		return SeverityUnknown
	}
}

// Finding is one normalized security issue, independent of source scanner.
// RawSeverity preserves the scanner's original string for audit.
type Finding struct {
	ID          string         `json:"id"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	RawSeverity string         `json:"raw_severity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SeverityCount is the per-severity partition of a result's findings.
type SeverityCount struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Unknown  int `json:"unknown"`
}

func (c SeverityCount) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info + c.Unknown
}

func (c *SeverityCount) add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	case SeverityInfo:
		c.Info++
	default:
		c.Unknown++
	}
}

// ScanMetadata describes how a result was produced.
type ScanMetadata struct {
	ScannedAt       time.Time `json:"scanned_at"`
	ScannerVersion  string    `json:"scanner_version"`
	DurationSeconds float64   `json:"scan_duration_seconds"`
	Target          string    `json:"target,omitempty"`
}

// ScanResult is the unified output contract. Findings are ordered by
// descending severity then id, and Summary always partitions them.
type ScanResult struct {
	ScanType ScanType      `json:"scan_type"`
	Metadata ScanMetadata  `json:"metadata"`
	Summary  SeverityCount `json:"summary"`
	Findings []Finding     `json:"findings"`
}

// NewScanResult sorts findings deterministically and derives the summary.
func NewScanResult(t ScanType, meta ScanMetadata, findings []Finding) *ScanResult {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].ID < findings[j].ID
	})
	res := &ScanResult{
		ScanType: t,
		Metadata: meta,
		Findings: findings,
	}
	for _, f := range findings {
		res.Summary.add(f.Severity)
	}
	return res
}
