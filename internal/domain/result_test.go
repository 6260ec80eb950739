package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected Severity
	}{
		{"CRITICAL", SeverityCritical},
		{"critical", SeverityCritical},
		{"HIGH", SeverityHigh},
		{"MEDIUM", SeverityMedium},
		{"MODERATE", SeverityMedium},
		{"LOW", SeverityLow},
		{"INFO", SeverityInfo},
		{"NEGLIGIBLE", SeverityInfo},
		{" high ", SeverityHigh},
		{"UNKNOWN", SeverityUnknown},
		{"banana", SeverityUnknown},
		{"", SeverityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseSeverity(tt.input), "input %q", tt.input)
	}
}

func TestNewScanResultSummaryPartitionsFindings(t *testing.T) {
	findings := []Finding{
		{ID: "CVE-1", Severity: SeverityCritical},
		{ID: "CVE-2", Severity: SeverityCritical},
		{ID: "CVE-3", Severity: SeverityLow},
		{ID: "CVE-4", Severity: SeverityUnknown},
		{ID: "CVE-5", Severity: SeverityInfo},
	}
	res := NewScanResult(ScanTypeContainerImage, ScanMetadata{}, findings)

	assert.Equal(t, 2, res.Summary.Critical)
	assert.Equal(t, 0, res.Summary.High)
	assert.Equal(t, 1, res.Summary.Low)
	assert.Equal(t, 1, res.Summary.Info)
	assert.Equal(t, 1, res.Summary.Unknown)
	assert.Equal(t, len(res.Findings), res.Summary.Total())
}

func TestNewScanResultOrdering(t *testing.T) {
	findings := []Finding{
		{ID: "CVE-B", Severity: SeverityLow},
		{ID: "CVE-Z", Severity: SeverityCritical},
		{ID: "CVE-A", Severity: SeverityCritical},
		{ID: "CVE-C", Severity: SeverityHigh},
	}
	res := NewScanResult(ScanTypeContainerImage, ScanMetadata{}, findings)

	ids := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		ids = append(ids, f.ID)
	}
	// Descending severity, then id, for deterministic output.
	assert.Equal(t, []string{"CVE-A", "CVE-Z", "CVE-C", "CVE-B"}, ids)
}

func TestNewScanResultEmpty(t *testing.T) {
	res := NewScanResult(ScanTypeIaC, ScanMetadata{}, []Finding{})
	assert.Equal(t, 0, res.Summary.Total())
	assert.Empty(t, res.Findings)
}

func TestOptionsNormalizedDefaults(t *testing.T) {
	opts := ScanOptions{}.Normalized(ScanTypeContainerImage)
	assert.Equal(t, []string{"CRITICAL", "HIGH", "LOW", "MEDIUM"}, opts.Severity)
	assert.Equal(t, []string{"vuln"}, opts.Scanners)

	// Non-image scans have no sub-scanner dimension.
	opts = ScanOptions{Scanners: []string{"vuln"}}.Normalized(ScanTypeSecrets)
	assert.Empty(t, opts.Scanners)
}

func TestJobStateTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.True(t, JobCanceled.Terminal())
}
