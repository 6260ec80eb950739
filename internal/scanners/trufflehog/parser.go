// Package trufflehog parses trufflehog's JSON-lines output into unified
// findings. Trufflehog has no native severity; a verified (live) credential
// maps to critical, an unverified candidate to medium.
package trufflehog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"secapi/internal/domain"
)

type detection struct {
	DetectorName   string `json:"DetectorName"`
	DecoderName    string `json:"DecoderName"`
	Verified       bool   `json:"Verified"`
	Redacted       string `json:"Redacted"`
	SourceMetadata struct {
		Data struct {
			Git *struct {
				Commit     string `json:"commit"`
				File       string `json:"file"`
				Line       int    `json:"line"`
				Repository string `json:"repository"`
			} `json:"Git"`
			Filesystem *struct {
				File string `json:"file"`
				Line int    `json:"line"`
			} `json:"Filesystem"`
		} `json:"Data"`
	} `json:"SourceMetadata"`
}

// Parse reads one JSON object per line, skipping blank lines. A line that is
// not valid JSON makes the whole output unparsable; partial results would
// silently hide findings.
func Parse(raw []byte) ([]domain.Finding, error) {
	findings := []domain.Finding{}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var d detection
		if err := json.Unmarshal(line, &d); err != nil {
			return nil, &domain.NormalizationError{
				Scanner: "trufflehog",
				Reason:  fmt.Sprintf("line %d: %v", lineNo, err),
			}
		}
		if d.DetectorName == "" {
			// Log lines and progress records also come out as JSON; skip them.
			continue
		}
		findings = append(findings, toFinding(d))
	}
	if err := scanner.Err(); err != nil {
		return nil, &domain.NormalizationError{Scanner: "trufflehog", Reason: err.Error()}
	}
	return findings, nil
}

func toFinding(d detection) domain.Finding {
	severity := domain.SeverityMedium
	rawSeverity := "unverified"
	if d.Verified {
		severity = domain.SeverityCritical
		rawSeverity = "verified"
	}

	location := "unknown"
	meta := map[string]any{"verified": d.Verified}
	if git := d.SourceMetadata.Data.Git; git != nil {
		location = fmt.Sprintf("%s:%d", git.File, git.Line)
		meta["commit"] = git.Commit
		meta["repository"] = git.Repository
	} else if fs := d.SourceMetadata.Data.Filesystem; fs != nil {
		location = fmt.Sprintf("%s:%d", fs.File, fs.Line)
	}
	if d.Redacted != "" {
		meta["redacted"] = d.Redacted
	}

	return domain.Finding{
		ID:          d.DetectorName,
		Severity:    severity,
		Title:       d.DetectorName + " credential detected",
		Description: "Potential " + d.DetectorName + " credential found in repository history",
		Location:    location,
		RawSeverity: rawSeverity,
		Metadata:    meta,
	}
}
