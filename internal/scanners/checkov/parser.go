// Package checkov parses checkov's JSON report into unified findings.
package checkov

import (
	"encoding/json"
	"fmt"

	"secapi/internal/domain"
)

type report struct {
	CheckType string  `json:"check_type"`
	Results   results `json:"results"`
}

type results struct {
	FailedChecks []check `json:"failed_checks"`
}

type check struct {
	CheckID   string `json:"check_id"`
	CheckName string `json:"check_name"`
	Severity  string `json:"severity"`
	FilePath  string `json:"file_path"`
	FileLine  []int  `json:"file_line_range"`
	Resource  string `json:"resource"`
	Guideline string `json:"guideline"`
}

// Parse converts a checkov JSON report to unified findings. Checkov emits a
// single report object or, when several frameworks match, an array of them;
// both shapes are accepted. Only failed checks become findings.
func Parse(raw []byte) ([]domain.Finding, error) {
	var reports []report
	if err := json.Unmarshal(raw, &reports); err != nil {
		var single report
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, &domain.NormalizationError{Scanner: "checkov", Reason: err2.Error()}
		}
		reports = append(reports, single)
	}

	findings := []domain.Finding{}
	for _, rep := range reports {
		for _, c := range rep.Results.FailedChecks {
			location := c.FilePath
			if len(c.FileLine) > 0 {
				location = fmt.Sprintf("%s:%d", c.FilePath, c.FileLine[0])
			}
			f := domain.Finding{
				ID: c.CheckID,
				// Checkov omits severity without a platform API key; those
				// findings surface as unknown rather than being dropped.
				Severity:    domain.ParseSeverity(c.Severity),
				Title:       c.CheckName,
				Description: c.CheckName,
				Location:    location,
				RawSeverity: c.Severity,
			}
			meta := map[string]any{}
			if c.Resource != "" {
				meta["resource"] = c.Resource
			}
			if c.Guideline != "" {
				meta["guideline"] = c.Guideline
			}
			if rep.CheckType != "" {
				meta["framework"] = rep.CheckType
			}
			if len(meta) > 0 {
				f.Metadata = meta
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}
