// Package trivy parses trivy's native JSON report into unified findings.
package trivy

import (
	"encoding/json"
	"fmt"

	"secapi/internal/domain"
)

type report struct {
	Results []result `json:"Results"`
}

type result struct {
	Target          string          `json:"Target"`
	Vulnerabilities []vulnerability `json:"Vulnerabilities"`
}

type vulnerability struct {
	VulnerabilityID  string              `json:"VulnerabilityID"`
	Severity         string              `json:"Severity"`
	Title            string              `json:"Title"`
	Description      string              `json:"Description"`
	PkgName          string              `json:"PkgName"`
	InstalledVersion string              `json:"InstalledVersion"`
	FixedVersion     string              `json:"FixedVersion"`
	PrimaryURL       string              `json:"PrimaryURL"`
	CweIDs           []string            `json:"CweIDs"`
	CVSS             map[string]cvssItem `json:"CVSS"`
}

type cvssItem struct {
	V2Score  *float64 `json:"V2Score"`
	V2Vector string   `json:"V2Vector"`
	V3Score  *float64 `json:"V3Score"`
	V3Vector string   `json:"V3Vector"`
}

// Parse converts a trivy JSON report to unified findings. Trivy sometimes
// emits a bare Results array; both shapes are accepted.
func Parse(raw []byte) ([]domain.Finding, error) {
	var rep report
	if err := json.Unmarshal(raw, &rep); err != nil {
		var results []result
		if err2 := json.Unmarshal(raw, &results); err2 != nil {
			return nil, &domain.NormalizationError{Scanner: "trivy", Reason: err.Error()}
		}
		rep.Results = results
	}

	findings := []domain.Finding{}
	for _, res := range rep.Results {
		for _, v := range res.Vulnerabilities {
			f := domain.Finding{
				ID:          v.VulnerabilityID,
				Severity:    domain.ParseSeverity(v.Severity),
				Title:       v.Title,
				Description: v.Description,
				Location:    fmt.Sprintf("%s: %s %s", res.Target, v.PkgName, v.InstalledVersion),
				RawSeverity: v.Severity,
			}
			meta := map[string]any{}
			if v.PkgName != "" {
				meta["package_name"] = v.PkgName
				meta["package_version"] = v.InstalledVersion
			}
			if v.FixedVersion != "" {
				meta["fixed_version"] = v.FixedVersion
			}
			if v.PrimaryURL != "" {
				meta["primary_link"] = v.PrimaryURL
			}
			if len(v.CweIDs) > 0 {
				meta["cwe_ids"] = v.CweIDs
			}
			if cvss := extractCVSS(v.CVSS); len(cvss) > 0 {
				meta["cvss"] = cvss
			}
			if len(meta) > 0 {
				f.Metadata = meta
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}

func extractCVSS(items map[string]cvssItem) map[string]any {
	out := map[string]any{}
	for source, item := range items {
		entry := map[string]any{}
		if item.V3Score != nil {
			entry["v3_score"] = *item.V3Score
			entry["v3_vector"] = item.V3Vector
		}
		if item.V2Score != nil {
			entry["v2_score"] = *item.V2Score
			entry["v2_vector"] = item.V2Vector
		}
		if len(entry) > 0 {
			out[source] = entry
		}
	}
	return out
}
