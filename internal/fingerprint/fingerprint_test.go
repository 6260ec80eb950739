package fingerprint

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secapi/internal/domain"
)

func imageRequest(target string, opts domain.ScanOptions) domain.ScanRequest {
	return domain.ScanRequest{
		ScanType: domain.ScanTypeContainerImage,
		Target:   target,
		Options:  opts,
	}
}

func TestComputeDeterministic(t *testing.T) {
	req := imageRequest("nginx:latest", domain.ScanOptions{})
	assert.Equal(t, Compute(req), Compute(req))
}

func TestComputeIsValidSHA256Hex(t *testing.T) {
	fp := Compute(imageRequest("nginx:latest", domain.ScanOptions{}))
	require.Len(t, fp, 64)
	_, err := hex.DecodeString(fp)
	require.NoError(t, err)
}

func TestComputeOptionOrderIrrelevant(t *testing.T) {
	a := imageRequest("nginx:latest", domain.ScanOptions{Severity: []string{"HIGH", "CRITICAL"}})
	b := imageRequest("nginx:latest", domain.ScanOptions{Severity: []string{"CRITICAL", "HIGH"}})
	assert.Equal(t, Compute(a), Compute(b))
}

func TestComputeOptionCasingIrrelevant(t *testing.T) {
	a := imageRequest("nginx:latest", domain.ScanOptions{Severity: []string{"high"}, Scanners: []string{"VULN"}})
	b := imageRequest("nginx:latest", domain.ScanOptions{Severity: []string{"HIGH"}, Scanners: []string{"vuln"}})
	assert.Equal(t, Compute(a), Compute(b))
}

func TestComputeExplicitDefaultEqualsOmitted(t *testing.T) {
	omitted := imageRequest("nginx:latest", domain.ScanOptions{})
	explicit := imageRequest("nginx:latest", domain.ScanOptions{
		Severity: []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"},
		Scanners: []string{"vuln"},
	})
	assert.Equal(t, Compute(omitted), Compute(explicit))
}

func TestComputeTargetSensitive(t *testing.T) {
	a := Compute(imageRequest("nginx:latest", domain.ScanOptions{}))
	b := Compute(imageRequest("nginx:1.25", domain.ScanOptions{}))
	assert.NotEqual(t, a, b)
}

func TestComputeTargetCasePreserved(t *testing.T) {
	// Image tags are case-sensitive and must not be folded together.
	a := Compute(imageRequest("nginx:V1", domain.ScanOptions{}))
	b := Compute(imageRequest("nginx:v1", domain.ScanOptions{}))
	assert.NotEqual(t, a, b)
}

func TestComputeTargetTrimmed(t *testing.T) {
	a := Compute(imageRequest("  nginx:latest  ", domain.ScanOptions{}))
	b := Compute(imageRequest("nginx:latest", domain.ScanOptions{}))
	assert.Equal(t, a, b)
}

func TestComputeScanTypeSensitive(t *testing.T) {
	a := Compute(domain.ScanRequest{ScanType: domain.ScanTypeIaC, Target: "infra/"})
	b := Compute(domain.ScanRequest{ScanType: domain.ScanTypeSecrets, Target: "infra/"})
	assert.NotEqual(t, a, b)
}

func TestComputeManyTargetsNoCollision(t *testing.T) {
	seen := make(map[string]string)
	targets := []string{
		"nginx:latest", "nginx:1.25", "nginx:1.25.3", "redis:7", "redis:7-alpine",
		"postgres:16", "ghcr.io/org/app:main", "quay.io/org/app:main",
		"alpine:3.19", "alpine:3.20", "busybox:stable", "ubuntu:24.04",
	}
	for _, target := range targets {
		fp := Compute(imageRequest(target, domain.ScanOptions{}))
		prev, dup := seen[fp]
		require.False(t, dup, "collision between %q and %q", target, prev)
		seen[fp] = target
	}
}
