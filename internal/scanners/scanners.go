// Package scanners executes the external scanner binaries and turns their
// native output into the unified result schema. Scanners form a closed set
// selected by scan type; adding one means adding an Adapter variant and a
// parser package, not runtime registration.
package scanners

import (
	"context"
	"errors"
	"strings"
	"time"

	"secapi/internal/domain"
	"secapi/internal/scanners/checkov"
	"secapi/internal/scanners/trivy"
	"secapi/internal/scanners/trufflehog"
)

// Adapter executes one underlying scanner binary for a request and returns
// its raw output bytes. The adapter owns all subprocess handling; callers
// only ever see bytes or a typed error.
type Adapter interface {
	Name() string
	Version() string
	Execute(ctx context.Context, req domain.ScanRequest) ([]byte, error)
}

// For returns the adapter variant for a scan type.
func For(t domain.ScanType) (Adapter, bool) {
	switch t {
	case domain.ScanTypeContainerImage:
		return &trivyAdapter{}, true
	case domain.ScanTypeIaC:
		return &checkovAdapter{}, true
	case domain.ScanTypeSecrets:
		return &trufflehogAdapter{}, true
	}
	return nil, false
}

// Normalize maps a scanner's raw output onto the unified schema. Unparsable
// output is a NormalizationError, never a silent empty result.
func Normalize(t domain.ScanType, raw []byte, meta domain.ScanMetadata) (*domain.ScanResult, error) {
	var (
		findings []domain.Finding
		err      error
	)
	switch t {
	case domain.ScanTypeContainerImage:
		findings, err = trivy.Parse(raw)
	case domain.ScanTypeIaC:
		findings, err = checkov.Parse(raw)
	case domain.ScanTypeSecrets:
		findings, err = trufflehog.Parse(raw)
	default:
		return nil, &domain.NormalizationError{Scanner: string(t), Reason: "no normalizer for scan type"}
	}
	if err != nil {
		return nil, err
	}
	return domain.NewScanResult(t, meta, findings), nil
}

// classify wraps an execution failure in the right taxonomy member: context
// expiry is a TimeoutError, anything else an AdapterError.
func classify(name string, limit time.Duration, res *execResult, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Scanner: name, Limit: limit}
	}
	ae := &domain.AdapterError{Scanner: name, Err: err}
	if res != nil {
		ae.ExitCode = res.ExitCode
		ae.Stderr = strings.TrimSpace(res.Stderr)
	}
	return ae
}

type trivyAdapter struct{}

func (a *trivyAdapter) Name() string    { return "trivy" }
func (a *trivyAdapter) Version() string { return trivyVersion() }

func (a *trivyAdapter) Execute(ctx context.Context, req domain.ScanRequest) ([]byte, error) {
	opts := req.Options.Normalized(req.ScanType)
	args := []string{
		"image",
		"--format", "json",
		"--quiet",
		"--no-progress",
		"--severity", strings.Join(opts.Severity, ","),
		"--scanners", strings.Join(opts.Scanners, ","),
		req.Target,
	}
	deadline := deadlineOf(ctx)
	res, err := run(ctx, "trivy", args...)
	if err != nil {
		return nil, classify(a.Name(), deadline, res, err)
	}
	return res.Stdout, nil
}

type checkovAdapter struct{}

func (a *checkovAdapter) Name() string    { return "checkov" }
func (a *checkovAdapter) Version() string { return "" }

func (a *checkovAdapter) Execute(ctx context.Context, req domain.ScanRequest) ([]byte, error) {
	args := []string{
		"--directory", req.Target,
		"--output", "json",
		"--quiet",
		"--compact",
	}
	deadline := deadlineOf(ctx)
	res, err := run(ctx, "checkov", args...)
	if err != nil {
		// Checkov exits 1 when failed checks exist; that is a scan result,
		// not an execution failure.
		if res != nil && res.ExitCode == 1 && len(res.Stdout) > 0 {
			return res.Stdout, nil
		}
		return nil, classify(a.Name(), deadline, res, err)
	}
	return res.Stdout, nil
}

type trufflehogAdapter struct{}

func (a *trufflehogAdapter) Name() string    { return "trufflehog" }
func (a *trufflehogAdapter) Version() string { return "" }

func (a *trufflehogAdapter) Execute(ctx context.Context, req domain.ScanRequest) ([]byte, error) {
	args := []string{
		"git", req.Target,
		"--json",
		"--no-update",
	}
	deadline := deadlineOf(ctx)
	res, err := run(ctx, "trufflehog", args...)
	if err != nil {
		return nil, classify(a.Name(), deadline, res, err)
	}
	return res.Stdout, nil
}

func deadlineOf(ctx context.Context) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d).Round(time.Second)
	}
	return 0
}

// trivyVersion asks the local binary for its version once per call site; a
// missing binary just yields an empty string in the result metadata.
func trivyVersion() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := run(ctx, "trivy", "--version")
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(res.Stdout)), "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
}
