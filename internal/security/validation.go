// Package security validates untrusted scan input before it reaches the
// fingerprint or queue. Anything rejected here never creates a job.
package security

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"secapi/internal/domain"
)

// Simplified docker image reference: [host[:port]/][namespace/]name[:tag][@digest]
var imageRe = regexp.MustCompile(
	`^(?i)([a-z0-9.-]+(:[0-9]+)?/)?([a-z0-9_.-]+/)*[a-z0-9_-]+(:[\w.-]+)?(@[a-z0-9_]+:[a-f0-9]+)?$`,
)

// Registries scans may pull from. The empty string covers bare image names
// that default to Docker Hub.
var allowedRegistries = map[string]bool{
	"docker.io":             true,
	"registry-1.docker.io":  true,
	"ghcr.io":               true,
	"gcr.io":                true,
	"quay.io":               true,
	"public.ecr.aws":        true,
	"mcr.microsoft.com":     true,
}

// Hosts secrets scans may clone from, keyed by registrable domain.
var allowedRepoHosts = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
}

var shellMeta = []string{"$", ";", "&", "|", "`", "\n", "\r"}

// ValidateRequest checks a scan request and returns a ValidationError on the
// first problem found. It has no side effects.
func ValidateRequest(req domain.ScanRequest) error {
	if !req.ScanType.Valid() {
		return &domain.ValidationError{Field: "scan_type", Reason: "unknown scan type " + string(req.ScanType)}
	}

	target := strings.TrimSpace(req.Target)
	if target == "" {
		return &domain.ValidationError{Field: "target", Reason: "cannot be empty"}
	}
	if len(target) > 500 {
		return &domain.ValidationError{Field: "target", Reason: "too long"}
	}
	for _, c := range shellMeta {
		if strings.Contains(target, c) {
			return &domain.ValidationError{Field: "target", Reason: "contains invalid characters"}
		}
	}

	if err := validateOptions(req.Options); err != nil {
		return err
	}

	switch req.ScanType {
	case domain.ScanTypeContainerImage:
		return validateImage(target)
	case domain.ScanTypeSecrets:
		return validateRepoURL(target)
	case domain.ScanTypeIaC:
		// Local path or directory; the shell-metacharacter check above is
		// the real guard. Reject obvious traversal out of the scan root.
		if strings.Contains(target, "..") {
			return &domain.ValidationError{Field: "target", Reason: "path traversal not allowed"}
		}
	}
	return nil
}

func validateImage(image string) error {
	if !imageRe.MatchString(image) {
		return &domain.ValidationError{Field: "target", Reason: "invalid image reference"}
	}
	// First path segment is a registry host only if it contains a dot or port.
	if i := strings.IndexByte(image, '/'); i > 0 {
		host := image[:i]
		if strings.ContainsAny(host, ".:") && !allowedRegistries[strings.ToLower(host)] {
			return &domain.ValidationError{Field: "target", Reason: "registry not allowed: " + host}
		}
	}
	return nil
}

func validateRepoURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return &domain.ValidationError{Field: "target", Reason: "must be an http(s) repository URL"}
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		registrable = u.Hostname()
	}
	if !allowedRepoHosts[strings.ToLower(registrable)] {
		return &domain.ValidationError{Field: "target", Reason: "repository host not allowed: " + u.Hostname()}
	}
	return nil
}

func validateOptions(opts domain.ScanOptions) error {
	validSeverity := map[string]bool{"CRITICAL": true, "HIGH": true, "MEDIUM": true, "LOW": true, "INFO": true}
	for _, s := range opts.Severity {
		if !validSeverity[strings.ToUpper(strings.TrimSpace(s))] {
			return &domain.ValidationError{Field: "options.severity", Reason: "invalid level " + s}
		}
	}
	validScanner := map[string]bool{"vuln": true, "config": true, "secret": true, "license": true}
	for _, s := range opts.Scanners {
		if !validScanner[strings.ToLower(strings.TrimSpace(s))] {
			return &domain.ValidationError{Field: "options.scanners", Reason: "invalid scanner " + s}
		}
	}
	return nil
}
