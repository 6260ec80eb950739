// Package fingerprint derives the deduplication digest for scan requests.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"secapi/internal/domain"
)

// Compute returns the hex SHA-256 digest identifying a semantically unique
// scan request. Two requests that differ only in option ordering, option
// casing or omitted defaults produce the same digest. The target is trimmed
// but never case-folded: image tags and repo paths are case-sensitive.
func Compute(req domain.ScanRequest) string {
	opts := req.Options.Normalized(req.ScanType)

	var b strings.Builder
	b.WriteString(string(req.ScanType))
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(req.Target))
	b.WriteByte('\n')
	// Fixed key order keeps the encoding canonical; list values are already
	// sorted by Normalized.
	b.WriteString("scanners=")
	b.WriteString(strings.Join(opts.Scanners, ","))
	b.WriteByte('\n')
	b.WriteString("severity=")
	b.WriteString(strings.Join(opts.Severity, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
