// File: internal/infra/metrics/metrics.go
package metrics

import "strings"

// norm keeps label cardinality sane: lowercase, no spaces, bounded length.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > 48 {
		s = s[:48]
	}
	if s == "" {
		return "unknown"
	}
	return s
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
