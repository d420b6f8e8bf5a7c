package tracking

import "strings"

// NormalizeDomain canonicalize a hostname by stripping a leading "www."
func NormalizeDomain(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}

// MatchesDomain report whether candidate falls under pattern, either as the
// exact host or as a subdomain. Both sides are normalized first
func MatchesDomain(candidate, pattern string) bool {
	curr := NormalizeDomain(candidate)
	target := NormalizeDomain(pattern)
	if target == "" {
		return false
	}
	return curr == target || strings.HasSuffix(curr, "."+target)
}
