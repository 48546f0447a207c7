// Package search implements the combined author and poem search over the
// postgres text-search vectors with ILIKE and trigram fallbacks.
package search

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_']+`)

// buildQuery turns free text into a prefix-match tsquery expression,
// "token:* & token:*". An empty result means there is nothing to search for.
func buildQuery(q string) string {
	tokens := tokenPattern.FindAllString(q, -1)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		parts[i] = token + ":*"
	}
	return strings.Join(parts, " & ")
}
