package searchutil

import "strings"

var normalizeReplacer = strings.NewReplacer(
	"-", " ",
	".", " ",
	"_", " ",
	",", " ",
	":", " ",
	";", " ",
	"!", " ",
	"?", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
	"{", " ",
	"}", " ",
	"'", " ",
	"\"", " ",
	"/", " ",
	"\\", " ",
	"|", " ",
	"+", " ",
	"=", " ",
	"#", " ",
	"&", " ",
	"*", " ",
)

// Normalize lowercases a title and collapses punctuation and whitespace so
// that "Lord of Mysteries!" and "lord-of-mysteries" compare equal.
func Normalize(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return ""
	}
	clean = normalizeReplacer.Replace(clean)
	return strings.Join(strings.Fields(clean), " ")
}

func TokenizeNormalized(normalized string) []string {
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil
	}

	parts := strings.Fields(trimmed)
	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if _, exists := seen[part]; exists {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}

	return tokens
}

// MatchesQuery reports whether a candidate title matches either the whole
// normalized query as a substring or every query token individually.
func MatchesQuery(candidate string, normalizedQuery string, queryTokens []string) bool {
	normalizedCandidate := Normalize(candidate)
	if normalizedCandidate == "" {
		return false
	}

	if normalizedQuery != "" && strings.Contains(normalizedCandidate, normalizedQuery) {
		return true
	}
	if len(queryTokens) == 0 {
		return false
	}

	for _, token := range queryTokens {
		if token == "" {
			continue
		}
		if !strings.Contains(normalizedCandidate, token) {
			return false
		}
	}

	return true
}
