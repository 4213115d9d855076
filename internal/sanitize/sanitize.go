// Package sanitize strips obviously dangerous constructs from scraped HTML
// fragments. It is a best-effort pattern-based strip, not a security-grade
// sanitizer; callers needing strict guarantees must layer one on top.
package sanitize

import "regexp"

var (
	scriptBlockPattern   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	noscriptBlockPattern = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	eventHandlerPattern  = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*(?:"[^"]*"|'[^']*')`)
)

// Clean removes script blocks, noscript blocks and inline on* event-handler
// attributes. Cleaning already-clean content yields the same output.
func Clean(fragment string) string {
	cleaned := scriptBlockPattern.ReplaceAllString(fragment, "")
	cleaned = noscriptBlockPattern.ReplaceAllString(cleaned, "")
	cleaned = eventHandlerPattern.ReplaceAllString(cleaned, "")
	return cleaned
}
