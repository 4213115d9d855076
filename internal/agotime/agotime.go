// Package agotime resolves human-readable relative time labels such as
// "3 days ago" into absolute timestamps.
package agotime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var firstNumberPattern = regexp.MustCompile(`\d+`)

type unit struct {
	keyword string
	apply   func(t time.Time, quantity int) time.Time
}

// Unit keywords are matched as substrings in priority order; the first hit
// wins even when the label mentions several units.
var units = []unit{
	{"hour", func(t time.Time, q int) time.Time { return t.Add(-time.Duration(q) * time.Hour) }},
	{"day", func(t time.Time, q int) time.Time { return t.AddDate(0, 0, -q) }},
	{"month", func(t time.Time, q int) time.Time { return t.AddDate(0, -q, 0) }},
	{"year", func(t time.Time, q int) time.Time { return t.AddDate(-q, 0, 0) }},
}

// Parse resolves an "ago"-style label against now. It returns nil when the
// label does not contain the literal substring "ago" or mentions no known
// unit. A label without a number counts as zero units.
func Parse(label string, now time.Time) *time.Time {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" || !strings.Contains(normalized, "ago") {
		return nil
	}

	quantity := 0
	if raw := firstNumberPattern.FindString(normalized); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil {
			quantity = parsed
		}
	}

	for _, u := range units {
		if !strings.Contains(normalized, u.keyword) {
			continue
		}
		result := u.apply(now.UTC(), quantity)
		return &result
	}

	return nil
}
