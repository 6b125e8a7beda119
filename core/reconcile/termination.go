package reconcile

import (
	"strings"
	"time"
)

// terminationLayouts are tried in order when parsing a termination date.
var terminationLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05 Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// ParseTerminationDate parses raw using the supported layouts. Dates without
// a zone are read as UTC.
func ParseTerminationDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range terminationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsTerminated reports whether the source considers c terminated at now.
//
// A constituent without a termination date is terminated unless the source
// reports it active. A termination date at or before now terminates it. A
// date that does not parse is ignored.
func IsTerminated(c Constituent, now time.Time) bool {
	hasDate := c.TerminationDate != nil && strings.TrimSpace(*c.TerminationDate) != ""
	if !hasDate {
		return c.Active == nil || !*c.Active
	}

	at, ok := ParseTerminationDate(*c.TerminationDate)
	if !ok {
		return false
	}
	return !at.After(now)
}

// ApplyTermination evaluates IsTerminated and, when terminated, returns a copy
// of c with Active forced to false so the fingerprint reflects it.
func ApplyTermination(c Constituent, now time.Time) (Constituent, bool) {
	if !IsTerminated(c, now) {
		return c, false
	}
	inactive := false
	c.Active = &inactive
	return c, true
}
