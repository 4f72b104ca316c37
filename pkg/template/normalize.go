package template

import (
	"regexp"
	"strconv"
	"time"
)

// Sample timestamps copied into config from real API captures would
// otherwise be served frozen in the past. The normalization pass rewrites
// anything in literal template text that looks like a timestamp to a
// recent value, keeping the original granularity.
var (
	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?`)
	dateOnlyRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	epochMillisRe  = regexp.MustCompile(`\b\d{13}\b`)
	epochSecondsRe = regexp.MustCompile(`\b\d{10}\b`)
)

// normalizeTimestamps rewrites timestamp-shaped substrings of literal text
// to recent values. Generated values never pass through here; only the
// literal portions of a template do, so a fresh {{current_timestamp}} is
// not re-rolled by this pass.
func (rc *ResolutionContext) normalizeTimestamps(s string) string {
	s = isoTimestampRe.ReplaceAllStringFunc(s, func(string) string {
		return rc.recentTime().Format(time.RFC3339)
	})
	s = dateOnlyRe.ReplaceAllStringFunc(s, func(m string) string {
		// ISO replacement above already consumed dates with a time part.
		if _, err := time.Parse(time.DateOnly, m); err != nil {
			return m
		}
		return rc.recentDate().Format(time.DateOnly)
	})
	s = epochMillisRe.ReplaceAllStringFunc(s, func(string) string {
		return strconv.FormatInt(rc.recentTime().UnixMilli(), 10)
	})
	s = epochSecondsRe.ReplaceAllStringFunc(s, func(string) string {
		return strconv.FormatInt(rc.recentTime().Unix(), 10)
	})
	return s
}
