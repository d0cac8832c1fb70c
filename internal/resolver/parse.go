package resolver

import (
	"strconv"
	"strings"
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

// kind classifies a raw preference string per spec §4.3's parsing rules.
type kind int

const (
	kindRID kind = iota
	kindTimestamp
	kindTag
)

// classify applies the three-step parsing rule in order: (1) a literal RID
// if the string has the `tsv:` prefix and is well-formed; (2) a timestamp
// if it looks like ISO-8601, a 10-digit Unix-seconds value, or a 13-digit
// Unix-milliseconds value; (3) otherwise treated as a tag label.
func classify(raw string) (kind, timescape.RID, int64, error) {
	if strings.HasPrefix(raw, "tsv:") {
		if !timescape.ValidRID(raw) {
			return kindRID, "", 0, timescape.ErrInvalidFormat
		}
		return kindRID, timescape.RID(raw), 0, nil
	}

	if seconds, ok := parseTimestamp(raw); ok {
		return kindTimestamp, "", seconds, nil
	}

	if looksLikeTimestampCandidate(raw) {
		return kindTag, "", 0, timescape.ErrInvalidTimestamp
	}

	return kindTag, "", 0, nil
}

// parseTimestamp recognizes ISO-8601 (RFC3339), 10-digit Unix seconds, and
// 13-digit Unix milliseconds, normalizing all three to Unix seconds.
func parseTimestamp(raw string) (int64, bool) {
	if isAllDigits(raw) {
		switch len(raw) {
		case 10:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		case 13:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, false
			}
			return n / 1000, true
		}
		return 0, false
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Unix(), true
	}

	return 0, false
}

// looksLikeTimestampCandidate catches strings that were clearly *intended*
// as a timestamp (contain "T" in the date-time shape, or are all-digit but
// of the wrong length) so they surface ErrInvalidTimestamp instead of
// silently falling through to a tag lookup that will just 404.
func looksLikeTimestampCandidate(raw string) bool {
	if isAllDigits(raw) && len(raw) != 0 {
		return true
	}
	return strings.Contains(raw, "T") && strings.Count(raw, "-") >= 2
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
