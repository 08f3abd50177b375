// Package retention decides which backup objects survive the tiered retention policy.
//
// The policy keeps:
//   - every backup from the last 10 days,
//   - every Sunday backup from the last 8 weeks,
//   - the first Sunday backup of each month from the last 104 weeks.
//
// Everything else is deleted. Keys without an embedded date are always kept.
package retention

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Window sizes of the three retention tiers, in calendar days.
const (
	RecentDays   = 10
	BiweeklyDays = 8 * 7
	MonthlyDays  = 104 * 7
)

const dateLayout = "2006-01-02"

// ErrMalformedTimestamp is returned when a key carries a date-shaped token
// that is not a valid calendar date.
var ErrMalformedTimestamp = errors.New("malformed backup timestamp")

// Greedy prefix so the last occurrence in the key wins.
var datePattern = regexp.MustCompile(`^.*[_.](\d{4}-\d{2}-\d{2})\.(?:sql\.dump|tar)`)

// Decision is the outcome of classifying one key.
type Decision int

const (
	// Keep means at least one retention rule holds.
	Keep Decision = iota
	// Delete means no retention rule holds.
	Delete
	// KeepUnparseable means the key has no timestamp and is kept as a safety default.
	KeepUnparseable
)

// String returns the lowercase name used in logs and metrics labels.
func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case Delete:
		return "delete"
	case KeepUnparseable:
		return "keep_unparseable"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Kept reports whether the object must survive the sweep.
func (d Decision) Kept() bool {
	return d != Delete
}

// ExtractDate returns the date token embedded in key, if any.
func ExtractDate(key string) (string, bool) {
	m := datePattern.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseKeyDate extracts and parses the backup date of key in loc.
// ok is false when the key has no timestamp at all.
func ParseKeyDate(key string, loc *time.Location) (ts time.Time, ok bool, err error) {
	raw, ok := ExtractDate(key)
	if !ok {
		return time.Time{}, false, nil
	}
	ts, err = time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("%w: %q in key %q", ErrMalformedTimestamp, raw, key)
	}
	return ts, true, nil
}

// Classify decides whether the object named key is kept at instant now.
func Classify(key string, now time.Time) (Decision, error) {
	ts, ok, err := ParseKeyDate(key, now.Location())
	if err != nil {
		return Keep, err
	}
	if !ok {
		return KeepUnparseable, nil
	}
	if Retained(ts, now) {
		return Keep, nil
	}
	return Delete, nil
}

// Retained applies the three retention tiers to a backup taken at ts.
// Cutoffs are calendar days back from now's wall clock, so a DST change
// inside a window does not shift them by an hour.
func Retained(ts, now time.Time) bool {
	recentCutoff := now.AddDate(0, 0, -RecentDays)
	biweeklyCutoff := now.AddDate(0, 0, -BiweeklyDays)
	monthlyCutoff := now.AddDate(0, 0, -MonthlyDays)
	sunday := ts.Weekday() == time.Sunday

	// Every month's first Sunday falls on day 1-7.
	return ts.After(recentCutoff) ||
		ts.After(biweeklyCutoff) && sunday ||
		ts.After(monthlyCutoff) && sunday && ts.Day() < 8
}
