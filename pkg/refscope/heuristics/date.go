package heuristics

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-openapi/strfmt"
)

var (
	unsafeDateChars = regexp.MustCompile(`[^A-Za-z0-9.:+\s\-/]`)

	errNotDate = errors.New("not a date")
)

// layouts tried after the strfmt date-time formats.
var dateLayouts = []string{
	time.DateTime,
	time.DateOnly,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2 2006",
	"January 2 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// ParseDate reads s as a date-time. It accepts the strfmt date-time forms
// and a handful of common layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if dt, err := strfmt.ParseDateTime(s); err == nil && !time.Time(dt).IsZero() {
		return time.Time(dt), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNotDate, s)
}

// DescribeDate renders t relative to now followed by its zone, e.g.
// "+3 days from now UTC" or "-2 hours ago (UTC+2)".
func DescribeDate(t, now time.Time) string {
	rel := humanize.RelTime(t, now, "ago", "from now")
	switch {
	case rel == "now":
	case t.After(now):
		rel = "+" + rel
	default:
		rel = "-" + rel
	}

	name, offset := t.Zone()
	hours := int(math.Round(float64(offset) / 3600))
	if hours == 0 {
		return rel + " UTC"
	}
	zone := fmt.Sprintf("(UTC%+d)", hours)
	if name != "" && name != "UTC" {
		zone = name + " " + zone
	}
	return rel + " " + zone
}

func (a *Analyzer) checkDate(s string, length int) (Match, bool) {
	if length >= 128 || unsafeDateChars.MatchString(s) {
		return Match{}, false
	}
	t, err := ParseDate(s)
	if err != nil {
		return Match{}, false
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return Match{Kind: KindDate, Text: DescribeDate(t, now())}, true
}
