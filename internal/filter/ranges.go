package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DateLayout is the wire format for date filters.
const DateLayout = "2006-01-02"

// NumericRange is an optional inclusive min/max pair.
type NumericRange struct {
	Min *int
	Max *int
}

// Between is a convenience constructor for a closed range.
func Between(lo, hi int) NumericRange {
	return NumericRange{Min: &lo, Max: &hi}
}

// IsZero reports whether neither bound is set.
func (r NumericRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Validate rejects an inverted range.
func (r NumericRange) Validate() error {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("minimum %d is greater than maximum %d", *r.Min, *r.Max)
	}
	return nil
}

// Contains reports whether v lies within the set bounds.
func (r NumericRange) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Apply writes the set bounds into q under minKey and maxKey.
func (r NumericRange) Apply(q url.Values, minKey, maxKey string) {
	if r.Min != nil {
		q.Set(minKey, strconv.Itoa(*r.Min))
	}
	if r.Max != nil {
		q.Set(maxKey, strconv.Itoa(*r.Max))
	}
}

// String renders the range for a filter button, e.g. "130-139" or "≥140".
func (r NumericRange) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%d-%d", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf("≥%d", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("≤%d", *r.Max)
	}
	return ""
}

// DateRange is an optional inclusive from/to pair of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Validate rejects an inverted range.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && dayOf(r.From).After(dayOf(r.To)) {
		return fmt.Errorf("start date %s is after end date %s", r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return nil
}

// Contains compares by calendar day in t's location.
func (r DateRange) Contains(t time.Time) bool {
	d := dayOf(t)
	if !r.From.IsZero() && d.Before(dayOf(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(dayOf(r.To)) {
		return false
	}
	return true
}

// Apply writes the set bounds into q as YYYY-MM-DD.
func (r DateRange) Apply(q url.Values, fromKey, toKey string) {
	if !r.From.IsZero() {
		q.Set(fromKey, r.From.Format(DateLayout))
	}
	if !r.To.IsZero() {
		q.Set(toKey, r.To.Format(DateLayout))
	}
}

// String renders the range for a filter button.
func (r DateRange) String() string {
	switch {
	case !r.From.IsZero() && !r.To.IsZero():
		return r.From.Format(DateLayout) + " – " + r.To.Format(DateLayout)
	case !r.From.IsZero():
		return "from " + r.From.Format(DateLayout)
	case !r.To.IsZero():
		return "until " + r.To.Format(DateLayout)
	}
	return ""
}

// ParseDateRange parses optional YYYY-MM-DD bounds; empty strings leave a bound open.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if from != "" {
		if r.From, err = time.ParseInLocation(DateLayout, from, time.Local); err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
	}
	if to != "" {
		if r.To, err = time.ParseInLocation(DateLayout, to, time.Local); err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
	}
	return r, r.Validate()
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Preset is a named date range computed from "now" at selection time.
type Preset int

const (
	PresetToday Preset = iota
	PresetLast7Days
	PresetLast30Days
	PresetLast90Days
	PresetThisYear
)

// AllPresets in menu order.
var AllPresets = []Preset{PresetToday, PresetLast7Days, PresetLast30Days, PresetLast90Days, PresetThisYear}

// Label is the menu text.
func (p Preset) Label() string {
	switch p {
	case PresetToday:
		return "Today"
	case PresetLast7Days:
		return "Last 7 Days"
	case PresetLast30Days:
		return "Last 30 Days"
	case PresetLast90Days:
		return "Last 90 Days"
	case PresetThisYear:
		return "This Year"
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

// Range returns concrete bounds as of now. The result does not move as time passes.
func (p Preset) Range(now time.Time) DateRange {
	today := dayOf(now)
	switch p {
	case PresetToday:
		return DateRange{From: today, To: today}
	case PresetLast7Days:
		return DateRange{From: today.AddDate(0, 0, -7), To: today}
	case PresetLast30Days:
		return DateRange{From: today.AddDate(0, 0, -30), To: today}
	case PresetLast90Days:
		return DateRange{From: today.AddDate(0, 0, -90), To: today}
	case PresetThisYear:
		return DateRange{From: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), To: today}
	}
	return DateRange{}
}
