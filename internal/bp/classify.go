// Package bp classifies blood pressure readings into clinical severity bands.
package bp

import (
	"fmt"
	"strings"
)

// Category is a clinical severity band. Higher values are more severe.
type Category int

const (
	Normal Category = iota
	Elevated
	Stage1
	Stage2
	Crisis
)

// All lists every category from least to most severe.
var All = []Category{Normal, Elevated, Stage1, Stage2, Crisis}

// Classify maps a systolic/diastolic pair to its category. Bands are checked
// from most to least severe and the first match wins. Classify is total:
// implausible input is classified numerically like any other value.
func Classify(systolic, diastolic int) Category {
	switch {
	case systolic > 180 || diastolic > 120:
		return Crisis
	case systolic >= 140 || diastolic >= 90:
		return Stage2
	case systolic >= 130 || diastolic >= 80:
		return Stage1
	case systolic >= 120 && diastolic < 80:
		return Elevated
	default:
		return Normal
	}
}

// Plausible reports whether the pair is physiologically possible for a cuff
// reading. Display code uses it to mark suspicious rows; it does not affect
// classification.
func Plausible(systolic, diastolic int) bool {
	return systolic > 0 && diastolic > 0 &&
		systolic <= 300 && diastolic <= 200 &&
		systolic > diastolic
}

// Label returns the display name.
func (c Category) Label() string {
	switch c {
	case Normal:
		return "Normal"
	case Elevated:
		return "Elevated"
	case Stage1:
		return "Stage 1"
	case Stage2:
		return "Stage 2"
	case Crisis:
		return "Crisis"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return c.Label()
}

// Color returns the hex display color.
func (c Category) Color() string {
	switch c {
	case Normal:
		return "#4caf50"
	case Elevated:
		return "#fdd835"
	case Stage1:
		return "#ff9800"
	case Stage2:
		return "#f44336"
	case Crisis:
		return "#b71c1c"
	}
	return "#9e9e9e"
}

// Key returns the compact identifier used in config and CLI flags.
func (c Category) Key() string {
	switch c {
	case Normal:
		return "normal"
	case Elevated:
		return "elevated"
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	case Crisis:
		return "crisis"
	}
	return ""
}

// QueryValue is the value the readings endpoint expects in bp_category.
func (c Category) QueryValue() string {
	return strings.ToLower(c.Label())
}

// Range returns the reference range shown in legends.
func (c Category) Range() string {
	switch c {
	case Normal:
		return "<120/80"
	case Elevated:
		return "120-129/<80"
	case Stage1:
		return "130-139/80-89"
	case Stage2:
		return "140+/90+"
	case Crisis:
		return ">180/>120"
	}
	return ""
}

// Parse accepts a key ("stage1"), label ("Stage 1") or query value ("stage 1").
func Parse(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, c := range All {
		if norm == c.Key() || norm == c.QueryValue() {
			return c, nil
		}
	}
	return Normal, fmt.Errorf("unknown BP category %q", s)
}
