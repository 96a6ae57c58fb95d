package recurrence

import (
	"fmt"
	"time"
)

// Applies reports whether the rule is in effect for the given weekday, civil
// date and minute of the day.
//
// The matcher enforces the following semantics:
//   - The minute must fall inside the rule's half-open range [StartMin, EndMin).
//   - Dates listed in the rule's exclusion set never match.
//   - An end date, where present, bounds recurring kinds inclusively. End
//     dates only appear on rules that were truncated by a "this and future"
//     deletion.
//   - KindWeekly and KindOpenEnded match identically; they differ only in how
//     the schedule service treats future truncation.
func Applies(rule Rule, day time.Weekday, date time.Time, minute int) bool {
	if rule.Day != day {
		return false
	}
	if minute < rule.StartMin || minute >= rule.EndMin {
		return false
	}
	if rule.Exclusions.Contains(date) {
		return false
	}

	switch rule.Kind {
	case KindSingleDate:
		return SameDate(rule.AnchorDate, date)
	case KindWeekdays:
		if day < time.Monday || day > time.Friday {
			return false
		}
		return appliesFromAnchor(rule, date)
	case KindWeekends:
		if day != time.Saturday && day != time.Sunday {
			return false
		}
		return appliesFromAnchor(rule, date)
	case KindWeekly, KindOpenEnded:
		return appliesFromAnchor(rule, date)
	}

	return false
}

// AppliesOnDate reports whether the rule's applicable date range covers the
// given date, independent of time of day. Used when a one-off override needs
// to suppress an underlying recurring rule on a specific date.
func AppliesOnDate(rule Rule, date time.Time) bool {
	if rule.Day != date.Weekday() {
		return false
	}
	if rule.Exclusions.Contains(date) {
		return false
	}

	switch rule.Kind {
	case KindSingleDate:
		return SameDate(rule.AnchorDate, date)
	case KindWeekdays:
		if date.Weekday() < time.Monday || date.Weekday() > time.Friday {
			return false
		}
		return appliesFromAnchor(rule, date)
	case KindWeekends:
		if date.Weekday() != time.Saturday && date.Weekday() != time.Sunday {
			return false
		}
		return appliesFromAnchor(rule, date)
	case KindWeekly, KindOpenEnded:
		return appliesFromAnchor(rule, date)
	}

	return false
}

func appliesFromAnchor(rule Rule, date time.Time) bool {
	anchor := DateOnly(rule.AnchorDate)
	day := DateOnly(date)
	if day.Before(anchor) {
		return false
	}
	if rule.EndDate != nil && day.After(DateOnly(*rule.EndDate)) {
		return false
	}
	return true
}

// Overlaps reports whether two half-open minute ranges intersect. A range
// ending exactly where another starts does not overlap.
func Overlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && end1 > start2
}

// SpansIntersect reports whether two same-weekday rules can both apply on at
// least one shared date. Time-of-day ranges are not considered here.
func SpansIntersect(a, b Rule) bool {
	if a.Day != b.Day {
		return false
	}

	switch {
	case a.Kind == KindSingleDate && b.Kind == KindSingleDate:
		return SameDate(a.AnchorDate, b.AnchorDate)
	case a.Kind == KindSingleDate:
		return AppliesOnDate(b, DateOnly(a.AnchorDate))
	case b.Kind == KindSingleDate:
		return AppliesOnDate(a, DateOnly(b.AnchorDate))
	}

	// Both recurring on the same weekday: their [anchor, end] spans intersect
	// unless one ends before the other begins.
	if a.EndDate != nil && DateOnly(*a.EndDate).Before(DateOnly(b.AnchorDate)) {
		return false
	}
	if b.EndDate != nil && DateOnly(*b.EndDate).Before(DateOnly(a.AnchorDate)) {
		return false
	}
	return true
}

// FormatMinute renders a minute-of-day as HH:MM for conflict reports and
// display blocks.
func FormatMinute(minute int) string {
	if minute < 0 {
		minute = 0
	}
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
