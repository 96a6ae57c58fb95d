package recurrence

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date format used across the engine. Rules apply
// to civil dates; clock times are carried separately as minutes from midnight.
const DateLayout = "2006-01-02"

// MinutesPerDay bounds the minute-of-day values carried by rules.
const MinutesPerDay = 24 * 60

// PeriodType classifies how a zone may be used during a rule's time range.
type PeriodType string

const (
	PeriodHighIntensity PeriodType = "high-intensity"
	PeriodLowIntensity  PeriodType = "low-intensity"
	PeriodPerformance   PeriodType = "performance"
	PeriodGeneralUse    PeriodType = "general-use"
	// PeriodClosed marks the zone as shut; rules of this period carry capacity 0.
	PeriodClosed PeriodType = "closed"
)

// Valid reports whether the period type is one of the fixed enumeration.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodHighIntensity, PeriodLowIntensity, PeriodPerformance, PeriodGeneralUse, PeriodClosed:
		return true
	}
	return false
}

// Kind identifies how a rule recurs across calendar dates.
type Kind string

const (
	// KindSingleDate applies on exactly the anchor date.
	KindSingleDate Kind = "single-date"
	// KindWeekdays applies on the rule's weekday from the anchor onward,
	// restricted to Monday through Friday.
	KindWeekdays Kind = "weekdays"
	// KindWeekends applies on the rule's weekday from the anchor onward,
	// restricted to Saturday and Sunday.
	KindWeekends Kind = "weekends"
	// KindWeekly applies on the rule's weekday every week from the anchor.
	KindWeekly Kind = "weekly-on-day"
	// KindOpenEnded matches identically to KindWeekly. The two tags are kept
	// distinct because deletion semantics may diverge between them; see the
	// schedule service.
	KindOpenEnded Kind = "all-future-on-day"
)

// Valid reports whether the kind is one of the fixed enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindSingleDate, KindWeekdays, KindWeekends, KindWeekly, KindOpenEnded:
		return true
	}
	return false
}

// Recurring reports whether the kind applies to more than one date.
func (k Kind) Recurring() bool {
	return k.Valid() && k != KindSingleDate
}

// ExclusionSet tracks calendar dates on which a recurring rule is suppressed
// without being deleted.
type ExclusionSet struct {
	dates map[string]struct{}
}

// NewExclusionSet constructs a set containing the provided dates.
func NewExclusionSet(dates ...time.Time) ExclusionSet {
	set := ExclusionSet{}
	for _, date := range dates {
		set.Add(date)
	}
	return set
}

// Add records a date. The time-of-day component is ignored.
func (s *ExclusionSet) Add(date time.Time) {
	if s.dates == nil {
		s.dates = make(map[string]struct{})
	}
	s.dates[date.Format(DateLayout)] = struct{}{}
}

// Contains reports whether the date is excluded.
func (s ExclusionSet) Contains(date time.Time) bool {
	if s.dates == nil {
		return false
	}
	_, ok := s.dates[date.Format(DateLayout)]
	return ok
}

// Len returns the number of excluded dates.
func (s ExclusionSet) Len() int {
	return len(s.dates)
}

// Dates returns the excluded dates in ascending order.
func (s ExclusionSet) Dates() []time.Time {
	if len(s.dates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.dates))
	for key := range s.dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dates := make([]time.Time, 0, len(keys))
	for _, key := range keys {
		date, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		dates = append(dates, date)
	}
	return dates
}

// Clone returns an independent copy of the set.
func (s ExclusionSet) Clone() ExclusionSet {
	if len(s.dates) == 0 {
		return ExclusionSet{}
	}
	clone := ExclusionSet{dates: make(map[string]struct{}, len(s.dates))}
	for key := range s.dates {
		clone.dates[key] = struct{}{}
	}
	return clone
}

// Rule is a capacity-and-period definition for one zone, weekday and
// time-of-day range. Time bounds are minutes from midnight and form a
// half-open interval [StartMin, EndMin).
type Rule struct {
	ID       string
	ZoneID   string
	Day      time.Weekday
	StartMin int
	EndMin   int
	Capacity int
	Period   PeriodType
	Kind     Kind
	// AnchorDate is the civil date the rule starts applying from. For
	// KindSingleDate it is the only date the rule applies on.
	AnchorDate time.Time
	// EndDate, when set, is the last date the rule applies on (inclusive).
	// It is populated by "this and future" deletions truncating a series.
	EndDate *time.Time
	// Exclusions suppress individual dates without deleting the rule.
	Exclusions ExclusionSet
	// Racks restricts which zone-slots the rule grants access to. Empty
	// means the whole zone.
	Racks []string
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	clone := r
	clone.Exclusions = r.Exclusions.Clone()
	if r.EndDate != nil {
		end := *r.EndDate
		clone.EndDate = &end
	}
	clone.Racks = append([]string(nil), r.Racks...)
	return clone
}

// DateOnly normalizes a timestamp to its civil date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same civil date.
func SameDate(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}
