package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

// Conflict details an overlapping rule definition that callers can present to
// users. It carries the rejected candidate's day and time range together with
// the category and recurrence label of the existing rule it collides with.
type Conflict struct {
	RuleID   string
	Day      time.Weekday
	StartMin int
	EndMin   int
	Period   recurrence.PeriodType
	Kind     recurrence.Kind
}

// String renders the conflict as a single human-readable line.
func (c Conflict) String() string {
	return fmt.Sprintf("%s %s-%s %s (%s)",
		c.Day,
		recurrence.FormatMinute(c.StartMin),
		recurrence.FormatMinute(c.EndMin),
		c.Period,
		c.Kind,
	)
}

// Report aggregates every conflict found for a candidate rule set. Callers
// receive the full list so all collisions can be corrected at once.
type Report struct {
	Conflicts []Conflict
}

// Empty reports whether no conflicts were detected.
func (r *Report) Empty() bool {
	return r == nil || len(r.Conflicts) == 0
}

// Summary joins the conflicts into a newline-separated description.
func (r *Report) Summary() string {
	if r.Empty() {
		return ""
	}
	lines := make([]string, 0, len(r.Conflicts))
	for _, conflict := range r.Conflicts {
		lines = append(lines, conflict.String())
	}
	return strings.Join(lines, "\n")
}

// DetectConflicts checks each candidate rule against every existing rule for
// the same weekday, skipping identities listed in ignore (rows already slated
// for replacement). Two rules conflict when their applicable date ranges can
// intersect and their half-open time ranges overlap.
//
// Returns nil when no conflicts exist.
func DetectConflicts(existing []recurrence.Rule, candidates []recurrence.Rule, ignore map[string]struct{}) *Report {
	var conflicts []Conflict

	for _, candidate := range candidates {
		for _, current := range existing {
			if _, skip := ignore[current.ID]; skip {
				continue
			}
			if current.Day != candidate.Day {
				continue
			}
			if !recurrence.SpansIntersect(current, candidate) {
				continue
			}
			if !recurrence.Overlaps(candidate.StartMin, candidate.EndMin, current.StartMin, current.EndMin) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				RuleID:   current.ID,
				Day:      candidate.Day,
				StartMin: candidate.StartMin,
				EndMin:   candidate.EndMin,
				Period:   current.Period,
				Kind:     current.Kind,
			})
		}
	}

	if len(conflicts) == 0 {
		return nil
	}
	return &Report{Conflicts: conflicts}
}
