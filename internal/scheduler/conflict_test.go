package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func rule(id string, day time.Weekday, startMin, endMin int, period recurrence.PeriodType, kind recurrence.Kind) recurrence.Rule {
	return recurrence.Rule{
		ID:         id,
		ZoneID:     "zone-1",
		Day:        day,
		StartMin:   startMin,
		EndMin:     endMin,
		Capacity:   10,
		Period:     period,
		Kind:       kind,
		AnchorDate: monday,
		Exclusions: recurrence.NewExclusionSet(),
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Parallel()

	t.Run("overlapping time ranges on the same day conflict", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("existing", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}
		candidates := []recurrence.Rule{
			rule("candidate", time.Monday, 8*60+30, 9*60+30, recurrence.PeriodPerformance, recurrence.KindWeekly),
		}

		report := DetectConflicts(existing, candidates, nil)
		if report.Empty() {
			t.Fatal("expected a conflict report")
		}
		if len(report.Conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d", len(report.Conflicts))
		}

		conflict := report.Conflicts[0]
		if conflict.RuleID != "existing" {
			t.Fatalf("expected conflict to name the existing rule, got %q", conflict.RuleID)
		}
		if conflict.Day != time.Monday {
			t.Fatalf("expected Monday, got %s", conflict.Day)
		}
		if conflict.Period != recurrence.PeriodGeneralUse {
			t.Fatalf("expected the existing category, got %s", conflict.Period)
		}
	})

	t.Run("touching ranges do not conflict", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("existing", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}
		candidates := []recurrence.Rule{
			rule("candidate", time.Monday, 9*60, 10*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}

		if report := DetectConflicts(existing, candidates, nil); report != nil {
			t.Fatalf("expected no conflicts, got %s", report.Summary())
		}
	})

	t.Run("different days never conflict", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("existing", time.Tuesday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}
		candidates := []recurrence.Rule{
			rule("candidate", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}

		if report := DetectConflicts(existing, candidates, nil); report != nil {
			t.Fatalf("expected no conflicts, got %s", report.Summary())
		}
	})

	t.Run("ignored identities are skipped", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("replaced", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}
		candidates := []recurrence.Rule{
			rule("candidate", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}
		ignore := map[string]struct{}{"replaced": {}}

		if report := DetectConflicts(existing, candidates, ignore); report != nil {
			t.Fatalf("expected no conflicts, got %s", report.Summary())
		}
	})

	t.Run("disjoint date spans do not conflict", func(t *testing.T) {
		t.Parallel()
		ended := rule("ended", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly)
		endDate := monday.AddDate(0, 0, 14)
		ended.EndDate = &endDate

		later := rule("later", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly)
		later.AnchorDate = monday.AddDate(0, 0, 21)

		if report := DetectConflicts([]recurrence.Rule{ended}, []recurrence.Rule{later}, nil); report != nil {
			t.Fatalf("expected no conflicts, got %s", report.Summary())
		}
	})

	t.Run("single date candidate only conflicts when the span covers its date", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("weekly", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
		}

		covered := rule("covered", time.Monday, 8*60, 9*60, recurrence.PeriodClosed, recurrence.KindSingleDate)
		covered.AnchorDate = monday.AddDate(0, 0, 7)
		if DetectConflicts(existing, []recurrence.Rule{covered}, nil) == nil {
			t.Fatal("expected a conflict on a covered date")
		}

		before := rule("before", time.Monday, 8*60, 9*60, recurrence.PeriodClosed, recurrence.KindSingleDate)
		before.AnchorDate = monday.AddDate(0, 0, -7)
		if report := DetectConflicts(existing, []recurrence.Rule{before}, nil); report != nil {
			t.Fatalf("expected no conflicts before the anchor, got %s", report.Summary())
		}
	})

	t.Run("every conflict is collected", func(t *testing.T) {
		t.Parallel()
		existing := []recurrence.Rule{
			rule("first", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
			rule("second", time.Monday, 9*60, 10*60, recurrence.PeriodPerformance, recurrence.KindWeekly),
			rule("untouched", time.Monday, 12*60, 13*60, recurrence.PeriodLowIntensity, recurrence.KindWeekly),
		}
		candidates := []recurrence.Rule{
			rule("candidate", time.Monday, 8*60+30, 9*60+30, recurrence.PeriodHighIntensity, recurrence.KindWeekly),
		}

		report := DetectConflicts(existing, candidates, nil)
		if report.Empty() {
			t.Fatal("expected conflicts")
		}
		if len(report.Conflicts) != 2 {
			t.Fatalf("expected 2 conflicts, got %d", len(report.Conflicts))
		}
	})
}

func TestReportSummary(t *testing.T) {
	t.Parallel()

	existing := []recurrence.Rule{
		rule("existing", time.Monday, 8*60, 9*60, recurrence.PeriodGeneralUse, recurrence.KindWeekly),
	}
	candidates := []recurrence.Rule{
		rule("candidate", time.Monday, 8*60+30, 9*60+30, recurrence.PeriodPerformance, recurrence.KindWeekly),
	}

	report := DetectConflicts(existing, candidates, nil)
	summary := report.Summary()

	for _, fragment := range []string{"Monday", "08:30-09:30", "general-use", "weekly-on-day"} {
		if !strings.Contains(summary, fragment) {
			t.Fatalf("expected summary to contain %q, got %q", fragment, summary)
		}
	}

	var empty *Report
	if !empty.Empty() {
		t.Fatal("expected nil report to be empty")
	}
	if empty.Summary() != "" {
		t.Fatal("expected nil report summary to be empty")
	}
}
