package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/scheduler"
)

// RuleStoreFilter narrows queries issued to the rule store. Date bounds are
// inclusive and prune rows whose applicable span cannot reach the window.
type RuleStoreFilter struct {
	ZoneID string
	From   *time.Time
	To     *time.Time
}

// RuleTruncation caps a rule row's applicable span at an inclusive end date.
type RuleTruncation struct {
	RuleID  string
	EndDate time.Time
}

// RuleExclusion suppresses a rule row on one calendar date.
type RuleExclusion struct {
	RuleID string
	Date   time.Time
}

// OverrideKey identifies a denormalized capacity override record.
type OverrideKey struct {
	ZoneID string
	Date   time.Time
	Period recurrence.PeriodType
}

// RuleMutation is the complete write set of one save or delete operation.
// The store applies it atomically; a conflict-free validation pass always
// precedes it.
type RuleMutation struct {
	InsertRules     []recurrence.Rule
	DeleteRuleIDs   []string
	Truncations     []RuleTruncation
	ExclusionAdds   []RuleExclusion
	OverrideUpserts []CapacityOverride
	OverrideDeletes []OverrideKey
}

// Empty reports whether the mutation carries no work.
func (m RuleMutation) Empty() bool {
	return len(m.InsertRules) == 0 &&
		len(m.DeleteRuleIDs) == 0 &&
		len(m.Truncations) == 0 &&
		len(m.ExclusionAdds) == 0 &&
		len(m.OverrideUpserts) == 0 &&
		len(m.OverrideDeletes) == 0
}

// RuleStore captures the persistence interactions needed by the schedule
// services.
type RuleStore interface {
	ListRules(ctx context.Context, filter RuleStoreFilter) ([]recurrence.Rule, error)
	ApplyMutation(ctx context.Context, mutation RuleMutation) error
}

// ZoneCatalog exposes zone lookup operations.
type ZoneCatalog interface {
	GetZone(ctx context.Context, id string) (Zone, error)
}

// SlotInvalidator is notified after every successful rule mutation so cached
// evaluations for the zone can be dropped.
type SlotInvalidator interface {
	Invalidate(zoneID string)
}

// ScheduleService orchestrates saving and deleting schedule rules. A save
// expands the proposal into concrete rows, validates them against the
// existing rule set, and commits the resulting write set in one unit.
type ScheduleService struct {
	rules       RuleStore
	zones       ZoneCatalog
	invalidator SlotInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule rule operations.
func NewScheduleService(rules RuleStore, zones ZoneCatalog, invalidator SlotInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		rules:       rules,
		zones:       zones,
		invalidator: invalidator,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// SaveRule validates and persists one proposed rule definition. On overlap it
// returns a ConflictError whose report enumerates every conflicting row. On
// success it returns the inserted rows.
func (s *ScheduleService) SaveRule(ctx context.Context, params SaveRuleParams) ([]recurrence.Rule, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "schedule", "save_rule", "zone_id", params.ZoneID)

	zone, vErr, err := s.validateSave(ctx, params)
	if err != nil {
		return nil, err
	}
	if vErr.HasErrors() {
		logger.Warn("save rejected by validation", "fields", len(vErr.FieldErrors))
		return nil, vErr
	}

	refDate := recurrence.DateOnly(params.ReferenceDate)
	candidates := s.expandProposal(zone.ID, params.Proposal, refDate)

	existing, err := s.rules.ListRules(ctx, RuleStoreFilter{ZoneID: zone.ID})
	if err != nil {
		return nil, mapRepoError(err)
	}

	mutation := RuleMutation{InsertRules: candidates}
	deleteSet := make(map[string]struct{})
	for _, id := range params.ReplacingIDs {
		if id == "" {
			continue
		}
		if _, ok := deleteSet[id]; ok {
			continue
		}
		deleteSet[id] = struct{}{}
		mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, id)
	}

	ignore := buildIgnoreSet(existing, candidates, params.ReplacingIDs)

	// A one-off row coexists with an underlying recurring row by suppressing
	// the recurring row on just the anchor date. The suppressed rows are
	// exempt from overlap validation for the same reason replaced rows are.
	if params.Proposal.Kind == recurrence.KindSingleDate {
		day := refDate.Weekday()
		for _, rule := range existing {
			if _, slated := deleteSet[rule.ID]; slated {
				continue
			}
			if !rule.Kind.Recurring() || rule.Day != day {
				continue
			}
			if !recurrence.Overlaps(params.Proposal.StartMin, params.Proposal.EndMin, rule.StartMin, rule.EndMin) {
				continue
			}
			if !recurrence.AppliesOnDate(rule, refDate) {
				continue
			}
			mutation.ExclusionAdds = append(mutation.ExclusionAdds, RuleExclusion{RuleID: rule.ID, Date: refDate})
			ignore[rule.ID] = struct{}{}
		}

		mutation.OverrideUpserts = append(mutation.OverrideUpserts, CapacityOverride{
			ZoneID:   zone.ID,
			Date:     refDate,
			Period:   params.Proposal.Period,
			Capacity: params.Proposal.Capacity,
		})
	}

	if report := scheduler.DetectConflicts(existing, candidates, ignore); report != nil {
		logger.Warn("save rejected by overlap validation", "conflicts", len(report.Conflicts))
		return nil, &ConflictError{Report: report}
	}

	// Rows occupying the exact position of a new row are superseded by it.
	for _, rule := range existing {
		if _, slated := deleteSet[rule.ID]; slated {
			continue
		}
		for _, candidate := range candidates {
			if rule.Day == candidate.Day && rule.StartMin == candidate.StartMin && rule.Kind == candidate.Kind {
				deleteSet[rule.ID] = struct{}{}
				mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, rule.ID)
				break
			}
		}
	}

	if err := s.rules.ApplyMutation(ctx, mutation); err != nil {
		return nil, mapRepoError(err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(zone.ID)
	}

	logger.Info("rule saved",
		"kind", string(params.Proposal.Kind),
		"period", string(params.Proposal.Period),
		"rows", len(candidates),
		"replaced", len(mutation.DeleteRuleIDs),
	)

	return candidates, nil
}

// DeleteRule removes rule rows addressed by signature. Mode single removes a
// single occurrence, future truncates or removes everything from the target
// date onward, all removes whole matching series.
func (s *ScheduleService) DeleteRule(ctx context.Context, params DeleteRuleParams) error {
	if s == nil {
		return fmt.Errorf("ScheduleService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "schedule", "delete_rule",
		"zone_id", params.ZoneID, "mode", string(params.Mode))

	if vErr := validateDelete(params); vErr.HasErrors() {
		logger.Warn("delete rejected by validation", "fields", len(vErr.FieldErrors))
		return vErr
	}

	zone, err := s.zones.GetZone(ctx, params.ZoneID)
	if err != nil {
		if isNotFoundError(err) {
			return ErrNotFound
		}
		return mapRepoError(err)
	}

	existing, err := s.rules.ListRules(ctx, RuleStoreFilter{ZoneID: zone.ID})
	if err != nil {
		return mapRepoError(err)
	}

	target := recurrence.DateOnly(params.TargetDate)

	var mutation RuleMutation
	switch params.Mode {
	case DeleteModeSingle:
		mutation, err = planSingleDelete(zone.ID, existing, params.Signature, target)
	case DeleteModeFuture:
		mutation, err = planFutureDelete(zone.ID, existing, params.Signature, target)
	case DeleteModeAll:
		mutation, err = planAllDelete(zone.ID, existing, params.Signature)
	default:
		vErr := &ValidationError{}
		vErr.add("mode", "unknown delete mode")
		return vErr
	}
	if err != nil {
		return err
	}

	if err := s.rules.ApplyMutation(ctx, mutation); err != nil {
		return mapRepoError(err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(zone.ID)
	}

	logger.Info("rules deleted",
		"kind", string(params.Signature.Kind),
		"removed", len(mutation.DeleteRuleIDs),
		"truncated", len(mutation.Truncations),
		"excluded", len(mutation.ExclusionAdds),
	)

	return nil
}

func (s *ScheduleService) validateSave(ctx context.Context, params SaveRuleParams) (Zone, *ValidationError, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(params.ZoneID) == "" {
		vErr.add("zone_id", "zone id is required")
		return Zone{}, vErr, nil
	}

	zone, err := s.zones.GetZone(ctx, params.ZoneID)
	if err != nil {
		if isNotFoundError(err) {
			return Zone{}, nil, ErrNotFound
		}
		return Zone{}, nil, mapRepoError(err)
	}

	proposal := params.Proposal
	validateTimeRange(proposal.StartMin, proposal.EndMin, vErr)
	if !proposal.Period.Valid() {
		vErr.add("period", "unknown period type")
	}
	if !proposal.Kind.Valid() {
		vErr.add("kind", "unknown recurrence kind")
	}
	if proposal.Capacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}
	if proposal.Period == recurrence.PeriodClosed && proposal.Capacity != 0 {
		vErr.add("capacity", "closed periods must have zero capacity")
	}
	if proposal.Day < time.Sunday || proposal.Day > time.Saturday {
		vErr.add("day", "day of week must be between 0 and 6")
	}
	if params.ReferenceDate.IsZero() {
		vErr.add("reference_date", "reference date is required")
	}

	if proposal.Kind == recurrence.KindWeekdays && (proposal.Day < time.Monday || proposal.Day > time.Friday) {
		vErr.add("day", "weekday rules must name a day between Monday and Friday")
	}

	known := make(map[string]struct{}, len(zone.Racks))
	for _, rack := range zone.Racks {
		known[rack] = struct{}{}
	}
	for _, rack := range proposal.Racks {
		if _, ok := known[rack]; !ok {
			vErr.add("racks", fmt.Sprintf("rack %q does not belong to the zone", rack))
			break
		}
	}

	return zone, vErr, nil
}

func validateDelete(params DeleteRuleParams) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(params.ZoneID) == "" {
		vErr.add("zone_id", "zone id is required")
	}
	if !params.Mode.Valid() {
		vErr.add("mode", "unknown delete mode")
	}
	if params.Mode != DeleteModeAll && params.TargetDate.IsZero() {
		vErr.add("target_date", "target date is required")
	}
	validateTimeRange(params.Signature.StartMin, params.Signature.EndMin, vErr)
	if !params.Signature.Period.Valid() {
		vErr.add("period", "unknown period type")
	}
	if !params.Signature.Kind.Valid() {
		vErr.add("kind", "unknown recurrence kind")
	}

	return vErr
}

func validateTimeRange(startMin, endMin int, vErr *ValidationError) {
	if startMin < 0 || startMin >= recurrence.MinutesPerDay {
		vErr.add("start", "start must be within the day")
	}
	if endMin <= 0 || endMin > recurrence.MinutesPerDay {
		vErr.add("end", "end must be within the day")
	}
	if endMin <= startMin {
		vErr.add("time", "start must be before end")
	}
}

// expandProposal turns one authored definition into concrete rule rows.
// Weekend rules materialize as one row per weekend day; every other kind
// yields a single row. Single-date rows anchor on the reference date and
// take its weekday.
func (s *ScheduleService) expandProposal(zoneID string, proposal RuleProposal, refDate time.Time) []recurrence.Rule {
	days := []time.Weekday{proposal.Day}
	switch proposal.Kind {
	case recurrence.KindWeekends:
		days = []time.Weekday{time.Saturday, time.Sunday}
	case recurrence.KindSingleDate:
		days = []time.Weekday{refDate.Weekday()}
	}

	rules := make([]recurrence.Rule, 0, len(days))
	for _, day := range days {
		racks := make([]string, len(proposal.Racks))
		copy(racks, proposal.Racks)

		rules = append(rules, recurrence.Rule{
			ID:         s.idGenerator(),
			ZoneID:     zoneID,
			Day:        day,
			StartMin:   proposal.StartMin,
			EndMin:     proposal.EndMin,
			Capacity:   proposal.Capacity,
			Period:     proposal.Period,
			Kind:       proposal.Kind,
			AnchorDate: refDate,
			Exclusions: recurrence.NewExclusionSet(),
			Racks:      racks,
		})
	}
	return rules
}

// buildIgnoreSet collects the rule identities exempt from overlap validation:
// rows explicitly being replaced, plus rows occupying the same
// day/time/period/kind position as either a replaced row or a new row. A rule
// must never conflict with the occurrence it supersedes.
func buildIgnoreSet(existing, candidates []recurrence.Rule, replacingIDs []string) map[string]struct{} {
	ignore := make(map[string]struct{}, len(replacingIDs))
	for _, id := range replacingIDs {
		if id != "" {
			ignore[id] = struct{}{}
		}
	}

	type position struct {
		day      time.Weekday
		startMin int
		endMin   int
		period   recurrence.PeriodType
		kind     recurrence.Kind
	}
	positions := make(map[position]struct{})
	record := func(rule recurrence.Rule) {
		positions[position{rule.Day, rule.StartMin, rule.EndMin, rule.Period, rule.Kind}] = struct{}{}
	}
	for _, candidate := range candidates {
		record(candidate)
	}
	for _, rule := range existing {
		if _, replaced := ignore[rule.ID]; replaced {
			record(rule)
		}
	}

	for _, rule := range existing {
		if _, ok := positions[position{rule.Day, rule.StartMin, rule.EndMin, rule.Period, rule.Kind}]; ok {
			ignore[rule.ID] = struct{}{}
		}
	}
	return ignore
}

func matchesSignature(rule recurrence.Rule, sig RuleSignature) bool {
	return rule.StartMin == sig.StartMin &&
		rule.EndMin == sig.EndMin &&
		rule.Period == sig.Period &&
		rule.Kind == sig.Kind
}

// planSingleDelete removes one occurrence on the target date. A single-date
// row disappears outright along with its override record; a recurring row
// survives and gains an exclusion for the date. Only rows that actually apply
// on the target date are touched: a one-off anchored to a different date with
// the same signature is a separate occurrence and must survive.
func planSingleDelete(zoneID string, existing []recurrence.Rule, sig RuleSignature, target time.Time) (RuleMutation, error) {
	day := target.Weekday()

	var mutation RuleMutation
	matched := false
	for _, rule := range existing {
		if rule.Day != day || !matchesSignature(rule, sig) {
			continue
		}
		if rule.Kind == recurrence.KindSingleDate {
			if !recurrence.SameDate(rule.AnchorDate, target) {
				continue
			}
			matched = true
			mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, rule.ID)
			mutation.OverrideDeletes = append(mutation.OverrideDeletes, OverrideKey{
				ZoneID: zoneID,
				Date:   rule.AnchorDate,
				Period: rule.Period,
			})
			continue
		}
		if !recurrence.AppliesOnDate(rule, target) {
			continue
		}
		matched = true
		mutation.ExclusionAdds = append(mutation.ExclusionAdds, RuleExclusion{RuleID: rule.ID, Date: target})
	}

	if !matched {
		return RuleMutation{}, ErrNoMatchingSchedule
	}
	return mutation, nil
}

// planFutureDelete removes the target date and everything after it from every
// matching row. Rows whose span starts on or after the target disappear; rows
// that started earlier are truncated to end the day before, preserving past
// occurrences. Which days a row on a given weekday is affected by depends on
// its kind: weekday rows respond to any weekday target, weekend rows carry
// Saturday onto Sunday but not the reverse, and day-anchored rows respond
// only to their own day.
func planFutureDelete(zoneID string, existing []recurrence.Rule, sig RuleSignature, target time.Time) (RuleMutation, error) {
	targetDay := target.Weekday()

	var mutation RuleMutation
	matched := false
	affected := false
	for _, rule := range existing {
		if !matchesSignature(rule, sig) {
			continue
		}
		matched = true

		if rule.Kind == recurrence.KindSingleDate {
			if !recurrence.SameDate(rule.AnchorDate, target) {
				continue
			}
			affected = true
			mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, rule.ID)
			mutation.OverrideDeletes = append(mutation.OverrideDeletes, OverrideKey{
				ZoneID: zoneID,
				Date:   rule.AnchorDate,
				Period: rule.Period,
			})
			continue
		}

		if !futureDeleteCoversDay(rule.Kind, rule.Day, targetDay) {
			continue
		}
		if rule.EndDate != nil && rule.EndDate.Before(target) {
			// Already ended before the target; nothing future remains.
			continue
		}

		affected = true
		if !rule.AnchorDate.Before(target) {
			mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, rule.ID)
			continue
		}
		mutation.Truncations = append(mutation.Truncations, RuleTruncation{
			RuleID:  rule.ID,
			EndDate: target.AddDate(0, 0, -1),
		})
	}

	if !matched || !affected {
		return RuleMutation{}, ErrNoMatchingSchedule
	}
	return mutation, nil
}

// futureDeleteCoversDay reports whether a future delete targeting targetDay
// reaches a row stored on ruleDay. Deleting from a Saturday removes the
// Sunday half of a weekend pair as well; deleting from a Sunday leaves
// Saturday untouched.
func futureDeleteCoversDay(kind recurrence.Kind, ruleDay, targetDay time.Weekday) bool {
	switch kind {
	case recurrence.KindWeekdays:
		return ruleDay >= time.Monday && ruleDay <= time.Friday &&
			targetDay >= time.Monday && targetDay <= time.Friday
	case recurrence.KindWeekends:
		if targetDay == time.Saturday {
			return ruleDay == time.Saturday || ruleDay == time.Sunday
		}
		return targetDay == time.Sunday && ruleDay == time.Sunday
	case recurrence.KindWeekly, recurrence.KindOpenEnded:
		return ruleDay == targetDay
	}
	return false
}

// planAllDelete removes every row matching the signature regardless of date.
func planAllDelete(zoneID string, existing []recurrence.Rule, sig RuleSignature) (RuleMutation, error) {
	var mutation RuleMutation
	for _, rule := range existing {
		if !matchesSignature(rule, sig) {
			continue
		}
		mutation.DeleteRuleIDs = append(mutation.DeleteRuleIDs, rule.ID)
		if rule.Kind == recurrence.KindSingleDate {
			mutation.OverrideDeletes = append(mutation.OverrideDeletes, OverrideKey{
				ZoneID: zoneID,
				Date:   rule.AnchorDate,
				Period: rule.Period,
			})
		}
	}

	if len(mutation.DeleteRuleIDs) == 0 {
		return RuleMutation{}, ErrNoMatchingSchedule
	}
	sort.Strings(mutation.DeleteRuleIDs)
	return mutation, nil
}
