package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

// OverrideStore exposes the denormalized capacity override records written
// alongside single-date rules.
type OverrideStore interface {
	ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]CapacityOverride, error)
}

// SlotGrid fixes the evaluation granularity shared by every capacity
// computation: the slot width and the daily open window, all in minutes from
// midnight.
type SlotGrid struct {
	SlotMinutes int
	OpenMin     int
	CloseMin    int
}

// Normalize fills unusable grid values with defaults.
func (g SlotGrid) Normalize() SlotGrid {
	if g.SlotMinutes <= 0 {
		g.SlotMinutes = 30
	}
	if g.OpenMin < 0 || g.OpenMin >= recurrence.MinutesPerDay {
		g.OpenMin = 0
	}
	if g.CloseMin <= g.OpenMin || g.CloseMin > recurrence.MinutesPerDay {
		g.CloseMin = recurrence.MinutesPerDay
	}
	return g
}

// CapacityService evaluates rules into per-slot capacity maps and merges
// them into renderable blocks. Week evaluations are cached briefly; the
// schedule service invalidates the cache on every mutation.
type CapacityService struct {
	rules     RuleStore
	overrides OverrideStore
	zones     ZoneCatalog
	grid      SlotGrid
	cache     *weekCache
	now       func() time.Time
	logger    *slog.Logger
}

// NewCapacityService wires dependencies for capacity evaluation.
func NewCapacityService(rules RuleStore, overrides OverrideStore, zones ZoneCatalog, grid SlotGrid, cacheTTL time.Duration, now func() time.Time, logger *slog.Logger) *CapacityService {
	if now == nil {
		now = time.Now
	}
	return &CapacityService{
		rules:     rules,
		overrides: overrides,
		zones:     zones,
		grid:      grid.Normalize(),
		cache:     newWeekCache(cacheTTL, 0, now),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// Invalidate drops cached evaluations for a zone. The schedule service calls
// this after every successful mutation.
func (s *CapacityService) Invalidate(zoneID string) {
	if s == nil {
		return
	}
	s.cache.Invalidate(zoneID)
}

// EvaluateWeek builds the (day, slot) capacity map for the seven days
// starting at weekStart. Each slot takes the first rule that applies at its
// instant; overlap validation at write time is what keeps that choice
// unambiguous.
func (s *CapacityService) EvaluateWeek(ctx context.Context, zoneID string, weekStart time.Time) (WeekSlots, error) {
	if s == nil {
		return WeekSlots{}, fmt.Errorf("CapacityService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "capacity", "evaluate_week", "zone_id", zoneID)

	weekStart = recurrence.DateOnly(weekStart)
	if weekStart.IsZero() {
		vErr := &ValidationError{}
		vErr.add("week_start", "week start date is required")
		return WeekSlots{}, vErr
	}

	key := buildWeekCacheKey(zoneID, weekStart, s.grid.SlotMinutes, s.grid.OpenMin, s.grid.CloseMin)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	zone, err := s.zones.GetZone(ctx, zoneID)
	if err != nil {
		if isNotFoundError(err) {
			return WeekSlots{}, ErrNotFound
		}
		return WeekSlots{}, mapRepoError(err)
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	rules, err := s.rules.ListRules(ctx, RuleStoreFilter{ZoneID: zone.ID, From: &weekStart, To: &weekEnd})
	if err != nil {
		return WeekSlots{}, mapRepoError(err)
	}

	slots := WeekSlots{
		ZoneID:      zone.ID,
		WeekStart:   weekStart,
		SlotMinutes: s.grid.SlotMinutes,
		OpenMin:     s.grid.OpenMin,
		CloseMin:    s.grid.CloseMin,
		Assignments: make(map[SlotKey]SlotAssignment),
	}

	for offset := 0; offset < 7; offset++ {
		date := weekStart.AddDate(0, 0, offset)
		day := date.Weekday()
		for minute := s.grid.OpenMin; minute < s.grid.CloseMin; minute += s.grid.SlotMinutes {
			for _, rule := range rules {
				if !recurrence.Applies(rule, day, date, minute) {
					continue
				}
				slots.Assignments[SlotKey{Day: day, Minute: minute}] = SlotAssignment{
					RuleID:       rule.ID,
					Capacity:     rule.Capacity,
					Period:       rule.Period,
					Racks:        rule.Racks,
					RuleStartMin: rule.StartMin,
					RuleEndMin:   rule.EndMin,
				}
				break
			}
		}
	}

	s.cache.Store(key, zone.ID, slots)

	logger.Debug("week evaluated",
		"week_start", weekStart.Format(recurrence.DateLayout),
		"rules", len(rules),
		"assigned_slots", len(slots.Assignments),
	)

	return slots, nil
}

// ComputeDayBlocks run-length-encodes one day of the slot map into
// contiguous blocks. A block opens on the first slot whose (period,
// capacity) differs from the open block and closes when the pair changes or
// the slot is empty.
func (s *CapacityService) ComputeDayBlocks(slots WeekSlots, day time.Weekday) []Block {
	if s == nil {
		return nil
	}
	return mergeBlocks(slots, day)
}

// ListOverrides returns the per-date capacity override records for a zone
// within the inclusive date window.
func (s *CapacityService) ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]CapacityOverride, error) {
	if s == nil {
		return nil, fmt.Errorf("CapacityService is nil")
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		vErr := &ValidationError{}
		vErr.add("range", "a valid date range is required")
		return nil, vErr
	}

	if _, err := s.zones.GetZone(ctx, zoneID); err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, mapRepoError(err)
	}

	overrides, err := s.overrides.ListOverrides(ctx, zoneID, recurrence.DateOnly(from), recurrence.DateOnly(to))
	if err != nil {
		return nil, mapRepoError(err)
	}
	return overrides, nil
}

func mergeBlocks(slots WeekSlots, day time.Weekday) []Block {
	grid := SlotGrid{SlotMinutes: slots.SlotMinutes, OpenMin: slots.OpenMin, CloseMin: slots.CloseMin}.Normalize()

	var blocks []Block
	var open *Block

	slotIndex := 0
	for minute := grid.OpenMin; minute < grid.CloseMin; minute, slotIndex = minute+grid.SlotMinutes, slotIndex+1 {
		assignment, ok := slots.Assignments[SlotKey{Day: day, Minute: minute}]
		if !ok {
			if open != nil {
				blocks = append(blocks, *open)
				open = nil
			}
			continue
		}

		if open != nil && open.Period == assignment.Period && open.Capacity == assignment.Capacity {
			open.EndSlot = slotIndex
			open.EndMin = minute + grid.SlotMinutes
			continue
		}

		if open != nil {
			blocks = append(blocks, *open)
		}
		open = &Block{
			StartSlot: slotIndex,
			EndSlot:   slotIndex,
			StartMin:  minute,
			EndMin:    minute + grid.SlotMinutes,
			Period:    assignment.Period,
			Capacity:  assignment.Capacity,
		}
	}

	if open != nil {
		blocks = append(blocks, *open)
	}
	return blocks
}
