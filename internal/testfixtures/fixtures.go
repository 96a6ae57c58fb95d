package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

var (
	zoneCounter    uint64
	ruleCounter    uint64
	bookingCounter uint64
)

// referenceTime is a Monday so weekday arithmetic in tests stays readable.
var referenceTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the canonical baseline date (a Monday) at UTC midnight.
func ReferenceDate() time.Time {
	return recurrence.DateOnly(referenceTime)
}

// ----------------------------- Zone fixtures -----------------------------

// ZoneFixture represents a deterministic zone record.
type ZoneFixture struct {
	ID    string
	Name  string
	Racks []string
}

// ZoneOption configures the generated zone fixture.
type ZoneOption func(*ZoneFixture)

// NewZoneFixture returns a deterministic zone fixture with optional overrides.
func NewZoneFixture(opts ...ZoneOption) ZoneFixture {
	idx := atomic.AddUint64(&zoneCounter, 1)
	fixture := ZoneFixture{
		ID:    fmt.Sprintf("zone-%03d", idx),
		Name:  fmt.Sprintf("Zone %03d", idx),
		Racks: []string{"rack-1", "rack-2", "rack-3"},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithZoneID overrides the generated zone ID.
func WithZoneID(id string) ZoneOption {
	return func(f *ZoneFixture) {
		f.ID = id
	}
}

// WithZoneRacks overrides the generated rack list.
func WithZoneRacks(racks ...string) ZoneOption {
	return func(f *ZoneFixture) {
		f.Racks = racks
	}
}

// Application returns the fixture as an application.Zone value.
func (f ZoneFixture) Application() application.Zone {
	return application.Zone{
		ID:        f.ID,
		Name:      f.Name,
		Racks:     append([]string(nil), f.Racks...),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// Persistence returns the fixture as a persistence.Zone value.
func (f ZoneFixture) Persistence() persistence.Zone {
	return persistence.Zone{
		ID:        f.ID,
		Name:      f.Name,
		Racks:     append([]string(nil), f.Racks...),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// ----------------------------- Rule fixtures -----------------------------

// RuleOption configures the generated rule fixture.
type RuleOption func(*recurrence.Rule)

// NewRuleFixture returns a deterministic weekly rule anchored on the
// reference Monday, 09:00 to 10:00, general use, capacity 10.
func NewRuleFixture(opts ...RuleOption) recurrence.Rule {
	idx := atomic.AddUint64(&ruleCounter, 1)
	rule := recurrence.Rule{
		ID:         fmt.Sprintf("rule-%03d", idx),
		ZoneID:     "zone-001",
		Day:        time.Monday,
		StartMin:   9 * 60,
		EndMin:     10 * 60,
		Capacity:   10,
		Period:     recurrence.PeriodGeneralUse,
		Kind:       recurrence.KindWeekly,
		AnchorDate: ReferenceDate(),
		Exclusions: recurrence.NewExclusionSet(),
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// WithRuleZone overrides the owning zone.
func WithRuleZone(zoneID string) RuleOption {
	return func(r *recurrence.Rule) {
		r.ZoneID = zoneID
	}
}

// WithRuleDay overrides the day of week.
func WithRuleDay(day time.Weekday) RuleOption {
	return func(r *recurrence.Rule) {
		r.Day = day
	}
}

// WithRuleTimes overrides the time range, in minutes from midnight.
func WithRuleTimes(startMin, endMin int) RuleOption {
	return func(r *recurrence.Rule) {
		r.StartMin = startMin
		r.EndMin = endMin
	}
}

// WithRuleKind overrides the recurrence kind.
func WithRuleKind(kind recurrence.Kind) RuleOption {
	return func(r *recurrence.Rule) {
		r.Kind = kind
	}
}

// WithRulePeriod overrides the period type and capacity together.
func WithRulePeriod(period recurrence.PeriodType, capacity int) RuleOption {
	return func(r *recurrence.Rule) {
		r.Period = period
		r.Capacity = capacity
	}
}

// WithRuleAnchor overrides the anchor date.
func WithRuleAnchor(anchor time.Time) RuleOption {
	return func(r *recurrence.Rule) {
		r.AnchorDate = recurrence.DateOnly(anchor)
	}
}

// WithRuleEndDate sets an inclusive end date.
func WithRuleEndDate(end time.Time) RuleOption {
	return func(r *recurrence.Rule) {
		endDate := recurrence.DateOnly(end)
		r.EndDate = &endDate
	}
}

// WithRuleExclusions adds exclusion dates.
func WithRuleExclusions(dates ...time.Time) RuleOption {
	return func(r *recurrence.Rule) {
		r.Exclusions = recurrence.NewExclusionSet(dates...)
	}
}

// WithRuleRacks restricts the rule to a rack subset.
func WithRuleRacks(racks ...string) RuleOption {
	return func(r *recurrence.Rule) {
		r.Racks = racks
	}
}

// ----------------------------- Booking fixtures -----------------------------

// BookingOption configures the generated booking fixture.
type BookingOption func(*application.Booking)

// NewBookingFixture returns a deterministic one hour booking on the reference
// Monday from 09:00, occupying rack-1.
func NewBookingFixture(opts ...BookingOption) application.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := ReferenceDate().Add(9 * time.Hour)
	booking := application.Booking{
		ID:        fmt.Sprintf("instance-%03d", idx),
		BookingID: fmt.Sprintf("booking-%03d", idx),
		ZoneID:    "zone-001",
		Start:     start,
		End:       start.Add(time.Hour),
		Racks:     []string{"rack-1"},
		Title:     fmt.Sprintf("Booking %03d", idx),
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

// WithBookingZone overrides the owning zone.
func WithBookingZone(zoneID string) BookingOption {
	return func(b *application.Booking) {
		b.ZoneID = zoneID
	}
}

// WithBookingWindow overrides the absolute start and end timestamps.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(b *application.Booking) {
		b.Start = start
		b.End = end
	}
}

// WithBookingRacks overrides the occupied rack set.
func WithBookingRacks(racks ...string) BookingOption {
	return func(b *application.Booking) {
		b.Racks = racks
	}
}
