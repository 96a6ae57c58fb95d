package persistence

import (
	"context"
	"time"
)

// RuleFilter narrows rule queries to a zone and, optionally, to rules whose
// applicable span could intersect the [From, To] date window.
type RuleFilter struct {
	ZoneID string
	From   *time.Time
	To     *time.Time
}

// RuleTruncation sets the inclusive end date of an existing rule row,
// preserving its past occurrences.
type RuleTruncation struct {
	RuleID  string
	EndDate time.Time
}

// RuleExclusion suppresses a rule on a single date.
type RuleExclusion struct {
	RuleID string
	Date   time.Time
}

// OverrideKey identifies a denormalized capacity override record.
type OverrideKey struct {
	ZoneID string
	Date   time.Time
	Period string
}

// RuleMutation is the complete write set produced by one save or delete
// orchestration. Repositories apply it as a single transaction so a failure
// mid-sequence cannot leave the rule set half mutated.
type RuleMutation struct {
	InsertRules     []ScheduleRule
	DeleteRuleIDs   []string
	Truncations     []RuleTruncation
	ExclusionAdds   []RuleExclusion
	OverrideUpserts []CapacityOverride
	OverrideDeletes []OverrideKey
}

// Empty reports whether the mutation carries no writes.
func (m RuleMutation) Empty() bool {
	return len(m.InsertRules) == 0 &&
		len(m.DeleteRuleIDs) == 0 &&
		len(m.Truncations) == 0 &&
		len(m.ExclusionAdds) == 0 &&
		len(m.OverrideUpserts) == 0 &&
		len(m.OverrideDeletes) == 0
}

// RuleRepository stores schedule rule rows, their exclusion dates and rack
// restrictions.
type RuleRepository interface {
	GetRule(ctx context.Context, id string) (ScheduleRule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]ScheduleRule, error)
	ApplyMutation(ctx context.Context, mutation RuleMutation) error
}

// BookingFilter narrows booking-instance queries to a zone and an absolute
// time-range overlap.
type BookingFilter struct {
	ZoneID string
	From   time.Time
	To     time.Time
}

// BookingRepository mirrors booking instances owned by the booking subsystem.
type BookingRepository interface {
	UpsertBooking(ctx context.Context, instance BookingInstance) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]BookingInstance, error)
	DeleteBooking(ctx context.Context, id string) error
}

// OverrideRepository reads denormalized capacity overrides.
type OverrideRepository interface {
	ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]CapacityOverride, error)
}

// ZoneRepository exposes CRUD operations for the zone catalog.
type ZoneRepository interface {
	CreateZone(ctx context.Context, zone Zone) error
	UpdateZone(ctx context.Context, zone Zone) error
	GetZone(ctx context.Context, id string) (Zone, error)
	ListZones(ctx context.Context) ([]Zone, error)
	DeleteZone(ctx context.Context, id string) error
}
