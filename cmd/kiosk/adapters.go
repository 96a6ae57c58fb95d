package main

import (
	"context"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence/sqlite"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/recurrence"
)

// The adapters below translate between the application layer's domain types
// and the persistence layer's row types so neither package imports the other
// directly.

type ruleStoreAdapter struct {
	repo *sqlite.RuleRepository
}

func newRuleStoreAdapter(repo *sqlite.RuleRepository) *ruleStoreAdapter {
	return &ruleStoreAdapter{repo: repo}
}

func (a *ruleStoreAdapter) ListRules(ctx context.Context, filter application.RuleStoreFilter) ([]recurrence.Rule, error) {
	rows, err := a.repo.ListRules(ctx, persistence.RuleFilter{
		ZoneID: filter.ZoneID,
		From:   filter.From,
		To:     filter.To,
	})
	if err != nil {
		return nil, err
	}

	rules := make([]recurrence.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, toDomainRule(row))
	}
	return rules, nil
}

func (a *ruleStoreAdapter) ApplyMutation(ctx context.Context, mutation application.RuleMutation) error {
	converted := persistence.RuleMutation{
		DeleteRuleIDs: append([]string(nil), mutation.DeleteRuleIDs...),
	}

	for _, rule := range mutation.InsertRules {
		converted.InsertRules = append(converted.InsertRules, toRuleRow(rule))
	}
	for _, truncation := range mutation.Truncations {
		converted.Truncations = append(converted.Truncations, persistence.RuleTruncation{
			RuleID:  truncation.RuleID,
			EndDate: truncation.EndDate,
		})
	}
	for _, exclusion := range mutation.ExclusionAdds {
		converted.ExclusionAdds = append(converted.ExclusionAdds, persistence.RuleExclusion{
			RuleID: exclusion.RuleID,
			Date:   exclusion.Date,
		})
	}
	for _, override := range mutation.OverrideUpserts {
		converted.OverrideUpserts = append(converted.OverrideUpserts, persistence.CapacityOverride{
			ZoneID:   override.ZoneID,
			Date:     override.Date,
			Period:   string(override.Period),
			Capacity: override.Capacity,
		})
	}
	for _, key := range mutation.OverrideDeletes {
		converted.OverrideDeletes = append(converted.OverrideDeletes, persistence.OverrideKey{
			ZoneID: key.ZoneID,
			Date:   key.Date,
			Period: string(key.Period),
		})
	}

	return a.repo.ApplyMutation(ctx, converted)
}

func toDomainRule(row persistence.ScheduleRule) recurrence.Rule {
	rule := recurrence.Rule{
		ID:         row.ID,
		ZoneID:     row.ZoneID,
		Day:        time.Weekday(row.Day),
		StartMin:   row.StartMin,
		EndMin:     row.EndMin,
		Capacity:   row.Capacity,
		Period:     recurrence.PeriodType(row.Period),
		Kind:       recurrence.Kind(row.Kind),
		AnchorDate: row.AnchorDate,
		Exclusions: recurrence.NewExclusionSet(row.Exclusions...),
		Racks:      append([]string(nil), row.Racks...),
	}
	if row.EndDate != nil {
		endDate := *row.EndDate
		rule.EndDate = &endDate
	}
	return rule
}

func toRuleRow(rule recurrence.Rule) persistence.ScheduleRule {
	row := persistence.ScheduleRule{
		ID:         rule.ID,
		ZoneID:     rule.ZoneID,
		Day:        int(rule.Day),
		StartMin:   rule.StartMin,
		EndMin:     rule.EndMin,
		Capacity:   rule.Capacity,
		Period:     string(rule.Period),
		Kind:       string(rule.Kind),
		AnchorDate: rule.AnchorDate,
		Exclusions: rule.Exclusions.Dates(),
		Racks:      append([]string(nil), rule.Racks...),
	}
	if rule.EndDate != nil {
		endDate := *rule.EndDate
		row.EndDate = &endDate
	}
	return row
}

type zoneRepositoryAdapter struct {
	repo *sqlite.ZoneRepository
}

func newZoneRepositoryAdapter(repo *sqlite.ZoneRepository) *zoneRepositoryAdapter {
	return &zoneRepositoryAdapter{repo: repo}
}

func (a *zoneRepositoryAdapter) CreateZone(ctx context.Context, zone application.Zone) error {
	return a.repo.CreateZone(ctx, toZoneRow(zone))
}

func (a *zoneRepositoryAdapter) UpdateZone(ctx context.Context, zone application.Zone) error {
	return a.repo.UpdateZone(ctx, toZoneRow(zone))
}

func (a *zoneRepositoryAdapter) GetZone(ctx context.Context, id string) (application.Zone, error) {
	row, err := a.repo.GetZone(ctx, id)
	if err != nil {
		return application.Zone{}, err
	}
	return toDomainZone(row), nil
}

func (a *zoneRepositoryAdapter) ListZones(ctx context.Context) ([]application.Zone, error) {
	rows, err := a.repo.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	zones := make([]application.Zone, 0, len(rows))
	for _, row := range rows {
		zones = append(zones, toDomainZone(row))
	}
	return zones, nil
}

func (a *zoneRepositoryAdapter) DeleteZone(ctx context.Context, id string) error {
	return a.repo.DeleteZone(ctx, id)
}

func toZoneRow(zone application.Zone) persistence.Zone {
	return persistence.Zone{
		ID:        zone.ID,
		Name:      zone.Name,
		Racks:     append([]string(nil), zone.Racks...),
		CreatedAt: zone.CreatedAt,
		UpdatedAt: zone.UpdatedAt,
	}
}

func toDomainZone(row persistence.Zone) application.Zone {
	return application.Zone{
		ID:        row.ID,
		Name:      row.Name,
		Racks:     append([]string(nil), row.Racks...),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type bookingStoreAdapter struct {
	repo *sqlite.BookingRepository
}

func newBookingStoreAdapter(repo *sqlite.BookingRepository) *bookingStoreAdapter {
	return &bookingStoreAdapter{repo: repo}
}

func (a *bookingStoreAdapter) UpsertBooking(ctx context.Context, booking application.Booking) error {
	return a.repo.UpsertBooking(ctx, persistence.BookingInstance{
		ID:        booking.ID,
		BookingID: booking.BookingID,
		ZoneID:    booking.ZoneID,
		Start:     booking.Start,
		End:       booking.End,
		Racks:     append([]string(nil), booking.Racks...),
		Title:     booking.Title,
		Color:     booking.Color,
		Locked:    booking.Locked,
	})
}

func (a *bookingStoreAdapter) ListBookings(ctx context.Context, zoneID string, from, to time.Time) ([]application.Booking, error) {
	rows, err := a.repo.ListBookings(ctx, persistence.BookingFilter{ZoneID: zoneID, From: from, To: to})
	if err != nil {
		return nil, err
	}

	bookings := make([]application.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, application.Booking{
			ID:        row.ID,
			BookingID: row.BookingID,
			ZoneID:    row.ZoneID,
			Start:     row.Start,
			End:       row.End,
			Racks:     append([]string(nil), row.Racks...),
			Title:     row.Title,
			Color:     row.Color,
			Locked:    row.Locked,
		})
	}
	return bookings, nil
}

func (a *bookingStoreAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

type overrideStoreAdapter struct {
	repo *sqlite.OverrideRepository
}

func newOverrideStoreAdapter(repo *sqlite.OverrideRepository) *overrideStoreAdapter {
	return &overrideStoreAdapter{repo: repo}
}

func (a *overrideStoreAdapter) ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]application.CapacityOverride, error) {
	rows, err := a.repo.ListOverrides(ctx, zoneID, from, to)
	if err != nil {
		return nil, err
	}

	overrides := make([]application.CapacityOverride, 0, len(rows))
	for _, row := range rows {
		overrides = append(overrides, application.CapacityOverride{
			ZoneID:   row.ZoneID,
			Date:     row.Date,
			Period:   recurrence.PeriodType(row.Period),
			Capacity: row.Capacity,
		})
	}
	return overrides, nil
}
