package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
)

// OverrideRepository reads denormalized capacity overrides written alongside
// single-date rules. Writes go through RuleRepository.ApplyMutation so they
// share the rule transaction.
type OverrideRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOverrideRepository creates a new SQLite override repository.
func NewOverrideRepository(pool *ConnectionPool) *OverrideRepository {
	return &OverrideRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// ListOverrides returns overrides for a zone within the inclusive date window,
// ordered by date then period type.
func (r *OverrideRepository) ListOverrides(ctx context.Context, zoneID string, from, to time.Time) ([]persistence.CapacityOverride, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT zone_id, date, period_type, capacity, updated_at
		FROM capacity_overrides
		WHERE zone_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, period_type ASC
	`, zoneID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overrides []persistence.CapacityOverride
	for rows.Next() {
		var override persistence.CapacityOverride
		var dateStr, updatedAtStr string

		if err := rows.Scan(&override.ZoneID, &dateStr, &override.Period, &override.Capacity, &updatedAtStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if override.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if override.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return overrides, nil
}
