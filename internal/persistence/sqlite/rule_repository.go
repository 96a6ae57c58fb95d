package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence"
)

const dateLayout = "2006-01-02"

// RuleRepository implements persistence.RuleRepository using SQLite.
type RuleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRuleRepository creates a new SQLite rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// GetRule retrieves a rule row by ID, including its exclusion dates and rack
// restrictions.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.ScheduleRule, error) {
	if id == "" {
		return persistence.ScheduleRule{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, zone_id, day_of_week, start_min, end_min, capacity,
		       period_type, recurrence_kind, anchor_date, end_date, created_at, updated_at
		FROM schedule_rules
		WHERE id = ?
	`

	rule, err := scanRule(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ScheduleRule{}, persistence.ErrNotFound
		}
		return persistence.ScheduleRule{}, r.mapper.MapError(err)
	}

	if err := r.loadRuleChildren(ctx, &rule); err != nil {
		return persistence.ScheduleRule{}, err
	}

	return rule, nil
}

// ListRules lists rule rows for a zone. When the filter carries date bounds,
// rows whose applicable span cannot intersect the window are dropped: a row is
// kept when its anchor is on or before the window end and its end date, if
// set, is on or after the window start.
func (r *RuleRepository) ListRules(ctx context.Context, filter persistence.RuleFilter) ([]persistence.ScheduleRule, error) {
	query, args := buildRuleListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []persistence.ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range rules {
		if err := r.loadRuleChildren(ctx, &rules[i]); err != nil {
			return nil, err
		}
	}

	return rules, nil
}

// ApplyMutation applies a complete write set in one transaction. Deletes run
// before inserts so a replacement row can reuse a deleted row's slot, and
// truncations and exclusion additions never touch rows slated for deletion.
func (r *RuleRepository) ApplyMutation(ctx context.Context, mutation persistence.RuleMutation) error {
	if mutation.Empty() {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, truncation := range mutation.Truncations {
			result, err := r.helper.ExecTx(tx,
				`UPDATE schedule_rules SET end_date = ?, updated_at = ? WHERE id = ?`,
				truncation.EndDate.Format(dateLayout), now, truncation.RuleID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if affected, err := result.RowsAffected(); err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			} else if affected == 0 {
				return persistence.ErrNotFound
			}
		}

		for _, exclusion := range mutation.ExclusionAdds {
			if _, err := r.helper.ExecTx(tx,
				`INSERT OR IGNORE INTO rule_exclusions (rule_id, date) VALUES (?, ?)`,
				exclusion.RuleID, exclusion.Date.Format(dateLayout),
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		for _, id := range mutation.DeleteRuleIDs {
			if _, err := r.helper.ExecTx(tx, `DELETE FROM schedule_rules WHERE id = ?`, id); err != nil {
				return r.mapper.MapError(err)
			}
		}

		for _, rule := range mutation.InsertRules {
			if err := r.insertRuleTx(tx, rule, now); err != nil {
				return err
			}
		}

		for _, override := range mutation.OverrideUpserts {
			if _, err := r.helper.ExecTx(tx,
				`INSERT INTO capacity_overrides (zone_id, date, period_type, capacity, updated_at)
				 VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (zone_id, date, period_type)
				 DO UPDATE SET capacity = excluded.capacity, updated_at = excluded.updated_at`,
				override.ZoneID, override.Date.Format(dateLayout), override.Period, override.Capacity, now,
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		for _, key := range mutation.OverrideDeletes {
			if _, err := r.helper.ExecTx(tx,
				`DELETE FROM capacity_overrides WHERE zone_id = ? AND date = ? AND period_type = ?`,
				key.ZoneID, key.Date.Format(dateLayout), key.Period,
			); err != nil {
				return r.mapper.MapError(err)
			}
		}

		return nil
	})
}

func (r *RuleRepository) insertRuleTx(tx *sql.Tx, rule persistence.ScheduleRule, now string) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if rule.EndMin <= rule.StartMin {
		return persistence.ErrConstraintViolation
	}

	var endDate sql.NullString
	if rule.EndDate != nil {
		endDate.String = rule.EndDate.Format(dateLayout)
		endDate.Valid = true
	}

	if _, err := r.helper.ExecTx(tx, `
		INSERT INTO schedule_rules
			(id, zone_id, day_of_week, start_min, end_min, capacity,
			 period_type, recurrence_kind, anchor_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ID,
		rule.ZoneID,
		rule.Day,
		rule.StartMin,
		rule.EndMin,
		rule.Capacity,
		rule.Period,
		rule.Kind,
		rule.AnchorDate.Format(dateLayout),
		endDate,
		now,
		now,
	); err != nil {
		return r.mapper.MapError(err)
	}

	for _, date := range rule.Exclusions {
		if _, err := r.helper.ExecTx(tx,
			`INSERT OR IGNORE INTO rule_exclusions (rule_id, date) VALUES (?, ?)`,
			rule.ID, date.Format(dateLayout),
		); err != nil {
			return r.mapper.MapError(err)
		}
	}

	for _, rack := range rule.Racks {
		rack = strings.TrimSpace(rack)
		if rack == "" {
			continue
		}
		if _, err := r.helper.ExecTx(tx,
			`INSERT OR IGNORE INTO rule_racks (rule_id, rack) VALUES (?, ?)`,
			rule.ID, rack,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}

	return nil
}

func (r *RuleRepository) loadRuleChildren(ctx context.Context, rule *persistence.ScheduleRule) error {
	exclusions, err := r.loadDates(ctx,
		`SELECT date FROM rule_exclusions WHERE rule_id = ? ORDER BY date ASC`, rule.ID)
	if err != nil {
		return err
	}
	rule.Exclusions = exclusions

	racks, err := r.loadStrings(ctx,
		`SELECT rack FROM rule_racks WHERE rule_id = ? ORDER BY rack ASC`, rule.ID)
	if err != nil {
		return err
	}
	rule.Racks = racks

	return nil
}

func (r *RuleRepository) loadDates(ctx context.Context, query, id string) ([]time.Time, error) {
	rows, err := r.helper.Query(ctx, query, id)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, r.mapper.MapError(err)
		}
		date, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return dates, nil
}

func (r *RuleRepository) loadStrings(ctx context.Context, query, id string) ([]string, error) {
	rows, err := r.helper.Query(ctx, query, id)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, r.mapper.MapError(err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return values, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(scanner rowScanner) (persistence.ScheduleRule, error) {
	var rule persistence.ScheduleRule
	var anchorStr, createdAtStr, updatedAtStr string
	var endDate sql.NullString

	if err := scanner.Scan(
		&rule.ID,
		&rule.ZoneID,
		&rule.Day,
		&rule.StartMin,
		&rule.EndMin,
		&rule.Capacity,
		&rule.Period,
		&rule.Kind,
		&anchorStr,
		&endDate,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.ScheduleRule{}, err
	}

	var err error
	if rule.AnchorDate, err = time.Parse(dateLayout, anchorStr); err != nil {
		return persistence.ScheduleRule{}, fmt.Errorf("failed to parse anchor_date: %w", err)
	}
	if endDate.Valid {
		parsed, err := time.Parse(dateLayout, endDate.String)
		if err != nil {
			return persistence.ScheduleRule{}, fmt.Errorf("failed to parse end_date: %w", err)
		}
		rule.EndDate = &parsed
	}
	if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.ScheduleRule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.ScheduleRule{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return rule, nil
}

func buildRuleListQuery(filter persistence.RuleFilter) (string, []interface{}) {
	baseQuery := `
		SELECT id, zone_id, day_of_week, start_min, end_min, capacity,
		       period_type, recurrence_kind, anchor_date, end_date, created_at, updated_at
		FROM schedule_rules
	`

	var conditions []string
	var args []interface{}

	if filter.ZoneID != "" {
		conditions = append(conditions, "zone_id = ?")
		args = append(args, filter.ZoneID)
	}
	if filter.To != nil {
		conditions = append(conditions, "anchor_date <= ?")
		args = append(args, filter.To.Format(dateLayout))
	}
	if filter.From != nil {
		conditions = append(conditions, "(end_date IS NULL OR end_date >= ?)")
		args = append(args, filter.From.Format(dateLayout))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY day_of_week ASC, start_min ASC, id ASC"

	return baseQuery, args
}
