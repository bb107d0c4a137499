package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oarkflow/squealx"

	"github.com/oarkflow/ability"
)

// SQLRuleSource reads permission rows from SQL (squealx). Rows are ordered by
// sort_order then insertion so the compiler sees a deterministic sequence.
type SQLRuleSource struct {
	db *squealx.DB
}

func NewSQLRuleSource(db *squealx.DB) *SQLRuleSource {
	return &SQLRuleSource{db: db}
}

func (s *SQLRuleSource) FetchRules(ctx context.Context, roleID int64) ([]ability.RuleInput, error) {
	q := `SELECT action, subject, role_id, conditions_json, inverted, sort_order FROM permission_rules WHERE role_id = :role_id ORDER BY sort_order, id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"role_id": roleID})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]ability.RuleInput, 0)
	for r.Next() {
		var action, subject, condJSON string
		var rid int64
		var inverted, sortOrder int
		if err := r.Scan(&action, &subject, &rid, &condJSON, &inverted, &sortOrder); err != nil {
			return nil, err
		}
		row := ability.RuleInput{Action: action, Subject: subject, RoleID: rid, Inverted: inverted == 1, SortOrder: sortOrder}
		if condJSON != "" && condJSON != "null" {
			var cond any
			if err := json.Unmarshal([]byte(condJSON), &cond); err != nil {
				return nil, err
			}
			row.Conditions = cond
		}
		out = append(out, row)
	}
	return out, nil
}

// SaveRule inserts a permission row. Callers must invalidate affected cache
// entries afterwards.
func (s *SQLRuleSource) SaveRule(ctx context.Context, row ability.RuleInput) error {
	condJSON := ""
	if row.Conditions != nil {
		data, err := json.Marshal(row.Conditions)
		if err != nil {
			return err
		}
		condJSON = string(data)
	}
	q := `INSERT INTO permission_rules(role_id, action, subject, conditions_json, inverted, sort_order, created_at) VALUES(:role_id, :action, :subject, :conditions_json, :inverted, :sort_order, :created_at)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"role_id":         row.RoleID,
		"action":          row.Action,
		"subject":         row.Subject,
		"conditions_json": condJSON,
		"inverted":        boolToInt(row.Inverted),
		"sort_order":      row.SortOrder,
		"created_at":      time.Now(),
	})
	return err
}

// DeleteRules removes every rule of a role.
func (s *SQLRuleSource) DeleteRules(ctx context.Context, roleID int64) error {
	q := `DELETE FROM permission_rules WHERE role_id = :role_id`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{"role_id": roleID})
	return err
}

// StoredRule is a persisted permission row with its bookkeeping columns.
type StoredRule struct {
	ability.RuleInput
	ID        int64
	CreatedAt time.Time
}

// ListRules returns the persisted rows of a role for admin surfaces.
func (s *SQLRuleSource) ListRules(ctx context.Context, roleID int64) ([]StoredRule, error) {
	q := `SELECT id, action, subject, role_id, conditions_json, inverted, sort_order, created_at FROM permission_rules WHERE role_id = :role_id ORDER BY sort_order, id`
	r, err := s.db.NamedQueryContext(ctx, q, map[string]any{"role_id": roleID})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out := make([]StoredRule, 0)
	for r.Next() {
		var row StoredRule
		var action, subject, condJSON string
		var rid int64
		var inverted, sortOrder int
		var createdRaw any
		if err := r.Scan(&row.ID, &action, &subject, &rid, &condJSON, &inverted, &sortOrder, &createdRaw); err != nil {
			return nil, err
		}
		row.Action = action
		row.Subject = subject
		row.RoleID = rid
		row.Inverted = inverted == 1
		row.SortOrder = sortOrder
		if condJSON != "" && condJSON != "null" {
			var cond any
			if err := json.Unmarshal([]byte(condJSON), &cond); err != nil {
				return nil, err
			}
			row.Conditions = cond
		}
		switch v := createdRaw.(type) {
		case time.Time:
			row.CreatedAt = v
		case string:
			if t, err := parseFlexibleTime(v); err == nil {
				row.CreatedAt = t
			}
		case []byte:
			if t, err := parseFlexibleTime(string(v)); err == nil {
				row.CreatedAt = t
			}
		}
		out = append(out, row)
	}
	return out, nil
}
