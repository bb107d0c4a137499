package ability

import "sort"

// ============================================================================
// RULE COMPILER
// ============================================================================

// Compile turns raw permission rows into an immutable Ability. It normalizes
// actions and subjects, validates condition payloads, and is pure: no I/O, no
// caching concerns. Input ordering is preserved; rows carrying an explicit
// SortOrder are stably ordered by it first (ties keep insertion order).
func Compile(rows []RuleInput) (*Ability, error) {
	ordered := make([]int, len(rows))
	for i := range rows {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rows[ordered[i]].SortOrder < rows[ordered[j]].SortOrder
	})

	rules := make([]Rule, 0, len(rows))
	for _, idx := range ordered {
		row := rows[idx]
		action := Normalize(row.Action)
		if action == "" {
			return nil, &InvalidRuleError{Index: idx, Field: "action", Reason: "empty after normalization"}
		}
		subject := Normalize(row.Subject)
		if subject == "" {
			return nil, &InvalidRuleError{Index: idx, Field: "subject", Reason: "empty after normalization"}
		}
		cond, err := ParseCondition(row.Conditions)
		if err != nil {
			if ire, ok := err.(*InvalidRuleError); ok {
				ire.Index = idx
			}
			return nil, err
		}
		rules = append(rules, Rule{
			Action:     action,
			Subject:    subject,
			RoleID:     row.RoleID,
			Conditions: cond,
			Inverted:   row.Inverted,
		})
	}
	return &Ability{rules: rules}, nil
}
