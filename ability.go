package ability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// DOMAIN OBJECTS
// ============================================================================

// Wildcard sentinels. ActionAll matches every action and SubjectAll every
// subject. Both are already in the form Normalize produces, so a rule authored
// as "all" compiles to the sentinel. Names like "Manage" stay ordinary
// actions: a rule on Manage grants exactly the Manage verb, nothing else.
const (
	ActionAll  = "All"
	SubjectAll = "All"
)

// RuleInput is a raw permission row as supplied by a RuleSource (SQL row,
// config entry, admin API payload). Conditions holds an arbitrary JSON-like
// value; it is parsed and validated at compile time.
type RuleInput struct {
	Action     string `json:"action" yaml:"action"`
	Subject    string `json:"subject" yaml:"subject"`
	RoleID     int64  `json:"role_id" yaml:"role_id"`
	Conditions any    `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Inverted   bool   `json:"inverted,omitempty" yaml:"inverted,omitempty"`
	SortOrder  int    `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// Rule is one compiled capability: a grant, or an explicit deny when Inverted
// is set. Action and Subject are normalized; Conditions is nil for
// unconditional rules.
type Rule struct {
	Action     string    `json:"action"`
	Subject    string    `json:"subject"`
	RoleID     int64     `json:"role_id"`
	Conditions Condition `json:"conditions,omitempty"`
	Inverted   bool      `json:"inverted,omitempty"`
}

// Ability is the compiled rule set for one (user, role) pair. It is immutable
// once built: the cache hands the same instance to concurrent decision calls.
type Ability struct {
	rules []Rule
}

// Rules returns a copy of the compiled rules in evaluation order.
func (a *Ability) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

// Len returns the number of compiled rules.
func (a *Ability) Len() int { return len(a.rules) }

// Normalize canonicalizes an action or subject name: trim, lowercase, then
// capitalize the first letter. Idempotent, so values already in canonical form
// pass through unchanged.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
