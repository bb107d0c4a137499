package ability

// RuleBuilder provides a fluent API for authoring permission rows.

type RuleBuilder struct {
	row  RuleInput
	cond map[string]any
}

func NewRuleBuilder() *RuleBuilder {
	return &RuleBuilder{cond: make(map[string]any)}
}

func (b *RuleBuilder) Action(a string) *RuleBuilder { b.row.Action = a; return b }

func (b *RuleBuilder) Subject(s string) *RuleBuilder { b.row.Subject = s; return b }

func (b *RuleBuilder) Role(id int64) *RuleBuilder { b.row.RoleID = id; return b }

func (b *RuleBuilder) Inverted() *RuleBuilder { b.row.Inverted = true; return b }

func (b *RuleBuilder) SortOrder(n int) *RuleBuilder { b.row.SortOrder = n; return b }

// WhereEq adds a field-equality condition.
func (b *RuleBuilder) WhereEq(field string, v any) *RuleBuilder {
	b.cond[field] = v
	return b
}

// Where adds an operator condition on a field, merging with any operators
// already declared for it.
func (b *RuleBuilder) Where(field, op string, v any) *RuleBuilder {
	if existing, ok := b.cond[field].(map[string]any); ok {
		existing[op] = v
		return b
	}
	b.cond[field] = map[string]any{op: v}
	return b
}

func (b *RuleBuilder) Build() RuleInput {
	row := b.row
	if len(b.cond) > 0 {
		row.Conditions = b.cond
	}
	return row
}
