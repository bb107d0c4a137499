package ability

import (
	"fmt"
	"strings"
)

// ============================================================================
// CONDITION MATCHER
// ============================================================================

// Condition is a structured predicate evaluated against a resource instance.
// Each top-level key names a field on the target; its value is either a scalar
// (strict equality), a nested Condition (matched against a nested map), or an
// operator object such as {"$gte": 18}. Multiple fields and multiple operator
// keys are AND-ed.
type Condition map[string]any

// Recognized comparison operators. Anything else starting with '$' is rejected
// at compile time by ParseCondition.
const (
	OpEq         = "$eq"
	OpNe         = "$ne"
	OpGt         = "$gt"
	OpGte        = "$gte"
	OpLt         = "$lt"
	OpLte        = "$lte"
	OpIn         = "$in"
	OpNin        = "$nin"
	OpContains   = "$contains"
	OpStartsWith = "$startsWith"
	OpEndsWith   = "$endsWith"
)

var knownOperators = map[string]bool{
	OpEq: true, OpNe: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true,
	OpContains: true, OpStartsWith: true, OpEndsWith: true,
}

// ParseCondition validates a raw JSON-like condition payload and returns it as
// a Condition. A nil payload yields a nil Condition (unconditional rule).
// Unknown operators and non-mapping payloads fail with InvalidRuleError rather
// than silently passing at match time.
func ParseCondition(raw any) (Condition, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case Condition:
		raw = map[string]any(v)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &InvalidRuleError{Index: -1, Field: "conditions", Reason: fmt.Sprintf("expected mapping, got %T", raw)}
	}
	if m == nil {
		return nil, nil
	}
	if err := validateConditionMap(m, ""); err != nil {
		return nil, err
	}
	return Condition(m), nil
}

func validateConditionMap(m map[string]any, path string) error {
	operatorObject := false
	for k := range m {
		if strings.HasPrefix(k, "$") {
			operatorObject = true
			break
		}
	}
	for k, v := range m {
		p := joinPath(path, k)
		if operatorObject {
			if !knownOperators[k] {
				return &InvalidRuleError{Index: -1, Field: p, Reason: "unrecognized operator"}
			}
			if k == OpIn || k == OpNin {
				if _, ok := asSlice(v); !ok {
					return &InvalidRuleError{Index: -1, Field: p, Reason: "operand must be a sequence"}
				}
			}
			continue
		}
		if sub, ok := asStringMap(v); ok {
			if err := validateConditionMap(sub, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// Matches evaluates the condition against a target instance. A nil or empty
// condition always matches. Missing fields, type mismatches and incomparable
// operands resolve to non-match rather than an error: resources legitimately
// vary in shape.
func (c Condition) Matches(target map[string]any) bool {
	if len(c) == 0 {
		return true
	}
	for field, want := range c {
		val, ok := target[field]
		if !ok {
			return false
		}
		if !matchValue(val, want) {
			return false
		}
	}
	return true
}

func matchValue(val, want any) bool {
	if m, ok := asStringMap(want); ok {
		if isOperatorObject(m) {
			for op, operand := range m {
				if !matchOperator(op, val, operand) {
					return false
				}
			}
			return true
		}
		sub, ok := asStringMap(val)
		if !ok {
			return false
		}
		return Condition(m).Matches(sub)
	}
	return equal(val, want)
}

func isOperatorObject(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func matchOperator(op string, val, operand any) bool {
	switch op {
	case OpEq:
		return equal(val, operand)
	case OpNe:
		return !equal(val, operand)
	case OpGt, OpGte, OpLt, OpLte:
		c, ok := compare(val, operand)
		if !ok {
			return false
		}
		switch op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case OpIn:
		return member(val, operand)
	case OpNin:
		return !member(val, operand)
	case OpContains:
		return contains(val, operand)
	case OpStartsWith:
		s, ok1 := val.(string)
		p, ok2 := operand.(string)
		return ok1 && ok2 && strings.HasPrefix(s, p)
	case OpEndsWith:
		s, ok1 := val.(string)
		p, ok2 := operand.(string)
		return ok1 && ok2 && strings.HasSuffix(s, p)
	}
	// unreachable for compiled rules; ParseCondition rejects unknown operators
	return false
}

// member reports whether val (or, for slice-valued fields, any of its
// elements) appears in the operand sequence.
func member(val, operand any) bool {
	set, ok := asSlice(operand)
	if !ok {
		return false
	}
	if elems, ok := asSlice(val); ok {
		for _, e := range elems {
			for _, s := range set {
				if equal(e, s) {
					return true
				}
			}
		}
		return false
	}
	for _, s := range set {
		if equal(val, s) {
			return true
		}
	}
	return false
}

// contains is a substring test for string fields and a membership test for
// slice-valued fields.
func contains(val, operand any) bool {
	switch v := val.(type) {
	case string:
		s, ok := operand.(string)
		return ok && strings.Contains(v, s)
	default:
		if elems, ok := asSlice(val); ok {
			for _, e := range elems {
				if equal(e, operand) {
					return true
				}
			}
		}
		return false
	}
}

// equal is the strict equality used by $eq, $ne, $in and $nin. Numeric values
// compare across int/float representations (JSON decoding yields float64) but
// never against strings or booleans.
func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// compare orders two values: negative, zero or positive, with ok=false when
// the operands are not mutually comparable (no implicit coercion).
func compare(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if as, ok := a.(string); ok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []int64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	}
	return nil, false
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Condition:
		return map[string]any(m), true
	}
	return nil, false
}
