package ability

import (
	"errors"
	"testing"
)

func mustCondition(t *testing.T, raw any) Condition {
	t.Helper()
	c, err := ParseCondition(raw)
	if err != nil {
		t.Fatalf("ParseCondition(%v): %v", raw, err)
	}
	return c
}

func TestConditionOperators(t *testing.T) {
	cases := []struct {
		name   string
		cond   map[string]any
		target map[string]any
		want   bool
	}{
		{"gte match", map[string]any{"age": map[string]any{"$gte": 18}}, map[string]any{"age": 18}, true},
		{"gte miss", map[string]any{"age": map[string]any{"$gte": 18}}, map[string]any{"age": 17}, false},
		{"gt", map[string]any{"age": map[string]any{"$gt": 18}}, map[string]any{"age": 18}, false},
		{"lt", map[string]any{"age": map[string]any{"$lt": 18}}, map[string]any{"age": 17}, true},
		{"lte", map[string]any{"age": map[string]any{"$lte": 18}}, map[string]any{"age": 18}, true},
		{"eq scalar shorthand", map[string]any{"status": "active"}, map[string]any{"status": "active"}, true},
		{"eq operator", map[string]any{"status": map[string]any{"$eq": "active"}}, map[string]any{"status": "archived"}, false},
		{"ne", map[string]any{"status": map[string]any{"$ne": "archived"}}, map[string]any{"status": "active"}, true},
		{"in match", map[string]any{"tags": map[string]any{"$in": []any{"a", "b"}}}, map[string]any{"tags": "b"}, true},
		{"in miss", map[string]any{"tags": map[string]any{"$in": []any{"a", "b"}}}, map[string]any{"tags": "c"}, false},
		{"in slice-valued field", map[string]any{"tags": map[string]any{"$in": []any{"a", "b"}}}, map[string]any{"tags": []any{"x", "b"}}, true},
		{"nin", map[string]any{"tags": map[string]any{"$nin": []any{"a", "b"}}}, map[string]any{"tags": "c"}, true},
		{"contains substring", map[string]any{"title": map[string]any{"$contains": "ook"}}, map[string]any{"title": "Book"}, true},
		{"contains slice membership", map[string]any{"labels": map[string]any{"$contains": "hot"}}, map[string]any{"labels": []any{"new", "hot"}}, true},
		{"startsWith match", map[string]any{"name": map[string]any{"$startsWith": "Jo"}}, map[string]any{"name": "John"}, true},
		{"startsWith non-string field", map[string]any{"name": map[string]any{"$startsWith": "Jo"}}, map[string]any{"name": 42}, false},
		{"endsWith", map[string]any{"name": map[string]any{"$endsWith": "hn"}}, map[string]any{"name": "John"}, true},
		{"missing field never matches", map[string]any{"age": map[string]any{"$gte": 18}}, map[string]any{"name": "John"}, false},
		{"incomparable operands", map[string]any{"age": map[string]any{"$gte": 18}}, map[string]any{"age": "eighteen"}, false},
		{"multiple ops AND", map[string]any{"age": map[string]any{"$gte": 18, "$lt": 65}}, map[string]any{"age": 70}, false},
		{"multiple fields AND", map[string]any{"age": map[string]any{"$gte": 18}, "status": "active"}, map[string]any{"age": 30, "status": "active"}, true},
		{"numeric cross-type", map[string]any{"count": map[string]any{"$eq": 3}}, map[string]any{"count": float64(3)}, true},
		{"string never equals number", map[string]any{"count": "3"}, map[string]any{"count": 3}, false},
		{"nil field value", map[string]any{"owner": nil}, map[string]any{"owner": nil}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := mustCondition(t, tc.cond)
			if got := c.Matches(tc.target); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConditionNested(t *testing.T) {
	c := mustCondition(t, map[string]any{
		"owner": map[string]any{
			"id":   map[string]any{"$eq": 7},
			"name": map[string]any{"$startsWith": "A"},
		},
	})
	target := map[string]any{"owner": map[string]any{"id": 7, "name": "Alice"}}
	if !c.Matches(target) {
		t.Fatalf("expected nested condition to match")
	}
	if c.Matches(map[string]any{"owner": "not a map"}) {
		t.Fatalf("expected non-map field to fail a nested condition")
	}
}

func TestConditionEmptyAndNil(t *testing.T) {
	c, err := ParseCondition(nil)
	if err != nil {
		t.Fatalf("nil payload: %v", err)
	}
	if c != nil {
		t.Fatalf("nil payload should yield nil condition, got %v", c)
	}
	if !c.Matches(map[string]any{"anything": 1}) {
		t.Fatalf("nil condition must match everything")
	}
	if !(Condition{}).Matches(nil) {
		t.Fatalf("empty condition must match even a nil target")
	}
}

func TestParseConditionRejectsUnknownOperator(t *testing.T) {
	_, err := ParseCondition(map[string]any{"x": map[string]any{"$foo": 1}})
	var ire *InvalidRuleError
	if !errors.As(err, &ire) {
		t.Fatalf("expected InvalidRuleError, got %v", err)
	}
	if ire.Field != "x.$foo" {
		t.Fatalf("unexpected field path %q", ire.Field)
	}
}

func TestParseConditionRejectsNonMapping(t *testing.T) {
	_, err := ParseCondition("age > 18")
	var ire *InvalidRuleError
	if !errors.As(err, &ire) {
		t.Fatalf("expected InvalidRuleError for string payload, got %v", err)
	}
}

func TestParseConditionRejectsScalarInOperand(t *testing.T) {
	_, err := ParseCondition(map[string]any{"tags": map[string]any{"$in": "a"}})
	var ire *InvalidRuleError
	if !errors.As(err, &ire) {
		t.Fatalf("expected InvalidRuleError for scalar $in operand, got %v", err)
	}
}

func TestConditionTypedSlices(t *testing.T) {
	// Rules authored in Go rather than decoded from JSON carry typed slices.
	c := mustCondition(t, map[string]any{"role": map[string]any{"$in": []string{"admin", "editor"}}})
	if !c.Matches(map[string]any{"role": "editor"}) {
		t.Fatalf("expected []string operand to behave like []any")
	}
	c = mustCondition(t, map[string]any{"id": map[string]any{"$in": []int64{1, 2, 3}}})
	if !c.Matches(map[string]any{"id": 2}) {
		t.Fatalf("expected []int64 operand to match int value")
	}
}
