package stores

import (
	"context"
	"database/sql"
	"testing"

	"github.com/oarkflow/ability"
	"github.com/oarkflow/squealx"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *squealx.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	db := squealx.NewDb(sqlDB, "sqlite", "testdb")
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLRuleSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewSQLRuleSource(newTestDB(t))

	rows := []ability.RuleInput{
		{RoleID: 2, Action: "read", Subject: "book", SortOrder: 1},
		{RoleID: 2, Action: "update", Subject: "book", SortOrder: 2,
			Conditions: map[string]any{"stock": map[string]any{"$gt": 0}}},
		{RoleID: 2, Action: "update", Subject: "book", SortOrder: 3, Inverted: true,
			Conditions: map[string]any{"archived": true}},
		{RoleID: 9, Action: "manage", Subject: "all"},
	}
	for _, r := range rows {
		if err := src.SaveRule(ctx, r); err != nil {
			t.Fatalf("SaveRule(%+v): %v", r, err)
		}
	}

	got, err := src.FetchRules(ctx, 2)
	if err != nil {
		t.Fatalf("FetchRules: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rules for role 2, got %d", len(got))
	}
	if got[0].Action != "read" || got[2].Inverted != true {
		t.Fatalf("rows came back out of order or mangled: %+v", got)
	}
	cond, ok := got[1].Conditions.(map[string]any)
	if !ok {
		t.Fatalf("conditions did not decode to a map: %T", got[1].Conditions)
	}
	if _, ok := cond["stock"]; !ok {
		t.Fatalf("conditions lost content: %v", cond)
	}

	// stored rows must compile cleanly
	if _, err := ability.Compile(got); err != nil {
		t.Fatalf("Compile over stored rows: %v", err)
	}
}

func TestSQLRuleSourceEmptyRole(t *testing.T) {
	ctx := context.Background()
	src := NewSQLRuleSource(newTestDB(t))
	got, err := src.FetchRules(ctx, 42)
	if err != nil {
		t.Fatalf("FetchRules: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no rules for unknown role, got %d", len(got))
	}
}

func TestSQLRuleSourceDeleteRules(t *testing.T) {
	ctx := context.Background()
	src := NewSQLRuleSource(newTestDB(t))

	_ = src.SaveRule(ctx, ability.RuleInput{RoleID: 2, Action: "read", Subject: "book"})
	_ = src.SaveRule(ctx, ability.RuleInput{RoleID: 3, Action: "read", Subject: "book"})

	if err := src.DeleteRules(ctx, 2); err != nil {
		t.Fatalf("DeleteRules: %v", err)
	}
	got, _ := src.FetchRules(ctx, 2)
	if len(got) != 0 {
		t.Fatalf("role 2 rules survived deletion: %+v", got)
	}
	got, _ = src.FetchRules(ctx, 3)
	if len(got) != 1 {
		t.Fatalf("role 3 rules were collaterally deleted")
	}
}

func TestSQLRuleSourceListRules(t *testing.T) {
	ctx := context.Background()
	src := NewSQLRuleSource(newTestDB(t))

	_ = src.SaveRule(ctx, ability.RuleInput{RoleID: 2, Action: "read", Subject: "book"})
	listed, err := src.ListRules(ctx, 2)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 stored rule, got %d", len(listed))
	}
	if listed[0].ID == 0 {
		t.Fatalf("stored rule should carry its row id")
	}
	if listed[0].CreatedAt.IsZero() {
		t.Fatalf("stored rule should carry its creation time")
	}
}

func TestSQLRuleSourceBacksCache(t *testing.T) {
	ctx := context.Background()
	src := NewSQLRuleSource(newTestDB(t))
	_ = src.SaveRule(ctx, ability.RuleInput{RoleID: 2, Action: "read", Subject: "book"})

	checker := ability.NewChecker(ability.NewCache(src))
	ok, err := checker.Can(ctx, 1, 2, "read", "Book", nil)
	if err != nil || !ok {
		t.Fatalf("expected allow from sqlite-backed rules, got ok=%v err=%v", ok, err)
	}

	// mutate and invalidate
	_ = src.SaveRule(ctx, ability.RuleInput{RoleID: 2, Action: "read", Subject: "book", Inverted: true})
	checker.Invalidate(ctx, 1, 2)
	ok, _ = checker.Can(ctx, 1, 2, "read", "Book", nil)
	if ok {
		t.Fatalf("expected deny after inverted rule landed and cache was invalidated")
	}
}
