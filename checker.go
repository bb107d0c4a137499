package ability

import (
	"context"
	"fmt"

	"github.com/oarkflow/ability/logger"
)

// ============================================================================
// AUTHORIZATION DECISION SERVICE
// ============================================================================

// Checker is the public decision entry point. It reads compiled abilities
// through the cache and never retains one beyond a single call. Identity is
// passed explicitly per call; the checker holds no request-scoped state.
type Checker struct {
	cache  *Cache
	logger logger.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithLogger installs a Logger on the Checker.
func WithLogger(l logger.Logger) CheckerOption {
	return func(c *Checker) { c.logger = l }
}

func NewChecker(cache *Cache, opts ...CheckerOption) *Checker {
	c := &Checker{cache: cache, logger: logger.NewNullLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Can decides whether the user, acting under roleID, may perform action on
// subject, optionally narrowed to a concrete resource instance. The decision
// is true when at least one non-inverted rule matches and no inverted rule
// does: any matching deny wins, regardless of rule order. A nil resource makes
// every conditioned rule non-matching (conditions cannot be satisfied against
// nothing) unless the condition is empty.
//
// Rule fetch failures surface as ErrRuleSourceUnavailable; the caller decides
// the fail-open/fail-closed policy.
func (c *Checker) Can(ctx context.Context, userID, roleID int64, action, subject string, resource map[string]any) (bool, error) {
	ab, err := c.cache.Get(ctx, userID, roleID)
	if err != nil {
		return false, err
	}
	action = Normalize(action)
	subject = Normalize(subject)

	allowed := false
	for _, r := range ab.rules {
		if !ruleMatches(r, action, subject, resource) {
			continue
		}
		if r.Inverted {
			c.logger.Debug("ability deny", "user_id", userID, "role_id", roleID, "action", action, "subject", subject)
			return false, nil
		}
		allowed = true
	}
	return allowed, nil
}

// Decision carries the outcome of Explain: the final verdict, the rules that
// determined it and a per-rule evaluation trace.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Matched *Rule    `json:"matched,omitempty"` // first matching allow rule
	Denied  *Rule    `json:"denied,omitempty"`  // matching inverted rule, if any
	Trace   []string `json:"trace"`
}

// Explain evaluates like Can but records how each rule was treated. Intended
// for debugging permission data, not for the per-request hot path.
func (c *Checker) Explain(ctx context.Context, userID, roleID int64, action, subject string, resource map[string]any) (*Decision, error) {
	ab, err := c.cache.Get(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	action = Normalize(action)
	subject = Normalize(subject)

	dec := &Decision{Trace: make([]string, 0, ab.Len())}
	for i, r := range ab.rules {
		if !ruleApplies(r, action, subject) {
			dec.Trace = append(dec.Trace, fmt.Sprintf("rule[%d] %s/%s: scope_no_match", i, r.Action, r.Subject))
			continue
		}
		if !conditionsMatch(r, resource) {
			dec.Trace = append(dec.Trace, fmt.Sprintf("rule[%d] %s/%s: conditions_no_match", i, r.Action, r.Subject))
			continue
		}
		if r.Inverted {
			rr := r
			dec.Denied = &rr
			dec.Allowed = false
			dec.Trace = append(dec.Trace, fmt.Sprintf("rule[%d] %s/%s: DENY", i, r.Action, r.Subject))
			continue
		}
		if dec.Matched == nil {
			rr := r
			dec.Matched = &rr
		}
		dec.Trace = append(dec.Trace, fmt.Sprintf("rule[%d] %s/%s: ALLOW", i, r.Action, r.Subject))
	}
	dec.Allowed = dec.Matched != nil && dec.Denied == nil
	return dec, nil
}

// CheckRequest is one entry of a batch decision.
type CheckRequest struct {
	UserID   int64
	RoleID   int64
	Action   string
	Subject  string
	Resource map[string]any
}

// CanBatch evaluates multiple requests, stopping at the first error.
func (c *Checker) CanBatch(ctx context.Context, reqs []CheckRequest) ([]bool, error) {
	results := make([]bool, len(reqs))
	for i, req := range reqs {
		ok, err := c.Can(ctx, req.UserID, req.RoleID, req.Action, req.Subject, req.Resource)
		if err != nil {
			return nil, err
		}
		results[i] = ok
	}
	return results, nil
}

// Invalidate drops the cached ability for (userID, roleID). Role and
// permission management code must call this after mutating permission rows.
func (c *Checker) Invalidate(ctx context.Context, userID, roleID int64) {
	c.cache.Invalidate(ctx, userID, roleID)
}

// InvalidateAll clears every cached ability.
func (c *Checker) InvalidateAll(ctx context.Context) {
	c.cache.InvalidateAll(ctx)
}

// ruleApplies checks the (action, subject) scope, honoring the wildcard
// sentinels.
func ruleApplies(r Rule, action, subject string) bool {
	if r.Subject != SubjectAll && r.Subject != subject {
		return false
	}
	if r.Action != ActionAll && r.Action != action {
		return false
	}
	return true
}

func conditionsMatch(r Rule, resource map[string]any) bool {
	if len(r.Conditions) == 0 {
		return true
	}
	if resource == nil {
		return false
	}
	return r.Conditions.Matches(resource)
}

func ruleMatches(r Rule, action, subject string, resource map[string]any) bool {
	return ruleApplies(r, action, subject) && conditionsMatch(r, resource)
}
