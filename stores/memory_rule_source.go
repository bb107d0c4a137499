package stores

import (
	"context"
	"sync"

	"github.com/oarkflow/ability"
)

// MemoryRuleSource is a mutable in-memory rule source, sufficient for tests
// and single-process deployments. Callers mutating a role's rules are
// responsible for invalidating the ability cache for that role.
type MemoryRuleSource struct {
	mu   sync.RWMutex
	rows map[int64][]ability.RuleInput
}

func NewMemoryRuleSource() *MemoryRuleSource {
	return &MemoryRuleSource{rows: make(map[int64][]ability.RuleInput)}
}

func (s *MemoryRuleSource) FetchRules(_ context.Context, roleID int64) ([]ability.RuleInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[roleID]
	out := make([]ability.RuleInput, len(rows))
	copy(out, rows)
	return out, nil
}

// SetRules replaces every rule of a role.
func (s *MemoryRuleSource) SetRules(roleID int64, rows []ability.RuleInput) {
	cp := make([]ability.RuleInput, len(rows))
	copy(cp, rows)
	s.mu.Lock()
	s.rows[roleID] = cp
	s.mu.Unlock()
}

// Grant appends a rule to its role.
func (s *MemoryRuleSource) Grant(row ability.RuleInput) {
	s.mu.Lock()
	s.rows[row.RoleID] = append(s.rows[row.RoleID], row)
	s.mu.Unlock()
}

// RevokeAll removes every rule of a role.
func (s *MemoryRuleSource) RevokeAll(roleID int64) {
	s.mu.Lock()
	delete(s.rows, roleID)
	s.mu.Unlock()
}
