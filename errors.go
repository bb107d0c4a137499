package ability

import (
	"errors"
	"fmt"
)

// ErrRuleSourceUnavailable marks a failed fetch from the underlying rule
// source. The checker propagates it verbatim instead of degrading to an
// implicit allow or deny; the request-handling boundary decides the
// fail-open/fail-closed policy.
var ErrRuleSourceUnavailable = errors.New("ability: rule source unavailable")

// InvalidRuleError reports a malformed permission rule at compile time:
// an unrecognized condition operator, a condition that is not a mapping, or
// an action/subject that is empty after normalization. It is a configuration
// or data error, not a per-request one.
type InvalidRuleError struct {
	Index  int    // position of the offending row in the compiled batch, -1 if unknown
	Field  string // offending field or condition path
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("ability: invalid rule at index %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("ability: invalid rule: %s: %s", e.Field, e.Reason)
}
