package ability

import "encoding/json"

// Serialization of compiled abilities for external cache stores (redis). The
// wire form is the normalized rule list; conditions are re-validated on load
// so a corrupted payload cannot smuggle unknown operators past the compiler.

// MarshalAbility encodes the compiled rule set as JSON.
func MarshalAbility(ab *Ability) ([]byte, error) {
	return json.Marshal(ab.rules)
}

// UnmarshalAbility decodes a payload produced by MarshalAbility, re-running
// condition validation. Malformed payloads fail with InvalidRuleError.
func UnmarshalAbility(data []byte) (*Ability, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	for i, r := range rules {
		action := Normalize(r.Action)
		if action == "" {
			return nil, &InvalidRuleError{Index: i, Field: "action", Reason: "empty after normalization"}
		}
		subject := Normalize(r.Subject)
		if subject == "" {
			return nil, &InvalidRuleError{Index: i, Field: "subject", Reason: "empty after normalization"}
		}
		cond, err := ParseCondition(r.Conditions)
		if err != nil {
			if ire, ok := err.(*InvalidRuleError); ok {
				ire.Index = i
			}
			return nil, err
		}
		rules[i].Action = action
		rules[i].Subject = subject
		rules[i].Conditions = cond
	}
	return &Ability{rules: rules}, nil
}
