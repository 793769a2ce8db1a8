package server

import "errors"

// RuleError is the single domain error type. ID is a stable dotted
// identifier matching a theme message template ("error.<id>"); Meta holds
// raw references (tokens, property ids, amounts) that are expanded against
// the game state at format time, never at throw time.
type RuleError struct {
	ID   string
	Meta map[string]any
}

func (e *RuleError) Error() string {
	return e.ID
}

func ruleError(id string, meta map[string]any) *RuleError {
	return &RuleError{ID: id, Meta: meta}
}

// AsRuleError unwraps err into a RuleError when it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var rule *RuleError
	if errors.As(err, &rule) {
		return rule, true
	}
	return nil, false
}
