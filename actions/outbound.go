package actions

import (
	"charge_point_tester/common"
)

// ValidateOutbound checks a request payload before it is sent. The first
// missing field or invalid value fails the whole record.
func ValidateOutbound(action common.ActionKind, payload common.Payload) error {
	r, ok := rules[action]
	if !ok {
		return common.OutboundValidationError.New("no rules for action %v", action)
	}

	for _, field := range r.required {
		value, present := payload[field]
		if !present {
			return common.OutboundValidationError.New("%v: missing required field '%s'", action, field)
		}
		if r.isString(field) {
			if _, ok := value.(string); !ok {
				return common.OutboundValidationError.New("%v: field '%s' is not a string", action, field)
			}
		}
		if tag, ok := r.enums[field]; ok {
			s, isString := value.(string)
			if !isString || validate.Var(s, tag) != nil {
				return common.OutboundValidationError.New("%v: field '%s' has invalid value %v", action, field, value)
			}
		}
	}
	return nil
}
