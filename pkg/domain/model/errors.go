package model

import "github.com/m-mizutani/goerr/v2"

// Domain errors
var (
	ErrUnknownField   = goerr.New("unknown action field")
	ErrIncomplete     = goerr.New("action is incomplete")
	ErrStepOutOfOrder = goerr.New("wizard step submitted out of order")
	ErrInvalidKey     = goerr.New("invalid provisional key")
	ErrInvalidTime    = goerr.New("invalid HHMM time")
)

// Context keys for error values
const (
	FieldKey          = "field"
	ActionNameKey     = "action_name"
	ProvisionalKeyKey = "provisional_key"
	StepKey           = "step"
	ExpectedStepKey   = "expected_step"
)
