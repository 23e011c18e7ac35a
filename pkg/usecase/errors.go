package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrActionNotFound  = errors.New("action not found")
	ErrSessionNotFound = errors.New("wizard session not found")

	// Conflict errors
	ErrNameTaken = errors.New("action name is already taken")
)

// Context keys for error values
const (
	ActionNameKey     = "action_name"
	ProvisionalKeyKey = "provisional_key"
	InitiatorKey      = "initiator"
	ChannelIDKey      = "channel_id"
)
