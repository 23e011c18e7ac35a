package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service provides interface to the Slack API used by the auto-reply bot
type Service interface {
	// ListJoinedChannels retrieves the public channels the bot has joined.
	// Used for the watch and reply channel menus.
	ListJoinedChannels(ctx context.Context) ([]Channel, error)

	// GetChannelNames retrieves channel names for the given IDs (with caching).
	// IDs that cannot be resolved are left out of the result.
	GetChannelNames(ctx context.Context, ids []string) (map[string]string, error)

	// ListUserGroups retrieves the active user groups of the workspace
	ListUserGroups(ctx context.Context) ([]UserGroup, error)

	// PostMessage posts a plain text message to a channel and returns the message timestamp
	PostMessage(ctx context.Context, channelID, text string) (string, error)

	// OpenView opens a modal in response to an interaction carrying triggerID
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error

	// UpdateView replaces the content of an open modal
	UpdateView(ctx context.Context, viewID string, view slack.ModalViewRequest) error
}

// Channel represents a Slack channel
type Channel struct {
	ID   string
	Name string
}

// UserGroup represents a mentionable Slack user group
type UserGroup struct {
	ID     string
	Name   string
	Handle string
}
