package interfaces

import (
	"context"

	"github.com/secmon-lab/autoreply/pkg/domain/model"
)

// Directory enumerates what the wizard offers as choices
type Directory interface {
	// ListChannels returns the text channels the bot can watch and post to
	ListChannels(ctx context.Context) ([]*model.Channel, error)

	// ListRoles returns the mentionable groups, excluding the platform defaults
	ListRoles(ctx context.Context) ([]*model.Role, error)

	// ChannelNames maps channel IDs to display names. Unknown IDs are omitted.
	ChannelNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Sender posts a reply to a channel
type Sender interface {
	Send(ctx context.Context, reply *model.Reply) error
}
