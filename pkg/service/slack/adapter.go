package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
)

// Directory exposes joined channels and user groups to the wizard
type Directory struct {
	svc Service
}

var _ interfaces.Directory = &Directory{}

func NewDirectory(svc Service) *Directory {
	return &Directory{svc: svc}
}

func (d *Directory) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	channels, err := d.svc.ListJoinedChannels(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Channel, 0, len(channels))
	for _, ch := range channels {
		result = append(result, &model.Channel{ID: ch.ID, Name: ch.Name})
	}
	return result, nil
}

func (d *Directory) ListRoles(ctx context.Context) ([]*model.Role, error) {
	groups, err := d.svc.ListUserGroups(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Role, 0, len(groups))
	for _, g := range groups {
		name := g.Name
		if g.Handle != "" {
			name = "@" + g.Handle
		}
		result = append(result, &model.Role{ID: g.ID, Name: name})
	}
	return result, nil
}

func (d *Directory) ChannelNames(ctx context.Context, ids []string) (map[string]string, error) {
	return d.svc.GetChannelNames(ctx, ids)
}

// Sender posts replies with Slack mention markup
type Sender struct {
	svc Service
}

var _ interfaces.Sender = &Sender{}

func NewSender(svc Service) *Sender {
	return &Sender{svc: svc}
}

func (s *Sender) Send(ctx context.Context, reply *model.Reply) error {
	if _, err := s.svc.PostMessage(ctx, reply.ChannelID, ReplyText(reply)); err != nil {
		return goerr.Wrap(err, "failed to send reply", goerr.V("channel_id", reply.ChannelID), goerr.V("action", reply.Action))
	}
	return nil
}
