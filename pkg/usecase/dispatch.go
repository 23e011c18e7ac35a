package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"github.com/secmon-lab/autoreply/pkg/utils/errutil"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
)

// DispatchUseCase turns inbound messages into replies
type DispatchUseCase struct {
	store       interfaces.ActionStore
	sender      interfaces.Sender
	location    *time.Location
	containment types.Containment
}

func NewDispatchUseCase(store interfaces.ActionStore, sender interfaces.Sender, loc *time.Location, containment types.Containment) *DispatchUseCase {
	if loc == nil {
		loc = time.Local
	}
	return &DispatchUseCase{
		store:       store,
		sender:      sender,
		location:    loc,
		containment: containment,
	}
}

// Dispatch decides the replies for msg without sending anything. Every action watching
// the channel contributes one reply per reply channel.
func (uc *DispatchUseCase) Dispatch(ctx context.Context, msg *model.InboundMessage) ([]*model.Reply, error) {
	if msg.AuthorIsBot {
		return nil, nil
	}

	records, err := uc.store.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions", goerr.V(ChannelIDKey, msg.ChannelID))
	}

	now := model.ClockHHMM(msg.At, uc.location)

	var replies []*model.Reply
	for _, rec := range records {
		if !rec.Watches(msg.ChannelID) {
			continue
		}

		mention := rec.NightMention
		if uc.inDay(rec.DayWindow, now) {
			mention = rec.DayMention
		}

		for _, ch := range rec.ReplyChannels {
			replies = append(replies, &model.Reply{
				ChannelID: ch,
				Mention:   mention,
				Message:   rec.Message,
				Action:    rec.Name,
			})
		}
	}

	return replies, nil
}

func (uc *DispatchUseCase) inDay(w model.TimeWindow, now string) bool {
	if uc.containment == types.ContainmentWraparound {
		return w.ContainsWrapped(now)
	}
	return w.Contains(now)
}

// Deliver sends each reply on its own. A failed send is reported and does not keep the
// others from going out. It returns how many replies were sent.
func (uc *DispatchUseCase) Deliver(ctx context.Context, replies []*model.Reply) int {
	sent := 0
	for _, r := range replies {
		if err := uc.sender.Send(ctx, r); err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to send reply",
				goerr.V(ChannelIDKey, r.ChannelID),
				goerr.V(ActionNameKey, r.Action),
			), "reply delivery failed")
			continue
		}
		sent++
	}
	return sent
}

// HandleMessage dispatches msg and delivers the result. Failures are reported, never
// returned, so the caller keeps processing further messages.
func (uc *DispatchUseCase) HandleMessage(ctx context.Context, msg *model.InboundMessage) error {
	logger := logging.From(ctx)

	replies, err := uc.Dispatch(ctx, msg)
	if err != nil {
		errutil.Handle(ctx, err, "failed to dispatch message")
		return nil
	}
	if len(replies) == 0 {
		return nil
	}

	sent := uc.Deliver(ctx, replies)
	logger.Info("replies delivered",
		"channel_id", msg.ChannelID,
		"team_id", msg.TeamID,
		"planned", len(replies),
		"sent", sent,
	)
	return nil
}
