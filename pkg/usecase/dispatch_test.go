package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"github.com/secmon-lab/autoreply/pkg/usecase"
)

func TestDispatchUseCase_DayAndNight(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	tests := []struct {
		name    string
		at      time.Time
		mention string
	}{
		{"inside day window", at(10, 0), model.MentionEveryone},
		{"start of day window", at(9, 0), model.MentionEveryone},
		{"end of day window", at(17, 59), model.MentionEveryone},
		{"evening", at(20, 0), model.MentionHere},
		{"early morning", at(1, 0), model.MentionHere},
		{"just before day", at(8, 59), model.MentionHere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: tt.at})
			gt.NoError(t, err).Required()
			gt.Array(t, replies).Length(1).Required()
			gt.Value(t, replies[0].ChannelID).Equal("C20")
			gt.Value(t, replies[0].Text()).Equal(tt.mention + "\nhi")
			gt.Value(t, replies[0].Action).Equal("support")
		})
	}
}

func TestDispatchUseCase_EndToEnd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	gt.NoError(t, env.uc.Dispatch.HandleMessage(ctx, &model.InboundMessage{ChannelID: "C10", At: at(10, 0)}))
	gt.NoError(t, env.uc.Dispatch.HandleMessage(ctx, &model.InboundMessage{ChannelID: "C10", At: at(20, 0)}))

	sent := env.sender.Sent()
	gt.Array(t, sent).Length(2).Required()
	gt.Value(t, sent[0].ChannelID).Equal("C20")
	gt.Value(t, sent[0].Text()).Equal("@everyone\nhi")
	gt.Value(t, sent[1].Text()).Equal("@here\nhi")
}

func TestDispatchUseCase_Ignored(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	t.Run("bot author", func(t *testing.T) {
		replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{AuthorIsBot: true, ChannelID: "C10", At: at(10, 0)})
		gt.NoError(t, err).Required()
		gt.Array(t, replies).Length(0)
	})

	t.Run("unwatched channel", func(t *testing.T) {
		replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C20", At: at(10, 0)})
		gt.NoError(t, err).Required()
		gt.Array(t, replies).Length(0)
	})

	t.Run("unfinished session is never dispatched", func(t *testing.T) {
		p, err := env.uc.Wizard.Begin(ctx, "U2")
		gt.NoError(t, err).Required()
		_, err = env.uc.Wizard.SubmitDayMention(ctx, p.Key, model.MentionHere)
		gt.NoError(t, err).Required()

		replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(10, 0)})
		gt.NoError(t, err).Required()
		gt.Array(t, replies).Length(1)
	})
}

func TestDispatchUseCase_FanOut(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first := defaultActionInput("first")
	first.reply = []string{"C20", "C30"}
	_, err := runWizard(ctx, env.uc.Wizard, "U1", first)
	gt.NoError(t, err).Required()

	second := defaultActionInput("second")
	second.message = "from second"
	_, err = runWizard(ctx, env.uc.Wizard, "U1", second)
	gt.NoError(t, err).Required()

	replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(10, 0)})
	gt.NoError(t, err).Required()
	gt.Array(t, replies).Length(3).Required()
	gt.Value(t, replies[0].Action).Equal("first")
	gt.Value(t, replies[0].ChannelID).Equal("C20")
	gt.Value(t, replies[1].ChannelID).Equal("C30")
	gt.Value(t, replies[2].Action).Equal("second")
	gt.Value(t, replies[2].Message).Equal("from second")
}

func TestDispatchUseCase_SendFailureDoesNotStopSiblings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	in := defaultActionInput("support")
	in.reply = []string{"C20", "C30"}
	_, err := runWizard(ctx, env.uc.Wizard, "U1", in)
	gt.NoError(t, err).Required()

	env.sender.failOn["C20"] = true

	replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(10, 0)})
	gt.NoError(t, err).Required()
	gt.Value(t, env.uc.Dispatch.Deliver(ctx, replies)).Equal(1)

	sent := env.sender.Sent()
	gt.Array(t, sent).Length(1).Required()
	gt.Value(t, sent[0].ChannelID).Equal("C30")
}

func TestDispatchUseCase_DeleteStopsReplies(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	deleted, err := env.uc.Manage.Delete(ctx, "support")
	gt.NoError(t, err).Required()
	gt.Bool(t, deleted).True()

	replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(10, 0)})
	gt.NoError(t, err).Required()
	gt.Array(t, replies).Length(0)
}

func TestDispatchUseCase_Containment(t *testing.T) {
	in := defaultActionInput("late")
	in.windows = usecase.TimeWindowsInput{DayStart: "2200", DayEnd: "0200", NightStart: "0201", NightEnd: "2159"}

	t.Run("raw never matches a window crossing midnight", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()
		_, err := runWizard(ctx, env.uc.Wizard, "U1", in)
		gt.NoError(t, err).Required()

		replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(1, 0)})
		gt.NoError(t, err).Required()
		gt.Array(t, replies).Length(1).Required()
		gt.Value(t, replies[0].Mention).Equal(model.MentionHere)
	})

	t.Run("wraparound matches across midnight", func(t *testing.T) {
		env := newTestEnv(usecase.WithContainment(types.ContainmentWraparound))
		ctx := context.Background()
		_, err := runWizard(ctx, env.uc.Wizard, "U1", in)
		gt.NoError(t, err).Required()

		replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(1, 0)})
		gt.NoError(t, err).Required()
		gt.Array(t, replies).Length(1).Required()
		gt.Value(t, replies[0].Mention).Equal(model.MentionEveryone)
	})
}

func TestDispatchUseCase_Location(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	env := newTestEnv(usecase.WithLocation(tokyo))
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	// 01:00 UTC is 10:00 in Tokyo
	replies, err := env.uc.Dispatch.Dispatch(ctx, &model.InboundMessage{ChannelID: "C10", At: at(1, 0)})
	gt.NoError(t, err).Required()
	gt.Array(t, replies).Length(1).Required()
	gt.Value(t, replies[0].Mention).Equal(model.MentionEveryone)
}
