package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"github.com/secmon-lab/autoreply/pkg/usecase"
)

func TestWizardUseCase_Flow(t *testing.T) {
	env := newTestEnv()
	w := env.uc.Wizard
	ctx := context.Background()

	p, err := w.Begin(ctx, "U1")
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitDayMention)
	gt.Value(t, p.Title).Equal(usecase.TitleDayMention)
	gt.Value(t, p.Key.Initiator).Equal("U1")
	gt.Array(t, p.Options).Length(3).Required()
	gt.Value(t, p.Options[0].Value).Equal(model.MentionEveryone)
	gt.Value(t, p.Options[1].Value).Equal(model.MentionHere)
	gt.Value(t, p.Options[2]).Equal(model.PromptOption{Value: "S1", Label: "oncall"})

	key := p.Key

	p, err = w.SubmitDayMention(ctx, key, model.MentionEveryone)
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitNightMention)
	gt.Value(t, p.Title).Equal(usecase.TitleNightMention)

	p, err = w.SubmitNightMention(ctx, key, "S1")
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitTimeWindows)
	gt.Array(t, p.Options).Length(0)

	p, err = w.SubmitTimeWindows(ctx, key, usecase.TimeWindowsInput{
		DayStart: "0900", DayEnd: "1759", NightStart: "1800", NightEnd: "0859",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitWatchChannels)
	gt.Array(t, p.Options).Length(3)
	gt.Value(t, p.Options[0]).Equal(model.PromptOption{Value: "C10", Label: "general"})

	p, err = w.SubmitWatchChannels(ctx, key, []string{"C10"})
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitReplyChannels)
	gt.Value(t, p.Title).Equal(usecase.TitleReplyChannels)

	p, err = w.SubmitReplyChannels(ctx, key, []string{"C20", "C30"})
	gt.NoError(t, err).Required()
	gt.Value(t, p.Step).Equal(types.WizardStepAwaitMessageAndName)

	p, err = w.SubmitMessageAndName(ctx, key, "hi", "support")
	gt.NoError(t, err).Required()
	gt.Bool(t, p.Done()).True()
	gt.Value(t, p.Name).Equal("support")
	gt.Value(t, p.Summary.WatchChannels).Equal([]string{"general"})
	gt.Value(t, p.Summary.ReplyChannels).Equal([]string{"support", "ops"})
	gt.Value(t, p.Summary.DayMention).Equal(model.MentionEveryone)
	gt.Value(t, p.Summary.NightMention).Equal("S1")
	gt.Value(t, p.Summary.DayWindow).Equal("09:00 - 17:59")
	gt.Value(t, p.Summary.NightWindow).Equal("18:00 - 08:59")
	gt.Value(t, p.Summary.Message).Equal("hi")

	rec, err := env.repo.Action().Get(ctx, "support")
	gt.NoError(t, err).Required()
	gt.Value(t, rec.ReplyChannels).Equal([]string{"C20", "C30"})

	_, err = w.Current(ctx, key)
	gt.Error(t, err).Is(usecase.ErrSessionNotFound)
}

func TestWizardUseCase_OutOfOrder(t *testing.T) {
	env := newTestEnv()
	w := env.uc.Wizard
	ctx := context.Background()

	p, err := w.Begin(ctx, "U1")
	gt.NoError(t, err).Required()

	_, err = w.SubmitWatchChannels(ctx, p.Key, []string{"C10"})
	gt.Error(t, err).Is(model.ErrStepOutOfOrder)

	_, err = w.SubmitMessageAndName(ctx, p.Key, "hi", "early")
	gt.Error(t, err).Is(model.ErrStepOutOfOrder)

	names, err := env.uc.Manage.ListNames(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, names).Length(0)

	cur, err := w.Current(ctx, p.Key)
	gt.NoError(t, err).Required()
	gt.Value(t, cur.Step).Equal(types.WizardStepAwaitDayMention)
	gt.Value(t, cur.Record.Message).Equal("")
}

func TestWizardUseCase_UnknownSession(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.uc.Wizard.SubmitDayMention(ctx, model.ProvisionalKey{Initiator: "U1", Seq: 42}, model.MentionHere)
	gt.Error(t, err).Is(usecase.ErrSessionNotFound)
}

func TestWizardUseCase_TimeWindowsStoredAsTyped(t *testing.T) {
	t.Run("accepts anything by default", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()

		in := defaultActionInput("loose")
		in.windows = usecase.TimeWindowsInput{DayStart: "9", DayEnd: "ab", NightStart: "", NightEnd: "2500"}
		_, err := runWizard(ctx, env.uc.Wizard, "U1", in)
		gt.NoError(t, err).Required()

		rec, err := env.repo.Action().Get(ctx, "loose")
		gt.NoError(t, err).Required()
		gt.Value(t, rec.DayWindow).Equal(model.TimeWindow{Start: "9", End: "ab"})
		gt.Value(t, rec.NightWindow).Equal(model.TimeWindow{Start: "", End: "2500"})
	})

	t.Run("strict input rejects malformed times", func(t *testing.T) {
		env := newTestEnv(usecase.WithStrictTimeInput(true))
		ctx := context.Background()

		in := defaultActionInput("strict")
		in.windows.DayEnd = "17:59"
		_, err := runWizard(ctx, env.uc.Wizard, "U1", in)
		gt.Error(t, err).Is(model.ErrInvalidTime)

		_, err = runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("strict"))
		gt.NoError(t, err)
	})
}

func TestWizardUseCase_Conflict(t *testing.T) {
	t.Run("overwrite replaces the existing action", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()

		_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
		gt.NoError(t, err).Required()

		in := defaultActionInput("support")
		in.message = "second"
		_, err = runWizard(ctx, env.uc.Wizard, "U2", in)
		gt.NoError(t, err).Required()

		rec, err := env.repo.Action().Get(ctx, "support")
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Message).Equal("second")
	})

	t.Run("reject keeps the existing action", func(t *testing.T) {
		env := newTestEnv(usecase.WithConflictPolicy(types.ConflictPolicyReject))
		ctx := context.Background()

		_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
		gt.NoError(t, err).Required()

		in := defaultActionInput("support")
		in.message = "second"
		_, err = runWizard(ctx, env.uc.Wizard, "U2", in)
		gt.Error(t, err).Is(usecase.ErrNameTaken)

		rec, err := env.repo.Action().Get(ctx, "support")
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Message).Equal("hi")
	})
}

func TestWizardUseCase_IncompleteName(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput(""))
	gt.Error(t, err).Is(model.ErrIncomplete)
}

func TestWizardUseCase_DirectoryFailure(t *testing.T) {
	env := newTestEnv()
	env.directory.err = errors.New("directory down")

	_, err := env.uc.Wizard.Begin(context.Background(), "U1")
	gt.Value(t, err).NotNil()
}

func TestWizardUseCase_Edit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := runWizard(ctx, env.uc.Wizard, "U1", defaultActionInput("support"))
	gt.NoError(t, err).Required()

	p, err := env.uc.Wizard.BeginEdit(ctx, "U2", "support")
	gt.NoError(t, err).Required()
	gt.Value(t, p.EditOf).Equal("support")
	gt.Value(t, p.Record.Message).Equal("hi")
	gt.Value(t, p.Record.DayMention).Equal(model.MentionEveryone)

	in := defaultActionInput("support")
	in.watch = []string{"C30"}
	in.message = "edited"
	done, err := finishWizard(ctx, env.uc.Wizard, p.Key, in)
	gt.NoError(t, err).Required()
	gt.Value(t, done.EditOf).Equal("support")

	rec, err := env.repo.Action().Get(ctx, "support")
	gt.NoError(t, err).Required()
	gt.Value(t, rec.WatchChannels).Equal([]string{"C30"})
	gt.Value(t, rec.Message).Equal("edited")

	_, err = env.uc.Wizard.BeginEdit(ctx, "U2", "missing")
	gt.Error(t, err).Is(usecase.ErrActionNotFound)
}
