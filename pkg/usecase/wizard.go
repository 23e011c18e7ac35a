package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
)

// Prompt titles, one per wizard step
const (
	TitleDayMention     = "Choose who to mention during the day"
	TitleNightMention   = "Choose who to mention at night"
	TitleTimeWindows    = "Set the day and night time windows (HHMM)"
	TitleWatchChannels  = "Choose the channels to watch"
	TitleReplyChannels  = "Choose the channels to reply in"
	TitleMessageAndName = "Enter the reply message and the action name"
	TitleFinalized      = "Action saved"
)

// TimeWindowsInput is the raw text of the time window step, stored as typed
type TimeWindowsInput struct {
	DayStart   string
	DayEnd     string
	NightStart string
	NightEnd   string
}

// WizardUseCase drives the six step configuration flow. The current step of each
// session is kept on its provisional record, so a submission for any other step is refused.
type WizardUseCase struct {
	store      interfaces.ActionStore
	directory  interfaces.Directory
	policy     types.ConflictPolicy
	strictTime bool
}

func NewWizardUseCase(store interfaces.ActionStore, directory interfaces.Directory, policy types.ConflictPolicy, strictTime bool) *WizardUseCase {
	return &WizardUseCase{
		store:      store,
		directory:  directory,
		policy:     policy,
		strictTime: strictTime,
	}
}

// Begin starts the create flow for initiator
func (uc *WizardUseCase) Begin(ctx context.Context, initiator string) (*model.Prompt, error) {
	p, err := uc.store.BeginProvisional(ctx, initiator)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin wizard session", goerr.V(InitiatorKey, initiator))
	}

	logging.From(ctx).Info("wizard session started", "key", p.Key.String(), "initiator", initiator)
	return uc.promptFor(ctx, p)
}

// BeginEdit starts the edit flow for the action name. The action keeps serving replies
// unchanged until the session is finalized.
func (uc *WizardUseCase) BeginEdit(ctx context.Context, initiator, name string) (*model.Prompt, error) {
	p, err := uc.store.BeginEdit(ctx, initiator, name)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrActionNotFound, "cannot edit action", goerr.V(ActionNameKey, name))
		}
		return nil, goerr.Wrap(err, "failed to begin edit session", goerr.V(ActionNameKey, name))
	}

	logging.From(ctx).Info("wizard edit session started", "key", p.Key.String(), "initiator", initiator, "action", name)
	return uc.promptFor(ctx, p)
}

// Current returns the prompt for the step the session is waiting on
func (uc *WizardUseCase) Current(ctx context.Context, key model.ProvisionalKey) (*model.Prompt, error) {
	p, err := uc.store.GetProvisional(ctx, key)
	if err != nil {
		return nil, sessionError(err, key)
	}
	return uc.promptFor(ctx, p)
}

func (uc *WizardUseCase) SubmitDayMention(ctx context.Context, key model.ProvisionalKey, mention string) (*model.Prompt, error) {
	return uc.commit(ctx, key, model.StepCommit{
		From:    types.WizardStepAwaitDayMention,
		To:      types.WizardStepAwaitNightMention,
		Updates: []model.FieldUpdate{model.SetText(model.FieldDayMention, mention)},
	})
}

func (uc *WizardUseCase) SubmitNightMention(ctx context.Context, key model.ProvisionalKey, mention string) (*model.Prompt, error) {
	return uc.commit(ctx, key, model.StepCommit{
		From:    types.WizardStepAwaitNightMention,
		To:      types.WizardStepAwaitTimeWindows,
		Updates: []model.FieldUpdate{model.SetText(model.FieldNightMention, mention)},
	})
}

// SubmitTimeWindows stores the four times as typed. With strict time input enabled,
// anything but a valid HHMM is refused with model.ErrInvalidTime.
func (uc *WizardUseCase) SubmitTimeWindows(ctx context.Context, key model.ProvisionalKey, in TimeWindowsInput) (*model.Prompt, error) {
	if uc.strictTime {
		for _, s := range []string{in.DayStart, in.DayEnd, in.NightStart, in.NightEnd} {
			if err := model.ValidateHHMM(s); err != nil {
				return nil, goerr.Wrap(err, "invalid time window input", goerr.V(ProvisionalKeyKey, key.String()))
			}
		}
	}

	return uc.commit(ctx, key, model.StepCommit{
		From: types.WizardStepAwaitTimeWindows,
		To:   types.WizardStepAwaitWatchChannels,
		Updates: []model.FieldUpdate{
			model.SetText(model.FieldDayStart, in.DayStart),
			model.SetText(model.FieldDayEnd, in.DayEnd),
			model.SetText(model.FieldNightStart, in.NightStart),
			model.SetText(model.FieldNightEnd, in.NightEnd),
		},
	})
}

func (uc *WizardUseCase) SubmitWatchChannels(ctx context.Context, key model.ProvisionalKey, ids []string) (*model.Prompt, error) {
	return uc.commit(ctx, key, model.StepCommit{
		From:    types.WizardStepAwaitWatchChannels,
		To:      types.WizardStepAwaitReplyChannels,
		Updates: []model.FieldUpdate{model.SetChannels(model.FieldWatchChannels, ids)},
	})
}

func (uc *WizardUseCase) SubmitReplyChannels(ctx context.Context, key model.ProvisionalKey, ids []string) (*model.Prompt, error) {
	return uc.commit(ctx, key, model.StepCommit{
		From:    types.WizardStepAwaitReplyChannels,
		To:      types.WizardStepAwaitMessageAndName,
		Updates: []model.FieldUpdate{model.SetChannels(model.FieldReplyChannels, ids)},
	})
}

// SubmitMessageAndName stores the message, then finalizes the session as name
func (uc *WizardUseCase) SubmitMessageAndName(ctx context.Context, key model.ProvisionalKey, message, name string) (*model.Prompt, error) {
	p, err := uc.store.GetProvisional(ctx, key)
	if err != nil {
		return nil, sessionError(err, key)
	}
	if p.Step != types.WizardStepAwaitMessageAndName {
		return nil, goerr.Wrap(model.ErrStepOutOfOrder, "session is not waiting for a message",
			goerr.V(ProvisionalKeyKey, key.String()),
			goerr.V(model.StepKey, p.Step),
		)
	}

	if err := uc.store.UpdateField(ctx, key, model.SetText(model.FieldMessage, message)); err != nil {
		return nil, sessionError(err, key)
	}

	rec, err := uc.store.Finalize(ctx, key, name, uc.policy)
	if err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return nil, goerr.Wrap(ErrNameTaken, "cannot finalize action", goerr.V(ActionNameKey, name))
		}
		return nil, sessionError(err, key)
	}

	summary, err := summarize(ctx, uc.directory, rec)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("action finalized", "key", key.String(), "action", rec.Name, "edit_of", p.EditOf)
	return &model.Prompt{
		Step:    types.WizardStepFinalized,
		Key:     key,
		Title:   TitleFinalized,
		Record:  rec,
		EditOf:  p.EditOf,
		Summary: summary,
		Name:    rec.Name,
	}, nil
}

func (uc *WizardUseCase) commit(ctx context.Context, key model.ProvisionalKey, c model.StepCommit) (*model.Prompt, error) {
	p, err := uc.store.CommitStep(ctx, key, c)
	if err != nil {
		return nil, sessionError(err, key)
	}

	logging.From(ctx).Debug("wizard step committed", "key", key.String(), "from", c.From, "to", c.To)
	return uc.promptFor(ctx, p)
}

func (uc *WizardUseCase) promptFor(ctx context.Context, p *model.ProvisionalRecord) (*model.Prompt, error) {
	prompt := &model.Prompt{
		Step:   p.Step,
		Key:    p.Key,
		Record: p.Record.Clone(),
		EditOf: p.EditOf,
	}

	switch p.Step {
	case types.WizardStepAwaitDayMention, types.WizardStepAwaitNightMention:
		prompt.Title = TitleDayMention
		if p.Step == types.WizardStepAwaitNightMention {
			prompt.Title = TitleNightMention
		}
		options, err := uc.mentionOptions(ctx)
		if err != nil {
			return nil, err
		}
		prompt.Options = options

	case types.WizardStepAwaitTimeWindows:
		prompt.Title = TitleTimeWindows

	case types.WizardStepAwaitWatchChannels, types.WizardStepAwaitReplyChannels:
		prompt.Title = TitleWatchChannels
		if p.Step == types.WizardStepAwaitReplyChannels {
			prompt.Title = TitleReplyChannels
		}
		options, err := uc.channelOptions(ctx)
		if err != nil {
			return nil, err
		}
		prompt.Options = options

	case types.WizardStepAwaitMessageAndName:
		prompt.Title = TitleMessageAndName
		prompt.Name = p.EditOf

	default:
		return nil, goerr.New("session is at an unknown step",
			goerr.V(ProvisionalKeyKey, p.Key.String()),
			goerr.V(model.StepKey, p.Step),
		)
	}

	return prompt, nil
}

// mentionOptions lists @everyone and @here followed by every role
func (uc *WizardUseCase) mentionOptions(ctx context.Context) ([]model.PromptOption, error) {
	options := []model.PromptOption{
		{Value: model.MentionEveryone, Label: model.MentionEveryone},
		{Value: model.MentionHere, Label: model.MentionHere},
	}

	roles, err := uc.directory.ListRoles(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list roles")
	}
	for _, r := range roles {
		options = append(options, model.PromptOption{Value: r.ID, Label: r.Name})
	}
	return options, nil
}

func (uc *WizardUseCase) channelOptions(ctx context.Context) ([]model.PromptOption, error) {
	channels, err := uc.directory.ListChannels(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list channels")
	}

	options := make([]model.PromptOption, 0, len(channels))
	for _, ch := range channels {
		options = append(options, model.PromptOption{Value: ch.ID, Label: ch.Name})
	}
	return options, nil
}

// sessionError maps a missing session to ErrSessionNotFound and wraps anything else
func sessionError(err error, key model.ProvisionalKey) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrSessionNotFound, "wizard session is gone", goerr.V(ProvisionalKeyKey, key.String()))
	}
	return goerr.Wrap(err, "wizard step failed", goerr.V(ProvisionalKeyKey, key.String()))
}

// summarize renders rec with channel names looked up from the directory
func summarize(ctx context.Context, directory interfaces.Directory, rec *model.ActionRecord) (*model.ActionSummary, error) {
	ids := make([]string, 0, len(rec.WatchChannels)+len(rec.ReplyChannels))
	ids = append(ids, rec.WatchChannels...)
	ids = append(ids, rec.ReplyChannels...)

	names, err := directory.ChannelNames(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve channel names", goerr.V(ActionNameKey, rec.Name))
	}
	return model.NewActionSummary(rec, names), nil
}
