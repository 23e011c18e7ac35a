package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	slacksvc "github.com/secmon-lab/autoreply/pkg/service/slack"
	"github.com/secmon-lab/autoreply/pkg/usecase"
	"github.com/secmon-lab/autoreply/pkg/utils/errutil"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
	"github.com/secmon-lab/autoreply/pkg/utils/safe"
	"github.com/slack-go/slack"
)

// User facing texts of the interaction flow
const (
	noticeSessionGone = "This setup session is no longer active. Run the setup command again."
	noticeFailed      = "Something went wrong. Please try again."
	errTimeFormat     = "Enter the time as 4 digits, e.g. 0900"
	errNameTaken      = "An action with this name already exists"
	errNameRequired   = "Enter a name for the action"
)

// SlackInteractionHandler handles Slack interactive component payloads: menu buttons and
// modal submissions of the configuration wizard
type SlackInteractionHandler struct {
	wizardUC     *usecase.WizardUseCase
	manageUC     *usecase.ManageUseCase
	slackService slacksvc.Service
}

// NewSlackInteractionHandler creates a new Slack interaction handler
func NewSlackInteractionHandler(wizardUC *usecase.WizardUseCase, manageUC *usecase.ManageUseCase, slackService slacksvc.Service) *SlackInteractionHandler {
	return &SlackInteractionHandler{
		wizardUC:     wizardUC,
		manageUC:     manageUC,
		slackService: slackService,
	}
}

// ServeHTTP handles Slack interaction webhook requests
func (h *SlackInteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Slack sends interaction payloads as application/x-www-form-urlencoded
	// with a "payload" field containing JSON
	payload := r.FormValue("payload")
	if payload == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("missing payload field in interaction request"), http.StatusBadRequest)
		return
	}

	var callback slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &callback); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse interaction payload"), http.StatusBadRequest)
		return
	}

	ctx = logging.With(ctx, logging.From(ctx).With("user_id", callback.User.ID, "interaction", callback.Type))

	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		for _, action := range callback.ActionCallback.BlockActions {
			if err := h.handleBlockAction(ctx, &callback, action); err != nil {
				errutil.Handle(ctx, err, "failed to handle slack block action")
			}
		}
		w.WriteHeader(http.StatusOK)

	case slack.InteractionTypeViewSubmission:
		resp := h.handleViewSubmission(ctx, &callback)
		if resp == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(ctx, w, resp)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackInteractionHandler) handleBlockAction(ctx context.Context, callback *slack.InteractionCallback, action *slack.BlockAction) error {
	userID := callback.User.ID

	switch action.ActionID {
	case ActionIDCreate:
		prompt, err := h.wizardUC.Begin(ctx, userID)
		if err != nil {
			return err
		}
		return h.slackService.OpenView(ctx, callback.TriggerID, WizardView(prompt))

	case ActionIDEdit, ActionIDDelete, ActionIDInspect:
		names, err := h.manageUC.ListNames(ctx)
		if err != nil {
			return err
		}
		callbackID := map[string]string{
			ActionIDEdit:    CallbackIDSelectEdit,
			ActionIDDelete:  CallbackIDSelectDelete,
			ActionIDInspect: CallbackIDSelectInspect,
		}[action.ActionID]
		return h.slackService.OpenView(ctx, callback.TriggerID, ActionSelectView(callbackID, names))

	case ActionIDManageEdit:
		prompt, err := h.manageUC.Edit(ctx, userID, action.Value)
		if errors.Is(err, usecase.ErrActionNotFound) {
			return h.slackService.UpdateView(ctx, callback.View.ID, NoticeView(notFoundText(action.Value)))
		}
		if err != nil {
			return err
		}
		return h.slackService.UpdateView(ctx, callback.View.ID, WizardView(prompt))

	case ActionIDManageDelete:
		deleted, err := h.manageUC.Delete(ctx, action.Value)
		if err != nil {
			return err
		}
		return h.slackService.UpdateView(ctx, callback.View.ID, NoticeView(deletedText(action.Value, deleted)))

	default:
		// Unknown action ID, skip
		return nil
	}
}

// handleViewSubmission answers a modal submission. A nil response closes the modal.
func (h *SlackInteractionHandler) handleViewSubmission(ctx context.Context, callback *slack.InteractionCallback) *slack.ViewSubmissionResponse {
	view := callback.View
	var values map[string]map[string]slack.BlockAction
	if view.State != nil {
		values = view.State.Values
	}

	switch view.CallbackID {
	case CallbackIDSelectEdit:
		name := selectedValue(values, BlockIDAction)
		prompt, err := h.manageUC.Edit(ctx, callback.User.ID, name)
		if errors.Is(err, usecase.ErrActionNotFound) {
			return updateWith(NoticeView(notFoundText(name)))
		}
		if err != nil {
			return failed(ctx, err)
		}
		return updateWith(WizardView(prompt))

	case CallbackIDSelectDelete:
		name := selectedValue(values, BlockIDAction)
		deleted, err := h.manageUC.Delete(ctx, name)
		if err != nil {
			return failed(ctx, err)
		}
		return updateWith(NoticeView(deletedText(name, deleted)))

	case CallbackIDSelectInspect:
		name := selectedValue(values, BlockIDAction)
		summary, err := h.manageUC.Inspect(ctx, name)
		if errors.Is(err, usecase.ErrActionNotFound) {
			return updateWith(NoticeView(notFoundText(name)))
		}
		if err != nil {
			return failed(ctx, err)
		}
		return updateWith(SummaryView(summary, "Action"))
	}

	step, err := types.ParseWizardStep(view.CallbackID)
	if err != nil {
		logging.From(ctx).Warn("unknown view submission", "callback_id", view.CallbackID)
		return nil
	}

	key, err := model.ParseProvisionalKey(view.PrivateMetadata)
	if err != nil {
		return failed(ctx, err)
	}

	prompt, err := h.submitStep(ctx, step, key, values)
	if err != nil {
		return h.stepError(ctx, step, values, err)
	}
	return updateWith(WizardView(prompt))
}

func (h *SlackInteractionHandler) submitStep(ctx context.Context, step types.WizardStep, key model.ProvisionalKey, values map[string]map[string]slack.BlockAction) (*model.Prompt, error) {
	switch step {
	case types.WizardStepAwaitDayMention:
		return h.wizardUC.SubmitDayMention(ctx, key, selectedValue(values, BlockIDMention))
	case types.WizardStepAwaitNightMention:
		return h.wizardUC.SubmitNightMention(ctx, key, selectedValue(values, BlockIDMention))
	case types.WizardStepAwaitTimeWindows:
		return h.wizardUC.SubmitTimeWindows(ctx, key, usecase.TimeWindowsInput{
			DayStart:   textValue(values, BlockIDDayStart),
			DayEnd:     textValue(values, BlockIDDayEnd),
			NightStart: textValue(values, BlockIDNightStart),
			NightEnd:   textValue(values, BlockIDNightEnd),
		})
	case types.WizardStepAwaitWatchChannels:
		return h.wizardUC.SubmitWatchChannels(ctx, key, selectedValues(values, BlockIDChannels))
	case types.WizardStepAwaitReplyChannels:
		return h.wizardUC.SubmitReplyChannels(ctx, key, selectedValues(values, BlockIDChannels))
	case types.WizardStepAwaitMessageAndName:
		return h.wizardUC.SubmitMessageAndName(ctx, key, textValue(values, BlockIDMessage), textValue(values, BlockIDName))
	}
	return nil, goerr.New("no submission for step", goerr.V("step", step))
}

// stepError turns a wizard failure into field errors where the user can fix the input,
// and into a notice otherwise
func (h *SlackInteractionHandler) stepError(ctx context.Context, step types.WizardStep, values map[string]map[string]slack.BlockAction, err error) *slack.ViewSubmissionResponse {
	switch {
	case errors.Is(err, model.ErrInvalidTime):
		fieldErrors := make(map[string]string)
		for _, blockID := range []string{BlockIDDayStart, BlockIDDayEnd, BlockIDNightStart, BlockIDNightEnd} {
			if model.ValidateHHMM(textValue(values, blockID)) != nil {
				fieldErrors[blockID] = errTimeFormat
			}
		}
		return slack.NewErrorsViewSubmissionResponse(fieldErrors)

	case errors.Is(err, usecase.ErrNameTaken):
		return slack.NewErrorsViewSubmissionResponse(map[string]string{BlockIDName: errNameTaken})

	case errors.Is(err, model.ErrIncomplete) && step == types.WizardStepAwaitMessageAndName && textValue(values, BlockIDName) == "":
		return slack.NewErrorsViewSubmissionResponse(map[string]string{BlockIDName: errNameRequired})

	case errors.Is(err, model.ErrStepOutOfOrder), errors.Is(err, usecase.ErrSessionNotFound):
		logging.From(ctx).Info("stale wizard submission", "step", step, "error", err.Error())
		return updateWith(NoticeView(noticeSessionGone))
	}

	return failed(ctx, err)
}

func failed(ctx context.Context, err error) *slack.ViewSubmissionResponse {
	errutil.Handle(ctx, err, "failed to handle slack view submission")
	return updateWith(NoticeView(noticeFailed))
}

func updateWith(view slack.ModalViewRequest) *slack.ViewSubmissionResponse {
	return slack.NewUpdateViewSubmissionResponse(&view)
}

func selectedValue(values map[string]map[string]slack.BlockAction, blockID string) string {
	return values[blockID][ElementIDValue].SelectedOption.Value
}

func selectedValues(values map[string]map[string]slack.BlockAction, blockID string) []string {
	options := values[blockID][ElementIDValue].SelectedOptions
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.Value)
	}
	return ids
}

func textValue(values map[string]map[string]slack.BlockAction, blockID string) string {
	return values[blockID][ElementIDValue].Value
}

func notFoundText(name string) string {
	return "Action *" + name + "* was not found."
}

func deletedText(name string, deleted bool) string {
	if !deleted {
		return notFoundText(name)
	}
	return "Deleted action *" + name + "*."
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	safe.Write(ctx, w, data)
}
