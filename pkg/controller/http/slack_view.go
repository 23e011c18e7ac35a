package http

import (
	"strconv"
	"strings"

	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	slacksvc "github.com/secmon-lab/autoreply/pkg/service/slack"
	"github.com/slack-go/slack"
)

// Action IDs of the buttons the bot renders
const (
	ActionIDCreate       = "ar_create"
	ActionIDEdit         = "ar_edit"
	ActionIDDelete       = "ar_delete"
	ActionIDInspect      = "ar_inspect"
	ActionIDManageEdit   = "ar_manage_edit"
	ActionIDManageDelete = "ar_manage_delete"
)

// Callback IDs of the action picker modals. Wizard modals use the step name.
const (
	CallbackIDSelectEdit    = "ar_select_edit"
	CallbackIDSelectDelete  = "ar_select_delete"
	CallbackIDSelectInspect = "ar_select_inspect"
	CallbackIDNotice        = "ar_notice"
	CallbackIDSummary       = "ar_summary"
)

// Block and element IDs inside the modals
const (
	BlockIDMention    = "mention"
	BlockIDChannels   = "channels"
	BlockIDDayStart   = "day_start"
	BlockIDDayEnd     = "day_end"
	BlockIDNightStart = "night_start"
	BlockIDNightEnd   = "night_end"
	BlockIDMessage    = "message"
	BlockIDName       = "name"
	BlockIDAction     = "action"

	ElementIDValue = "value"
)

const (
	modalTitle = "Auto-reply"

	// Slack refuses select menus with more options than this
	maxSelectOptions = 100

	timeInputLength = 4
)

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}

func markdownText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, s, false, false)
}

func newModal(callbackID, title, privateMetadata string, submit string, blocks ...slack.Block) slack.ModalViewRequest {
	view := slack.ModalViewRequest{
		Type:            slack.VTModal,
		Title:           plainText(title),
		Close:           plainText("Close"),
		CallbackID:      callbackID,
		PrivateMetadata: privateMetadata,
		Blocks:          slack.Blocks{BlockSet: blocks},
	}
	if submit != "" {
		view.Submit = plainText(submit)
	}
	return view
}

// ManagementMenu is the ephemeral reply to the setup command
func ManagementMenu() slack.Msg {
	return slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         "Auto-reply settings",
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(markdownText("*Auto-reply settings*\nWhat would you like to do?"), nil, nil),
			slack.NewActionBlock("ar_menu",
				slack.NewButtonBlockElement(ActionIDCreate, "", plainText("Create")).WithStyle(slack.StylePrimary),
				slack.NewButtonBlockElement(ActionIDEdit, "", plainText("Edit")),
				slack.NewButtonBlockElement(ActionIDDelete, "", plainText("Delete")).WithStyle(slack.StyleDanger),
				slack.NewButtonBlockElement(ActionIDInspect, "", plainText("Show settings")),
			),
		}},
	}
}

// WizardView renders the modal for a wizard prompt
func WizardView(p *model.Prompt) slack.ModalViewRequest {
	if p.Done() {
		return SummaryView(p.Summary, "Saved")
	}

	title := modalTitle + " (" + strconv.Itoa(p.Step.Index()) + "/6)"
	header := slack.NewSectionBlock(markdownText("*"+p.Title+"*"), nil, nil)
	submit := "Next"

	var blocks []slack.Block
	switch p.Step {
	case types.WizardStepAwaitDayMention, types.WizardStepAwaitNightMention:
		current := p.Record.DayMention
		if p.Step == types.WizardStepAwaitNightMention {
			current = p.Record.NightMention
		}
		blocks = []slack.Block{header, mentionInput(p.Options, current)}

	case types.WizardStepAwaitTimeWindows:
		blocks = []slack.Block{
			header,
			timeInput(BlockIDDayStart, "Day start (HHMM)", "0900", p.Record.DayWindow.Start),
			timeInput(BlockIDDayEnd, "Day end (HHMM)", "1759", p.Record.DayWindow.End),
			timeInput(BlockIDNightStart, "Night start (HHMM)", "1800", p.Record.NightWindow.Start),
			timeInput(BlockIDNightEnd, "Night end (HHMM)", "0859", p.Record.NightWindow.End),
		}

	case types.WizardStepAwaitWatchChannels:
		blocks = []slack.Block{header, channelsInput(p.Options, p.Record.WatchChannels, "Select channels to watch")}

	case types.WizardStepAwaitReplyChannels:
		blocks = []slack.Block{header, channelsInput(p.Options, p.Record.ReplyChannels, "Select channels to reply in")}

	case types.WizardStepAwaitMessageAndName:
		message := slack.NewPlainTextInputBlockElement(nil, ElementIDValue)
		message.Multiline = true
		message.InitialValue = p.Record.Message

		name := slack.NewPlainTextInputBlockElement(nil, ElementIDValue)
		name.InitialValue = p.Name

		blocks = []slack.Block{
			header,
			slack.NewInputBlock(BlockIDMessage, plainText("Reply message"), nil, message),
			slack.NewInputBlock(BlockIDName, plainText("Action name"), nil, name),
		}
		submit = "Save"
	}

	return newModal(p.Step.String(), title, p.Key.String(), submit, blocks...)
}

func toOptions(options []model.PromptOption) []*slack.OptionBlockObject {
	if len(options) > maxSelectOptions {
		options = options[:maxSelectOptions]
	}
	result := make([]*slack.OptionBlockObject, 0, len(options))
	for _, o := range options {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		result = append(result, slack.NewOptionBlockObject(o.Value, plainText(label), nil))
	}
	return result
}

func findOption(options []*slack.OptionBlockObject, value string) *slack.OptionBlockObject {
	for _, o := range options {
		if o.Value == value {
			return o
		}
	}
	return nil
}

func mentionInput(options []model.PromptOption, current string) *slack.InputBlock {
	opts := toOptions(options)
	sel := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Select a mention"), ElementIDValue, opts...)
	if o := findOption(opts, current); o != nil {
		sel.InitialOption = o
	}
	return slack.NewInputBlock(BlockIDMention, plainText("Mention"), nil, sel)
}

func channelsInput(options []model.PromptOption, current []string, placeholder string) *slack.InputBlock {
	opts := toOptions(options)
	sel := slack.NewOptionsMultiSelectBlockElement(slack.MultiOptTypeStatic, plainText(placeholder), ElementIDValue, opts...)
	for _, id := range current {
		if o := findOption(opts, id); o != nil {
			sel.InitialOptions = append(sel.InitialOptions, o)
		}
	}
	return slack.NewInputBlock(BlockIDChannels, plainText("Channels"), nil, sel)
}

func timeInput(blockID, label, placeholder, current string) *slack.InputBlock {
	input := slack.NewPlainTextInputBlockElement(plainText(placeholder), ElementIDValue)
	input.MaxLength = timeInputLength
	input.InitialValue = current
	return slack.NewInputBlock(blockID, plainText(label), nil, input)
}

// ActionSelectView asks which action to edit, delete or inspect
func ActionSelectView(callbackID string, names []string) slack.ModalViewRequest {
	if len(names) == 0 {
		return NoticeView("No auto-reply actions are configured yet.")
	}

	options := make([]model.PromptOption, 0, len(names))
	for _, name := range names {
		options = append(options, model.PromptOption{Value: name, Label: name})
	}

	sel := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Select an action"), ElementIDValue, toOptions(options)...)
	submit := "Show"
	switch callbackID {
	case CallbackIDSelectEdit:
		submit = "Edit"
	case CallbackIDSelectDelete:
		submit = "Delete"
	}

	return newModal(callbackID, modalTitle, "", submit,
		slack.NewInputBlock(BlockIDAction, plainText("Action"), nil, sel),
	)
}

// SummaryView shows an action with buttons to edit or delete it
func SummaryView(s *model.ActionSummary, heading string) slack.ModalViewRequest {
	lines := []string{
		"*" + heading + ": " + s.Name + "*",
		"*Watch channels:* " + channelList(s.WatchChannels),
		"*Reply channels:* " + channelList(s.ReplyChannels),
		"*Day mention:* " + mentionLabel(s.DayMention),
		"*Night mention:* " + mentionLabel(s.NightMention),
		"*Day window:* " + s.DayWindow,
		"*Night window:* " + s.NightWindow,
		"*Message:*\n" + s.Message,
	}

	return newModal(CallbackIDSummary, modalTitle, s.Name, "",
		slack.NewSectionBlock(markdownText(strings.Join(lines, "\n")), nil, nil),
		slack.NewActionBlock("ar_manage",
			slack.NewButtonBlockElement(ActionIDManageEdit, s.Name, plainText("Edit")).WithStyle(slack.StylePrimary),
			slack.NewButtonBlockElement(ActionIDManageDelete, s.Name, plainText("Delete")).WithStyle(slack.StyleDanger),
		),
	)
}

// NoticeView is a modal that only shows text
func NoticeView(text string) slack.ModalViewRequest {
	return newModal(CallbackIDNotice, modalTitle, "", "",
		slack.NewSectionBlock(markdownText(text), nil, nil),
	)
}

func channelList(names []string) string {
	if len(names) == 0 {
		return "unset"
	}
	labels := make([]string, 0, len(names))
	for _, n := range names {
		labels = append(labels, "#"+n)
	}
	return strings.Join(labels, ", ")
}

// mentionLabel shows a stored mention as Slack renders it, without notifying anyone
func mentionLabel(mention string) string {
	switch mention {
	case "unset", model.MentionEveryone, model.MentionHere:
		return mention
	}
	return slacksvc.FormatMention(mention)
}
