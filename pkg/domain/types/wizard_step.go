package types

import "github.com/m-mizutani/goerr/v2"

// WizardStep is the state of an action configuration session
type WizardStep string

const (
	WizardStepAwaitDayMention     WizardStep = "await_day_mention"
	WizardStepAwaitNightMention   WizardStep = "await_night_mention"
	WizardStepAwaitTimeWindows    WizardStep = "await_time_windows"
	WizardStepAwaitWatchChannels  WizardStep = "await_watch_channels"
	WizardStepAwaitReplyChannels  WizardStep = "await_reply_channels"
	WizardStepAwaitMessageAndName WizardStep = "await_message_and_name"
	WizardStepFinalized           WizardStep = "finalized"
)

// AllWizardSteps returns every step in transition order
func AllWizardSteps() []WizardStep {
	return []WizardStep{
		WizardStepAwaitDayMention,
		WizardStepAwaitNightMention,
		WizardStepAwaitTimeWindows,
		WizardStepAwaitWatchChannels,
		WizardStepAwaitReplyChannels,
		WizardStepAwaitMessageAndName,
		WizardStepFinalized,
	}
}

// Index returns the 1-based position of the step, or 0 for an unknown step
func (s WizardStep) Index() int {
	for i, step := range AllWizardSteps() {
		if step == s {
			return i + 1
		}
	}
	return 0
}

// Next returns the step that follows s. The finalized step is terminal and returns itself.
func (s WizardStep) Next() WizardStep {
	steps := AllWizardSteps()
	idx := s.Index()
	if idx == 0 || idx >= len(steps) {
		return s
	}
	return steps[idx]
}

// IsValid checks if the step is known
func (s WizardStep) IsValid() bool {
	return s.Index() > 0
}

// IsTerminal reports whether no further input is accepted
func (s WizardStep) IsTerminal() bool {
	return s == WizardStepFinalized
}

func (s WizardStep) String() string {
	return string(s)
}

// ParseWizardStep parses a string into a WizardStep
func ParseWizardStep(s string) (WizardStep, error) {
	step := WizardStep(s)
	if !step.IsValid() {
		return "", goerr.New("invalid wizard step", goerr.V("step", s))
	}
	return step, nil
}
