package model

import "github.com/secmon-lab/autoreply/pkg/domain/types"

// PromptOption is one choice of a selection prompt
type PromptOption struct {
	Value string
	Label string
}

// Prompt describes what the wizard asks next. For the terminal step it carries the
// finalized action's Name and Summary instead of a question.
type Prompt struct {
	Step    types.WizardStep
	Key     ProvisionalKey
	Title   string
	Options []PromptOption

	// Record holds the values collected so far, used to prefill the edit flow
	Record *ActionRecord
	EditOf string

	Summary *ActionSummary
	Name    string
}

// Done reports whether the wizard has finished
func (p *Prompt) Done() bool {
	return p.Step.IsTerminal()
}
