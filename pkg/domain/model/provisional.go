package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

const provisionalKeyPrefix = "temp_"

// ProvisionalKey identifies an action under construction. It combines the initiating user
// with a sequence number handed out by the store, and lives in a keyspace of its own.
type ProvisionalKey struct {
	Initiator string
	Seq       int64
}

// String renders the key as "temp_<initiator>_<seq>"
func (k ProvisionalKey) String() string {
	return provisionalKeyPrefix + k.Initiator + "_" + strconv.FormatInt(k.Seq, 10)
}

// IsZero reports whether the key was never assigned
func (k ProvisionalKey) IsZero() bool {
	return k.Initiator == "" && k.Seq == 0
}

// ParseProvisionalKey is the inverse of ProvisionalKey.String
func ParseProvisionalKey(s string) (ProvisionalKey, error) {
	rest, ok := strings.CutPrefix(s, provisionalKeyPrefix)
	if !ok {
		return ProvisionalKey{}, goerr.Wrap(ErrInvalidKey, "missing prefix", goerr.V(ProvisionalKeyKey, s))
	}

	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return ProvisionalKey{}, goerr.Wrap(ErrInvalidKey, "missing sequence", goerr.V(ProvisionalKeyKey, s))
	}

	seq, err := strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil || seq <= 0 {
		return ProvisionalKey{}, goerr.Wrap(ErrInvalidKey, "invalid sequence", goerr.V(ProvisionalKeyKey, s))
	}

	return ProvisionalKey{Initiator: rest[:idx], Seq: seq}, nil
}

// ProvisionalRecord is a wizard session: the partially built action and the step it is
// waiting for. EditOf names the finalized action being re-configured, if any.
type ProvisionalRecord struct {
	Key       ProvisionalKey
	Record    ActionRecord
	Step      types.WizardStep
	EditOf    string
	UpdatedAt time.Time
}

// NewProvisionalRecord starts a session at the first wizard step
func NewProvisionalRecord(key ProvisionalKey, now time.Time) *ProvisionalRecord {
	return &ProvisionalRecord{
		Key:       key,
		Step:      types.WizardStepAwaitDayMention,
		UpdatedAt: now,
	}
}

// StepCommit moves a session from one step to the next while applying field updates
type StepCommit struct {
	From    types.WizardStep
	To      types.WizardStep
	Updates []FieldUpdate
}

// Commit applies c if the session is currently at c.From. Nothing is changed on error.
func (p *ProvisionalRecord) Commit(c StepCommit, now time.Time) error {
	if p.Step != c.From {
		return goerr.Wrap(ErrStepOutOfOrder, "session is at a different step",
			goerr.V(ProvisionalKeyKey, p.Key.String()),
			goerr.V(StepKey, p.Step),
			goerr.V(ExpectedStepKey, c.From),
		)
	}

	next := p.Record.Clone()
	for _, u := range c.Updates {
		if err := next.Apply(u); err != nil {
			return err
		}
	}

	p.Record = *next
	p.Step = c.To
	p.UpdatedAt = now
	return nil
}

// Clone returns a deep copy
func (p *ProvisionalRecord) Clone() *ProvisionalRecord {
	if p == nil {
		return nil
	}
	c := *p
	c.Record = *p.Record.Clone()
	return &c
}

// Finalized builds the permanent record named name from the session. The session must be
// at the last wizard step and the result must pass Validate.
func (p *ProvisionalRecord) Finalized(name string, now time.Time) (*ActionRecord, error) {
	if p.Step != types.WizardStepAwaitMessageAndName {
		return nil, goerr.Wrap(ErrStepOutOfOrder, "session is not ready to finalize",
			goerr.V(ProvisionalKeyKey, p.Key.String()),
			goerr.V(StepKey, p.Step),
		)
	}

	rec := p.Record.Clone()
	rec.Name = name
	if err := rec.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot finalize session", goerr.V(ProvisionalKeyKey, p.Key.String()))
	}

	if p.EditOf == "" || rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec, nil
}

// Replaces reports whether finalizing as name supersedes an action other than the one
// being edited
func (p *ProvisionalRecord) Replaces(name string) bool {
	return p.EditOf != name
}

// Renames reports whether finalizing as name must remove the edited action
func (p *ProvisionalRecord) Renames(name string) bool {
	return p.EditOf != "" && p.EditOf != name
}
