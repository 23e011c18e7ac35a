package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

// Store errors shared by every backend
var (
	ErrNotFound = goerr.New("not found")
	ErrConflict = goerr.New("action name already exists")
)

// ActionStore keeps finalized actions and wizard sessions. The two live in separate
// keyspaces: a finalized action is addressed by its name, a session by its ProvisionalKey.
type ActionStore interface {
	// BeginProvisional creates an empty session for initiator with a fresh key
	BeginProvisional(ctx context.Context, initiator string) (*model.ProvisionalRecord, error)

	// BeginEdit creates a session holding a copy of the finalized action name.
	// The finalized action is not touched until the session is finalized.
	BeginEdit(ctx context.Context, initiator, name string) (*model.ProvisionalRecord, error)

	// GetProvisional returns a session, or ErrNotFound
	GetProvisional(ctx context.Context, key model.ProvisionalKey) (*model.ProvisionalRecord, error)

	// Get returns a finalized action, or ErrNotFound
	Get(ctx context.Context, name string) (*model.ActionRecord, error)

	// UpdateField merges a single field into a session
	UpdateField(ctx context.Context, key model.ProvisionalKey, update model.FieldUpdate) error

	// CommitStep applies a step transition atomically. It fails with
	// model.ErrStepOutOfOrder if the session is not at c.From.
	CommitStep(ctx context.Context, key model.ProvisionalKey, c model.StepCommit) (*model.ProvisionalRecord, error)

	// Finalize promotes the session to a finalized action called name and removes the
	// session. An existing action with the same name is replaced or rejected according
	// to policy. When the session edits an action under another name, that action is removed.
	Finalize(ctx context.Context, key model.ProvisionalKey, name string, policy types.ConflictPolicy) (*model.ActionRecord, error)

	// Remove deletes a finalized action, or returns ErrNotFound
	Remove(ctx context.Context, name string) error

	// List returns every finalized action ordered by name
	List(ctx context.Context) ([]*model.ActionRecord, error)

	// PruneProvisional deletes sessions not updated since before and returns how many
	PruneProvisional(ctx context.Context, before time.Time) (int, error)
}
