package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
)

// ManageUseCase backs the /setup menu: list, delete, inspect and edit
type ManageUseCase struct {
	store     interfaces.ActionStore
	directory interfaces.Directory
	wizard    *WizardUseCase
}

func NewManageUseCase(store interfaces.ActionStore, directory interfaces.Directory, wizard *WizardUseCase) *ManageUseCase {
	return &ManageUseCase{
		store:     store,
		directory: directory,
		wizard:    wizard,
	}
}

// ListNames returns the finalized action names in a stable order
func (uc *ManageUseCase) ListNames(ctx context.Context) ([]string, error) {
	records, err := uc.store.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions")
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names, nil
}

// Delete removes the action name. It reports false without error when there was nothing
// to delete.
func (uc *ManageUseCase) Delete(ctx context.Context, name string) (bool, error) {
	if err := uc.store.Remove(ctx, name); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to delete action", goerr.V(ActionNameKey, name))
	}

	logging.From(ctx).Info("action deleted", "action", name)
	return true, nil
}

// Inspect renders the action name for display
func (uc *ManageUseCase) Inspect(ctx context.Context, name string) (*model.ActionSummary, error) {
	rec, err := uc.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrActionNotFound, "cannot inspect action", goerr.V(ActionNameKey, name))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V(ActionNameKey, name))
	}

	return summarize(ctx, uc.directory, rec)
}

// Edit starts the wizard against a copy of the action name
func (uc *ManageUseCase) Edit(ctx context.Context, initiator, name string) (*model.Prompt, error) {
	return uc.wizard.BeginEdit(ctx, initiator, name)
}
