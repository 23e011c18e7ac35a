package usecase

import (
	"time"

	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

type UseCases struct {
	repo      interfaces.Repository
	directory interfaces.Directory
	sender    interfaces.Sender

	conflictPolicy  types.ConflictPolicy
	strictTimeInput bool
	location        *time.Location
	containment     types.Containment

	Wizard   *WizardUseCase
	Dispatch *DispatchUseCase
	Manage   *ManageUseCase
}

type Option func(*UseCases)

// WithConflictPolicy sets what finalizing under an existing name does
func WithConflictPolicy(policy types.ConflictPolicy) Option {
	return func(uc *UseCases) {
		uc.conflictPolicy = policy
	}
}

// WithStrictTimeInput makes the wizard reject time input that is not HHMM
func WithStrictTimeInput(strict bool) Option {
	return func(uc *UseCases) {
		uc.strictTimeInput = strict
	}
}

// WithLocation sets the timezone of the dispatch clock
func WithLocation(loc *time.Location) Option {
	return func(uc *UseCases) {
		uc.location = loc
	}
}

// WithContainment sets how a message time is matched against the day window
func WithContainment(c types.Containment) Option {
	return func(uc *UseCases) {
		uc.containment = c
	}
}

func New(repo interfaces.Repository, directory interfaces.Directory, sender interfaces.Sender, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:           repo,
		directory:      directory,
		sender:         sender,
		conflictPolicy: types.ConflictPolicyOverwrite,
		location:       time.Local,
		containment:    types.ContainmentRaw,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Wizard = NewWizardUseCase(repo.Action(), directory, uc.conflictPolicy, uc.strictTimeInput)
	uc.Dispatch = NewDispatchUseCase(repo.Action(), sender, uc.location, uc.containment)
	uc.Manage = NewManageUseCase(repo.Action(), directory, uc.Wizard)

	return uc
}
