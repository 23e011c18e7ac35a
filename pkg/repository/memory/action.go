package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

type actionStore struct {
	mu          sync.RWMutex
	actions     map[string]*model.ActionRecord
	provisional map[model.ProvisionalKey]*model.ProvisionalRecord
	seq         int64
	now         func() time.Time
}

var _ interfaces.ActionStore = &actionStore{}

func newActionStore() *actionStore {
	return &actionStore{
		actions:     make(map[string]*model.ActionRecord),
		provisional: make(map[model.ProvisionalKey]*model.ProvisionalRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// nextKey must be called with the write lock held
func (s *actionStore) nextKey(initiator string) model.ProvisionalKey {
	s.seq++
	return model.ProvisionalKey{Initiator: initiator, Seq: s.seq}
}

func (s *actionStore) BeginProvisional(ctx context.Context, initiator string) (*model.ProvisionalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.NewProvisionalRecord(s.nextKey(initiator), s.now())
	s.provisional[p.Key] = p
	return p.Clone(), nil
}

func (s *actionStore) BeginEdit(ctx context.Context, initiator, name string) (*model.ProvisionalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.actions[name]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
	}

	p := model.NewProvisionalRecord(s.nextKey(initiator), s.now())
	p.Record = *rec.Clone()
	p.EditOf = name
	s.provisional[p.Key] = p
	return p.Clone(), nil
}

func (s *actionStore) GetProvisional(ctx context.Context, key model.ProvisionalKey) (*model.ProvisionalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.provisional[key]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
	}
	return p.Clone(), nil
}

func (s *actionStore) Get(ctx context.Context, name string) (*model.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.actions[name]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
	}
	return rec.Clone(), nil
}

func (s *actionStore) UpdateField(ctx context.Context, key model.ProvisionalKey, update model.FieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.provisional[key]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
	}

	next := p.Record.Clone()
	if err := next.Apply(update); err != nil {
		return err
	}
	p.Record = *next
	p.UpdatedAt = s.now()
	return nil
}

func (s *actionStore) CommitStep(ctx context.Context, key model.ProvisionalKey, c model.StepCommit) (*model.ProvisionalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.provisional[key]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
	}

	if err := p.Commit(c, s.now()); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *actionStore) Finalize(ctx context.Context, key model.ProvisionalKey, name string, policy types.ConflictPolicy) (*model.ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.provisional[key]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
	}

	rec, err := p.Finalized(name, s.now())
	if err != nil {
		return nil, err
	}

	if _, exists := s.actions[name]; exists && p.Replaces(name) && policy == types.ConflictPolicyReject {
		return nil, goerr.Wrap(interfaces.ErrConflict, "action name is taken", goerr.V(model.ActionNameKey, name))
	}

	if p.Renames(name) {
		delete(s.actions, p.EditOf)
	}
	delete(s.provisional, key)
	s.actions[name] = rec
	return rec.Clone(), nil
}

func (s *actionStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actions[name]; !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
	}
	delete(s.actions, name)
	return nil
}

func (s *actionStore) List(ctx context.Context) ([]*model.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*model.ActionRecord, 0, len(s.actions))
	for _, rec := range s.actions {
		records = append(records, rec.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Name < records[j].Name
	})
	return records, nil
}

func (s *actionStore) PruneProvisional(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, p := range s.provisional {
		if p.UpdatedAt.Before(before) {
			delete(s.provisional, key)
			count++
		}
	}
	return count, nil
}
