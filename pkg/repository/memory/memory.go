package memory

import (
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	action *actionStore
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		action: newActionStore(),
	}
}

func (m *Memory) Action() interfaces.ActionStore {
	return m.action
}

func (m *Memory) Close() error {
	return nil
}
