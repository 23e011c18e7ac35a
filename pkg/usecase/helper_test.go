package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/repository/memory"
	"github.com/secmon-lab/autoreply/pkg/usecase"
)

type fakeDirectory struct {
	channels []*model.Channel
	roles    []*model.Role
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		channels: []*model.Channel{
			{ID: "C10", Name: "general"},
			{ID: "C20", Name: "support"},
			{ID: "C30", Name: "ops"},
		},
		roles: []*model.Role{
			{ID: "S1", Name: "oncall"},
		},
	}
}

func (d *fakeDirectory) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	return d.channels, d.err
}

func (d *fakeDirectory) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return d.roles, d.err
}

func (d *fakeDirectory) ChannelNames(ctx context.Context, ids []string) (map[string]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	names := make(map[string]string)
	for _, id := range ids {
		for _, ch := range d.channels {
			if ch.ID == id {
				names[id] = ch.Name
			}
		}
	}
	return names, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []*model.Reply
	failOn map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failOn: make(map[string]bool)}
}

var errSendFailed = errors.New("send failed")

func (s *fakeSender) Send(ctx context.Context, reply *model.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn[reply.ChannelID] {
		return errSendFailed
	}
	s.sent = append(s.sent, reply)
	return nil
}

func (s *fakeSender) Sent() []*model.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Reply(nil), s.sent...)
}

type testEnv struct {
	repo      *memory.Memory
	directory *fakeDirectory
	sender    *fakeSender
	uc        *usecase.UseCases
}

func newTestEnv(opts ...usecase.Option) *testEnv {
	repo := memory.New()
	directory := newFakeDirectory()
	sender := newFakeSender()

	opts = append([]usecase.Option{usecase.WithLocation(time.UTC)}, opts...)
	return &testEnv{
		repo:      repo,
		directory: directory,
		sender:    sender,
		uc:        usecase.New(repo, directory, sender, opts...),
	}
}

type actionInput struct {
	name         string
	dayMention   string
	nightMention string
	windows      usecase.TimeWindowsInput
	watch        []string
	reply        []string
	message      string
}

func defaultActionInput(name string) actionInput {
	return actionInput{
		name:         name,
		dayMention:   model.MentionEveryone,
		nightMention: model.MentionHere,
		windows: usecase.TimeWindowsInput{
			DayStart:   "0900",
			DayEnd:     "1759",
			NightStart: "1800",
			NightEnd:   "0859",
		},
		watch:   []string{"C10"},
		reply:   []string{"C20"},
		message: "hi",
	}
}

// runWizard walks the whole wizard for in and returns the final prompt
func runWizard(ctx context.Context, w *usecase.WizardUseCase, initiator string, in actionInput) (*model.Prompt, error) {
	p, err := w.Begin(ctx, initiator)
	if err != nil {
		return nil, err
	}
	return finishWizard(ctx, w, p.Key, in)
}

func finishWizard(ctx context.Context, w *usecase.WizardUseCase, key model.ProvisionalKey, in actionInput) (*model.Prompt, error) {
	if _, err := w.SubmitDayMention(ctx, key, in.dayMention); err != nil {
		return nil, err
	}
	if _, err := w.SubmitNightMention(ctx, key, in.nightMention); err != nil {
		return nil, err
	}
	if _, err := w.SubmitTimeWindows(ctx, key, in.windows); err != nil {
		return nil, err
	}
	if _, err := w.SubmitWatchChannels(ctx, key, in.watch); err != nil {
		return nil, err
	}
	if _, err := w.SubmitReplyChannels(ctx, key, in.reply); err != nil {
		return nil, err
	}
	return w.SubmitMessageAndName(ctx, key, in.message, in.name)
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 1, 2, hour, minute, 0, 0, time.UTC)
}
