package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/repository/memory"
	slacksvc "github.com/secmon-lab/autoreply/pkg/service/slack"
	"github.com/secmon-lab/autoreply/pkg/usecase"
	goslack "github.com/slack-go/slack"
)

const testSigningSecret = "test-signing-secret"

// computeSlackSignature computes the Slack signature for testing
func computeSlackSignature(signingSecret, timestamp, body string) string {
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

func signedRequest(t *testing.T, path, contentType string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", computeSlackSignature(testSigningSecret, timestamp, string(body)))
	return req
}

type fakeDirectory struct{}

func (fakeDirectory) ListChannels(ctx context.Context) ([]*model.Channel, error) {
	return []*model.Channel{
		{ID: "C10", Name: "general"},
		{ID: "C20", Name: "support"},
	}, nil
}

func (fakeDirectory) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return []*model.Role{{ID: "S1", Name: "@oncall"}}, nil
}

func (d fakeDirectory) ChannelNames(ctx context.Context, ids []string) (map[string]string, error) {
	channels, _ := d.ListChannels(ctx)
	names := make(map[string]string)
	for _, id := range ids {
		for _, ch := range channels {
			if ch.ID == id {
				names[id] = ch.Name
			}
		}
	}
	return names, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []*model.Reply
}

func (s *fakeSender) Send(ctx context.Context, reply *model.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, reply)
	return nil
}

func (s *fakeSender) Sent() []*model.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Reply(nil), s.sent...)
}

type viewCall struct {
	id   string
	view goslack.ModalViewRequest
}

// fakeSlackService records the modals the handler opens and updates
type fakeSlackService struct {
	mu      sync.Mutex
	opened  []viewCall
	updated []viewCall
}

var _ slacksvc.Service = (*fakeSlackService)(nil)

func (s *fakeSlackService) ListJoinedChannels(ctx context.Context) ([]slacksvc.Channel, error) {
	return nil, nil
}

func (s *fakeSlackService) GetChannelNames(ctx context.Context, ids []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *fakeSlackService) ListUserGroups(ctx context.Context) ([]slacksvc.UserGroup, error) {
	return nil, nil
}

func (s *fakeSlackService) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	return "1234567890.000100", nil
}

func (s *fakeSlackService) OpenView(ctx context.Context, triggerID string, view goslack.ModalViewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, viewCall{id: triggerID, view: view})
	return nil
}

func (s *fakeSlackService) UpdateView(ctx context.Context, viewID string, view goslack.ModalViewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, viewCall{id: viewID, view: view})
	return nil
}

type testEnv struct {
	sender *fakeSender
	slack  *fakeSlackService
	uc     *usecase.UseCases
}

func newTestEnv(opts ...usecase.Option) *testEnv {
	sender := &fakeSender{}
	opts = append([]usecase.Option{usecase.WithLocation(time.UTC)}, opts...)
	return &testEnv{
		sender: sender,
		slack:  &fakeSlackService{},
		uc:     usecase.New(memory.New(), fakeDirectory{}, sender, opts...),
	}
}

// createAction stores an action watching C10 and replying in C20
func (e *testEnv) createAction(t *testing.T, name string) {
	t.Helper()
	ctx := context.Background()
	w := e.uc.Wizard

	p, err := w.Begin(ctx, "U001")
	gt.NoError(t, err).Required()
	_, err = w.SubmitDayMention(ctx, p.Key, model.MentionEveryone)
	gt.NoError(t, err).Required()
	_, err = w.SubmitNightMention(ctx, p.Key, model.MentionHere)
	gt.NoError(t, err).Required()
	_, err = w.SubmitTimeWindows(ctx, p.Key, usecase.TimeWindowsInput{
		DayStart: "0900", DayEnd: "1759", NightStart: "1800", NightEnd: "0859",
	})
	gt.NoError(t, err).Required()
	_, err = w.SubmitWatchChannels(ctx, p.Key, []string{"C10"})
	gt.NoError(t, err).Required()
	_, err = w.SubmitReplyChannels(ctx, p.Key, []string{"C20"})
	gt.NoError(t, err).Required()
	_, err = w.SubmitMessageAndName(ctx, p.Key, "we are on it", name)
	gt.NoError(t, err).Required()
}

func interactionRequest(t *testing.T, callback goslack.InteractionCallback) *http.Request {
	t.Helper()
	payloadJSON, err := json.Marshal(&callback)
	gt.NoError(t, err).Required()

	form := url.Values{"payload": {string(payloadJSON)}}
	req := httptest.NewRequest(http.MethodPost, "/hooks/slack/interaction", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// submissionResponse is the part of a view submission response the tests look at
type submissionResponse struct {
	ResponseAction string            `json:"response_action"`
	Errors         map[string]string `json:"errors"`
	View           *struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
	} `json:"view"`
}

func decodeSubmission(t *testing.T, rec *httptest.ResponseRecorder) *submissionResponse {
	t.Helper()
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	var resp submissionResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	return &resp
}
