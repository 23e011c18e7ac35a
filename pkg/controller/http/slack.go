package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/usecase"
	"github.com/secmon-lab/autoreply/pkg/utils/async"
	"github.com/secmon-lab/autoreply/pkg/utils/errutil"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
	"github.com/secmon-lab/autoreply/pkg/utils/safe"
	"github.com/slack-go/slack/slackevents"
)

// verifySlackSignature verifies the Slack request signature
// This is a pure function that can be used independently for testing
func verifySlackSignature(signingSecret, timestamp, signature string, body []byte) error {
	if timestamp == "" {
		return goerr.New("missing timestamp")
	}

	if signature == "" {
		return goerr.New("missing signature")
	}

	// Check timestamp to prevent replay attacks (within 5 minutes)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return goerr.Wrap(err, "invalid timestamp")
	}

	now := time.Now().Unix()
	if now-ts > 60*5 {
		return goerr.New("timestamp too old", goerr.V("timestamp", timestamp), goerr.V("now", now))
	}

	// Compute expected signature
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	if _, err := mac.Write([]byte(baseString)); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expectedSignature := "v0=" + hex.EncodeToString(mac.Sum(nil))

	// Compare signatures
	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return goerr.New("signature mismatch")
	}

	return nil
}

// SlackSignatureMiddleware creates a middleware that verifies Slack request signatures
func SlackSignatureMiddleware(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Read body
			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer func() {
				if err := r.Body.Close(); err != nil {
					logger := logging.From(ctx)
					logger.Error("failed to close request body", "error", err)
				}
			}()

			// Get headers
			timestamp := r.Header.Get("X-Slack-Request-Timestamp")
			signature := r.Header.Get("X-Slack-Signature")

			// Verify signature
			if err := verifySlackSignature(signingSecret, timestamp, signature, body); err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "slack signature verification failed"), http.StatusUnauthorized)
				return
			}

			// Restore the body for the handler
			r.Body = io.NopCloser(bytes.NewBuffer(body))

			next.ServeHTTP(w, r)
		})
	}
}

// skippedMessageSubTypes are message events that do not represent a newly posted message
var skippedMessageSubTypes = map[string]bool{
	"message_changed": true,
	"message_deleted": true,
}

// SlackWebhookHandler handles Slack Events API webhook requests
type SlackWebhookHandler struct {
	dispatchUC *usecase.DispatchUseCase
	now        func() time.Time
}

// NewSlackWebhookHandler creates a new Slack webhook handler
func NewSlackWebhookHandler(dispatchUC *usecase.DispatchUseCase) *SlackWebhookHandler {
	return &SlackWebhookHandler{
		dispatchUC: dispatchUC,
		now:        time.Now,
	}
}

// ServeHTTP handles Slack webhook requests
func (h *SlackWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Read body (already verified by middleware)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}

	// Parse event
	eventsAPIEvent, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slack event"), http.StatusBadRequest)
		return
	}

	// Handle different event types
	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		// URL Verification challenge
		var r *slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to unmarshal challenge"), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte(r.Challenge))
		return

	case slackevents.CallbackEvent:
		msg := h.inboundMessage(&eventsAPIEvent)

		// Return 200 immediately to satisfy Slack's 3-second timeout requirement
		w.WriteHeader(http.StatusOK)
		if msg == nil {
			return
		}

		eventID := uuid.NewString()
		logger := logging.From(ctx).With("event_id", eventID)

		// Process event asynchronously
		async.Dispatch(logging.With(ctx, logger), func(ctx context.Context) error {
			logging.From(ctx).Debug("processing slack message event",
				"team_id", msg.TeamID,
				"channel_id", msg.ChannelID,
				"user_id", msg.UserID,
				"bot", msg.AuthorIsBot,
			)

			if err := h.dispatchUC.HandleMessage(ctx, msg); err != nil {
				return goerr.Wrap(err, "failed to handle slack message", goerr.V("event_id", eventID))
			}

			return nil
		})

	default:
		// Unknown event type, log and return 200
		logger := logging.From(ctx)
		logger.Warn("unknown slack event type", "type", eventsAPIEvent.Type)
		w.WriteHeader(http.StatusOK)
	}
}

// inboundMessage converts a message callback into the dispatch input. It returns nil for
// events that are not newly posted messages.
func (h *SlackWebhookHandler) inboundMessage(event *slackevents.EventsAPIEvent) *model.InboundMessage {
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return nil
	}
	if skippedMessageSubTypes[ev.SubType] {
		return nil
	}

	return &model.InboundMessage{
		AuthorIsBot: ev.BotID != "" || ev.SubType == "bot_message",
		ChannelID:   ev.Channel,
		TeamID:      event.TeamID,
		UserID:      ev.User,
		At:          h.now(),
	}
}
