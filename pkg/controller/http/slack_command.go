package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/utils/errutil"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// DefaultSetupCommand is the slash command that opens the management menu
const DefaultSetupCommand = "/setup"

// SlackCommandHandler answers slash commands
type SlackCommandHandler struct {
	command string
}

// NewSlackCommandHandler creates a handler for the given setup command. An empty command
// falls back to DefaultSetupCommand.
func NewSlackCommandHandler(command string) *SlackCommandHandler {
	if command == "" {
		command = DefaultSetupCommand
	}
	return &SlackCommandHandler{command: command}
}

// ServeHTTP handles Slack slash command requests
func (h *SlackCommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to parse slash command"), http.StatusBadRequest)
		return
	}

	logging.From(ctx).Info("slash command received",
		"command", cmd.Command,
		"user_id", cmd.UserID,
		"channel_id", cmd.ChannelID,
	)

	if cmd.Command != h.command {
		writeJSON(ctx, w, slack.Msg{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "Unknown command: " + cmd.Command,
		})
		return
	}

	writeJSON(ctx, w, ManagementMenu())
}
