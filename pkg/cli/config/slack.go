package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/autoreply/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// DefaultSetupCommand is the slash command registered for the management menu
const DefaultSetupCommand = "/setup"

type Slack struct {
	botToken      string
	signingSecret string
	command       string
	apiURL        string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("AUTOREPLY_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for webhook verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("AUTOREPLY_SLACK_SIGNING_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-setup-command",
			Usage:       "Slash command that opens the auto-reply settings",
			Category:    "Slack",
			Value:       DefaultSetupCommand,
			Destination: &x.command,
			Sources:     cli.EnvVars("AUTOREPLY_SLACK_SETUP_COMMAND"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL (for testing against a local endpoint)",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("AUTOREPLY_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.String("command", x.command),
	)
}

// Validate checks that the credentials needed to talk to Slack are present
func (x *Slack) Validate() error {
	if x.botToken == "" {
		return goerr.Wrap(ErrMissingOption, "slack bot token is required", goerr.V(OptionKey, "slack-bot-token"))
	}
	if x.signingSecret == "" {
		return goerr.Wrap(ErrMissingOption, "slack signing secret is required", goerr.V(OptionKey, "slack-signing-secret"))
	}
	return nil
}

// Configure creates the Slack API client
func (x *Slack) Configure() (slacksvc.Service, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}

	var opts []slacksvc.Option
	if x.apiURL != "" {
		opts = append(opts, slacksvc.WithAPIURL(x.apiURL))
	}

	svc, err := slacksvc.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}

// SigningSecret returns the Slack signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// SetupCommand returns the slash command that opens the management menu
func (x *Slack) SetupCommand() string {
	if x.command == "" {
		return DefaultSetupCommand
	}
	return x.command
}
