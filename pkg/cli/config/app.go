package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"github.com/secmon-lab/autoreply/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Defaults for the session sweeper
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// File is the layout of the optional TOML configuration file
type File struct {
	Dispatch DispatchFile `toml:"dispatch"`
	Wizard   WizardFile   `toml:"wizard"`
}

// DispatchFile is the [dispatch] table
type DispatchFile struct {
	Timezone    string `toml:"timezone"`
	Containment string `toml:"containment"`
}

// WizardFile is the [wizard] table. Durations use time.ParseDuration syntax such as "30m".
type WizardFile struct {
	OnConflict      string `toml:"on_conflict"`
	StrictTimeInput *bool  `toml:"strict_time_input"`
	SessionTTL      string `toml:"session_ttl"`
	SweepInterval   string `toml:"sweep_interval"`
}

// LoadFile reads and validates a TOML configuration file
func LoadFile(path string) (*File, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config", goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	var settings Settings
	if err := settings.apply(&file); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// Settings are the resolved runtime options of the auto-reply engine
type Settings struct {
	Location        *time.Location
	Containment     types.Containment
	ConflictPolicy  types.ConflictPolicy
	StrictTimeInput bool
	SessionTTL      time.Duration
	SweepInterval   time.Duration
}

func defaultSettings() *Settings {
	return &Settings{
		Location:       time.Local,
		Containment:    types.ContainmentRaw,
		ConflictPolicy: types.ConflictPolicyOverwrite,
		SessionTTL:     DefaultSessionTTL,
		SweepInterval:  DefaultSweepInterval,
	}
}

func (s Settings) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("timezone", s.Location.String()),
		slog.String("containment", s.Containment.String()),
		slog.String("on_conflict", s.ConflictPolicy.String()),
		slog.Bool("strict_time_input", s.StrictTimeInput),
		slog.Duration("session_ttl", s.SessionTTL),
		slog.Duration("sweep_interval", s.SweepInterval),
	)
}

// UseCaseOptions converts the settings into use case options
func (s *Settings) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithLocation(s.Location),
		usecase.WithContainment(s.Containment),
		usecase.WithConflictPolicy(s.ConflictPolicy),
		usecase.WithStrictTimeInput(s.StrictTimeInput),
	}
}

func (s *Settings) setTimezone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "unknown timezone", goerr.V("timezone", name), goerr.V("error", err.Error()))
	}
	s.Location = loc
	return nil
}

func (s *Settings) setContainment(value string) error {
	if value == "" {
		return nil
	}
	c, err := types.ParseContainment(value)
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid containment", goerr.V("containment", value))
	}
	s.Containment = c
	return nil
}

func (s *Settings) setConflictPolicy(value string) error {
	if value == "" {
		return nil
	}
	p, err := types.ParseConflictPolicy(value)
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid conflict policy", goerr.V("on_conflict", value))
	}
	s.ConflictPolicy = p
	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V(OptionKey, name), goerr.V("value", value))
	}
	return d, nil
}

func (s *Settings) apply(file *File) error {
	if err := s.setTimezone(file.Dispatch.Timezone); err != nil {
		return err
	}
	if err := s.setContainment(file.Dispatch.Containment); err != nil {
		return err
	}
	if err := s.setConflictPolicy(file.Wizard.OnConflict); err != nil {
		return err
	}
	if file.Wizard.StrictTimeInput != nil {
		s.StrictTimeInput = *file.Wizard.StrictTimeInput
	}
	if file.Wizard.SessionTTL != "" {
		d, err := parseDuration("session_ttl", file.Wizard.SessionTTL)
		if err != nil {
			return err
		}
		s.SessionTTL = d
	}
	if file.Wizard.SweepInterval != "" {
		d, err := parseDuration("sweep_interval", file.Wizard.SweepInterval)
		if err != nil {
			return err
		}
		s.SweepInterval = d
	}
	return nil
}

// AppConfig holds CLI flags for the engine settings. Flags given explicitly override the
// configuration file.
type AppConfig struct {
	path          string
	timezone      string
	containment   string
	onConflict    string
	strictTime    bool
	sessionTTL    time.Duration
	sweepInterval time.Duration
}

// Flag names that can override the configuration file
const (
	flagTimezone      = "timezone"
	flagContainment   = "containment"
	flagOnConflict    = "on-conflict"
	flagStrictTime    = "strict-time-input"
	flagSessionTTL    = "session-ttl"
	flagSweepInterval = "sweep-interval"
)

// Flags returns CLI flags for the engine settings
func (x *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Category:    "Config",
			Sources:     cli.EnvVars("AUTOREPLY_CONFIG"),
			Destination: &x.path,
		},
		&cli.StringFlag{
			Name:        flagTimezone,
			Usage:       "IANA timezone of the day/night clock (default: local time)",
			Category:    "Dispatch",
			Sources:     cli.EnvVars("AUTOREPLY_TIMEZONE"),
			Destination: &x.timezone,
		},
		&cli.StringFlag{
			Name:        flagContainment,
			Usage:       "Day window matching [raw|wraparound]",
			Category:    "Dispatch",
			Sources:     cli.EnvVars("AUTOREPLY_CONTAINMENT"),
			Destination: &x.containment,
		},
		&cli.StringFlag{
			Name:        flagOnConflict,
			Usage:       "What saving under an existing action name does [overwrite|reject]",
			Category:    "Wizard",
			Sources:     cli.EnvVars("AUTOREPLY_ON_CONFLICT"),
			Destination: &x.onConflict,
		},
		&cli.BoolFlag{
			Name:        flagStrictTime,
			Usage:       "Reject time input that is not 4-digit HHMM",
			Category:    "Wizard",
			Sources:     cli.EnvVars("AUTOREPLY_STRICT_TIME_INPUT"),
			Destination: &x.strictTime,
		},
		&cli.DurationFlag{
			Name:        flagSessionTTL,
			Usage:       "Idle time after which an unfinished setup session is removed (0 disables)",
			Category:    "Wizard",
			Value:       DefaultSessionTTL,
			Sources:     cli.EnvVars("AUTOREPLY_SESSION_TTL"),
			Destination: &x.sessionTTL,
		},
		&cli.DurationFlag{
			Name:        flagSweepInterval,
			Usage:       "How often unfinished setup sessions are checked",
			Category:    "Wizard",
			Value:       DefaultSweepInterval,
			Sources:     cli.EnvVars("AUTOREPLY_SWEEP_INTERVAL"),
			Destination: &x.sweepInterval,
		},
	}
}

// Path returns the configuration file path
func (x *AppConfig) Path() string {
	return x.path
}

// Configure resolves the settings from defaults, the configuration file and the flags, in
// that order of precedence
func (x *AppConfig) Configure(c *cli.Command) (*Settings, error) {
	settings := defaultSettings()

	if x.path != "" {
		file, err := LoadFile(x.path)
		if err != nil {
			return nil, err
		}
		if err := settings.apply(file); err != nil {
			return nil, err
		}
	}

	if c.IsSet(flagTimezone) {
		if err := settings.setTimezone(x.timezone); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagContainment) {
		if err := settings.setContainment(x.containment); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagOnConflict) {
		if err := settings.setConflictPolicy(x.onConflict); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagStrictTime) {
		settings.StrictTimeInput = x.strictTime
	}
	if c.IsSet(flagSessionTTL) {
		settings.SessionTTL = x.sessionTTL
	}
	if c.IsSet(flagSweepInterval) {
		settings.SweepInterval = x.sweepInterval
	}

	if settings.SessionTTL < 0 || settings.SweepInterval < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "durations must not be negative")
	}
	if settings.SessionTTL > 0 && settings.SweepInterval == 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "sweep-interval must be positive when session-ttl is set")
	}

	return settings, nil
}
