package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/secmon-lab/autoreply/pkg/cli/config"
	httpctrl "github.com/secmon-lab/autoreply/pkg/controller/http"
	slacksvc "github.com/secmon-lab/autoreply/pkg/service/slack"
	"github.com/secmon-lab/autoreply/pkg/service/worker"
	"github.com/secmon-lab/autoreply/pkg/usecase"
	"github.com/secmon-lab/autoreply/pkg/utils/async"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
	"github.com/secmon-lab/autoreply/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var healthAddr string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address for Slack requests",
			Value:       ":8080",
			Sources:     cli.EnvVars("AUTOREPLY_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "health-addr",
			Usage:       "HTTP server address of the liveness endpoint (empty disables it)",
			Value:       ":8081",
			Sources:     cli.EnvVars("AUTOREPLY_HEALTH_ADDR"),
			Destination: &healthAddr,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the Slack bot",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			settings, err := appCfg.Configure(c)
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			logging.Default().Info("Engine settings", "settings", settings, "slack", slackCfg, "repository", repoCfg)

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack")
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo,
				slacksvc.NewDirectory(slackSvc),
				slacksvc.NewSender(slackSvc),
				settings.UseCaseOptions()...,
			)

			handler := httpctrl.New(
				httpctrl.WithSlackSigningSecret(slackCfg.SigningSecret()),
				httpctrl.WithSlackWebhook(httpctrl.NewSlackWebhookHandler(uc.Dispatch)),
				httpctrl.WithSlackInteraction(httpctrl.NewSlackInteractionHandler(uc.Wizard, uc.Manage, slackSvc)),
				httpctrl.WithSlackCommand(httpctrl.NewSlackCommandHandler(slackCfg.SetupCommand())),
			)

			servers := []*http.Server{{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}}
			if healthAddr != "" {
				servers = append(servers, &http.Server{
					Addr:              healthAddr,
					Handler:           httpctrl.NewHealthHandler(),
					ReadHeaderTimeout: 30 * time.Second,
				})
			}

			sweeper := worker.NewSessionSweepWorker(repo.Action(), settings.SessionTTL, settings.SweepInterval)
			if err := sweeper.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start session sweep worker")
			}
			defer sweeper.Stop()

			return runServers(ctx, servers)
		},
	}
}

// runServers serves until a signal arrives or one server fails, then shuts all of them down
// and waits for in-flight event handlers
func runServers(ctx context.Context, servers []*http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	for _, server := range servers {
		eg.Go(func() error {
			logging.Default().Info("Starting HTTP server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "failed to start server", goerr.V("addr", server.Addr))
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		logging.Default().Info("Shutting down", "cause", context.Cause(ctx))

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, server := range servers {
			if err := server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, goerr.Wrap(err, "failed to shutdown server gracefully", goerr.V("addr", server.Addr)))
			}
		}
		if err := async.Wait(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	logging.Default().Info("Server shutdown completed")
	return nil
}
