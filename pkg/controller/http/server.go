package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
)

type Server struct {
	router                  *chi.Mux
	slackWebhookHandler     *SlackWebhookHandler
	slackInteractionHandler *SlackInteractionHandler
	slackCommandHandler     *SlackCommandHandler
	slackSigningSecret      string
}

type Options func(*Server)

func WithSlackSigningSecret(secret string) Options {
	return func(s *Server) {
		s.slackSigningSecret = secret
	}
}

func WithSlackWebhook(handler *SlackWebhookHandler) Options {
	return func(s *Server) {
		s.slackWebhookHandler = handler
	}
}

func WithSlackInteraction(handler *SlackInteractionHandler) Options {
	return func(s *Server) {
		s.slackInteractionHandler = handler
	}
}

func WithSlackCommand(handler *SlackCommandHandler) Options {
	return func(s *Server) {
		s.slackCommandHandler = handler
	}
}

func New(opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	// Slack endpoints. No auth required, uses signature verification
	r.Route("/hooks/slack", func(r chi.Router) {
		r.Use(SlackSignatureMiddleware(s.slackSigningSecret))

		if s.slackWebhookHandler != nil {
			r.Post("/event", s.slackWebhookHandler.ServeHTTP)
		}
		if s.slackInteractionHandler != nil {
			r.Post("/interaction", s.slackInteractionHandler.ServeHTTP)
		}
		if s.slackCommandHandler != nil {
			r.Post("/command", s.slackCommandHandler.ServeHTTP)
		}
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
