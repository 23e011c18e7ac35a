package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/autoreply/pkg/utils/safe"
)

// NewHealthHandler returns the liveness endpoint. It answers without touching any store
// so it keeps working while the Slack side is degraded.
func NewHealthHandler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte("alive"))
	})
	return r
}
