package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/autoreply/pkg/controller/http"
)

func TestHealthHandler(t *testing.T) {
	handler := httpctrl.NewHealthHandler()

	t.Run("root answers alive", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Body.String()).Equal("alive")
	})

	t.Run("other paths are not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})
}
