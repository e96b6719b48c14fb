package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/sloi/internal/app/apptest"
)

func preflight(router http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_CORS(t *testing.T) {
	t.Run("web app origin only", func(t *testing.T) {
		env := apptest.New(t)
		env.App.Config.Telegram.WebAppURL = "https://app.example/miniapp"
		router := env.Router()

		w := preflight(router, "https://app.example")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

		w = preflight(router, "https://evil.example")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("any origin without a web app url", func(t *testing.T) {
		env := apptest.New(t)
		env.App.Config.Telegram.WebAppURL = ""
		router := env.Router()

		w := preflight(router, "http://localhost:5173")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("plain requests carry the header", func(t *testing.T) {
		env := apptest.New(t)
		env.App.Config.Telegram.WebAppURL = "https://app.example"
		router := env.Router()

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
	})
}
