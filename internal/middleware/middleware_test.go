package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.Use(gin.CustomRecovery(HandlePanics()))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/panic-error", func(c *gin.Context) { panic(errors.New("kaboom")) })
	r.GET("/panic-value", func(c *gin.Context) { panic("not an error") })
	return r
}

func TestHandlePanics(t *testing.T) {
	logs := captureLogs(t)
	r := setupRouter()

	for _, path := range []string{"/panic-error", "/panic-value"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
			}
			if !strings.Contains(w.Body.String(), `"error":"internal server error"`) {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}

	if !strings.Contains(logs.String(), "kaboom") || !strings.Contains(logs.String(), "not an error") {
		t.Errorf("panics were not logged: %s", logs.String())
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		path      string
		wantLevel string
	}{
		{path: "/ok", wantLevel: `"level":"info"`},
		{path: "/missing", wantLevel: `"level":"warn"`},
		{path: "/panic-error", wantLevel: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs := captureLogs(t)
			r := setupRouter()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			out := logs.String()
			if !strings.Contains(out, `"path":"`+tt.path+`"`) {
				t.Errorf("request was not logged: %s", out)
			}
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("log %s does not contain %s", out, tt.wantLevel)
			}
		})
	}
}
