package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testSecret = "s3cret"

type countingTrigger struct {
	calls int
}

func (c *countingTrigger) Trigger() {
	c.calls++
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func sendWebhook(t *testing.T, h *WebhookHandler, event string, body string, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/webhook/git", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", signature)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleGitWebhook(t *testing.T) {
	pushMain := `{"ref":"refs/heads/main","after":"abc","repository":{"full_name":"owner/blog","default_branch":"main"}}`
	pushBranch := `{"ref":"refs/heads/draft","after":"abc","repository":{"full_name":"owner/blog","default_branch":"main"}}`
	pushOther := `{"ref":"refs/heads/main","after":"abc","repository":{"full_name":"someone/else","default_branch":"main"}}`
	ping := `{"zen":"Keep it logically awesome."}`

	tests := []struct {
		name         string
		event        string
		body         string
		signature    string
		wantStatus   int
		wantTriggers int
	}{
		{name: "Push to default branch", event: "push", body: pushMain, signature: sign(pushMain), wantStatus: http.StatusNoContent, wantTriggers: 1},
		{name: "Push to other branch", event: "push", body: pushBranch, signature: sign(pushBranch), wantStatus: http.StatusNoContent},
		{name: "Push from other repository", event: "push", body: pushOther, signature: sign(pushOther), wantStatus: http.StatusNoContent},
		{name: "Ping", event: "ping", body: ping, signature: sign(ping), wantStatus: http.StatusNoContent},
		{name: "Bad signature", event: "push", body: pushMain, signature: sign("tampered"), wantStatus: http.StatusBadRequest},
		{name: "Unknown event", event: "no_such_event", body: ping, signature: sign(ping), wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &countingTrigger{}
			h := NewWebhookHandler(testSecret, "owner/blog", trigger)

			w := sendWebhook(t, h, tt.event, tt.body, tt.signature)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if trigger.calls != tt.wantTriggers {
				t.Errorf("triggers = %d, want %d", trigger.calls, tt.wantTriggers)
			}
		})
	}
}
