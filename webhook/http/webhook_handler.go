package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// Trigger starts a refresh of the published posts
type Trigger interface {
	Trigger()
}

// WebhookHandler re-imports posts whenever the default branch of the blog repository is pushed to
type WebhookHandler struct {
	webhookSecret []byte
	repoFullName  string
	sync          Trigger
}

func NewWebhookHandler(secret string, repoFullName string, sync Trigger) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: []byte(secret),
		repoFullName:  repoFullName,
		sync:          sync,
	}
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook/git", h.HandleGitWebhook)
}

func (h *WebhookHandler) HandleGitWebhook(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(c.Request), payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	switch evt := event.(type) {
	case *github.PushEvent:
		repo := evt.GetRepo()
		if h.repoFullName != "" && repo.GetFullName() != h.repoFullName {
			log.Warn().Str("repo", repo.GetFullName()).Msg("Ignoring push from unexpected repository")
			break
		}
		if evt.GetRef() != "refs/heads/"+repo.GetDefaultBranch() {
			log.Debug().Str("ref", evt.GetRef()).Msg("Ignoring push to non-default branch")
			break
		}
		log.Info().Str("repo", repo.GetFullName()).Str("after", evt.GetAfter()).Msg("Push received, refreshing posts")
		h.sync.Trigger()
	case *github.PingEvent:
		log.Info().Str("zen", evt.GetZen()).Msg("Webhook ping")
	}

	c.Status(http.StatusNoContent)
}
