package rest

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/settlebot/backend/internal/application/services"
)

// InteractionHandler receives Slack's webhook deliveries: interactive
// button clicks (form-encoded payload) and Events API callbacks (JSON).
// Slack retries on non-200, so processing errors are logged and the
// delivery is still acknowledged.
type InteractionHandler struct {
	advancer *services.Advancer
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(advancer *services.Advancer) *InteractionHandler {
	return &InteractionHandler{advancer: advancer}
}

// Handle dispatches one verified webhook delivery.
func (h *InteractionHandler) Handle(c *gin.Context) {
	body := rawBody(c)
	if body == nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}
	}

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		h.handleInteraction(c, body)
		return
	}
	h.handleEvent(c, body)
}

func (h *InteractionHandler) handleInteraction(c *gin.Context, body []byte) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form body"})
		return
	}

	var cb slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(values.Get("payload")), &cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed interaction payload"})
		return
	}

	if cb.Type == slackapi.InteractionTypeBlockActions {
		if err := h.advancer.HandleBlockAction(c.Request.Context(), &cb); err != nil {
			log.Printf("❌ Block action handling failed: %v", err)
		}
	}

	// Always acknowledge; Slack retries anything else.
	c.Status(http.StatusOK)
}

func (h *InteractionHandler) handleEvent(c *gin.Context, body []byte) {
	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed challenge"})
			return
		}
		c.String(http.StatusOK, challenge.Challenge)
		return

	case slackevents.CallbackEvent:
		if msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			err := h.advancer.HandleMessageEvent(c.Request.Context(),
				msg.Channel, msg.ThreadTimeStamp, msg.Text, msg.BotID)
			if err != nil {
				log.Printf("❌ Message event handling failed: %v", err)
			}
		}
	}

	c.Status(http.StatusOK)
}
