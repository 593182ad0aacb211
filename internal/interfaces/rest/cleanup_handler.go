package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/pkg/errors"
)

// CleanupHandler exposes the bot-message cleanup tool.
type CleanupHandler struct {
	cleanup *services.CleanupService
	cfg     *config.Config
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(cleanup *services.CleanupService, cfg *config.Config) *CleanupHandler {
	return &CleanupHandler{cleanup: cleanup, cfg: cfg}
}

type cleanupRequest struct {
	Channel  string `json:"channel" binding:"required"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Cleanup deletes the bot's recent messages from a channel. The channel
// accepts the aliases "finance" and "test" alongside raw channel IDs.
// Parameters come from the query string or a JSON body.
func (h *CleanupHandler) Cleanup(c *gin.Context) {
	req := cleanupRequest{Channel: c.Query("channel"), Category: c.Query("category")}
	if n, err := strconv.Atoi(c.Query("count")); err == nil {
		req.Count = n
	}
	if req.Channel == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.NewValidationError("channel", "channel is required"))
			return
		}
	}

	channel := req.Channel
	switch channel {
	case "finance":
		channel = h.cfg.FinanceChannelID
	case "test":
		channel = h.cfg.TestChannelID
	}

	category := req.Category
	if category == "" {
		category = "all"
	}
	switch category {
	case "settlement", "deadline", "reminder", "all":
	default:
		respondError(c, errors.NewValidationError("category", "must be settlement, deadline, reminder or all"))
		return
	}

	deleted, matched, err := h.cleanup.DeleteRecent(c.Request.Context(), channel, category, req.Count)
	if err != nil {
		respondError(c, errors.NewInternalError("cleanup failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted, "matched": matched})
}
