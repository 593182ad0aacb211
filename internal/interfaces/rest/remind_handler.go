package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/domain/flow"
	"github.com/settlebot/backend/pkg/errors"
)

// RemindHandler exposes the manual reminder pass for one workflow.
type RemindHandler struct {
	scheduler *services.SchedulerService
	reg       *flow.Registry
}

// NewRemindHandler creates a new remind handler.
func NewRemindHandler(scheduler *services.SchedulerService, reg *flow.Registry) *RemindHandler {
	return &RemindHandler{scheduler: scheduler, reg: reg}
}

type remindRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Month   string `json:"month" binding:"required"`
	Channel string `json:"channel"`
}

// Remind sends reminders for every pending chain of one workflow and
// period, honoring the usual cooldown. Parameters come from the query
// string or a JSON body.
func (h *RemindHandler) Remind(c *gin.Context) {
	req := remindRequest{
		Kind:    c.Query("kind"),
		Month:   c.Query("month"),
		Channel: c.Query("channel"),
	}
	if req.Kind == "" && req.Month == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.NewValidationError("", "kind and month are required"))
			return
		}
	}

	if _, ok := h.reg.Settlement(req.Kind); !ok {
		respondError(c, errors.NewValidationError("kind", "unknown workflow kind"))
		return
	}

	period, err := flow.ParsePeriod(req.Month)
	if err != nil {
		respondError(c, errors.NewValidationError("month", "must be YYYY-MM"))
		return
	}

	sent, err := h.scheduler.RemindKind(c.Request.Context(), req.Kind, period, req.Channel)
	if err != nil {
		respondError(c, errors.NewInternalError("failed to send reminders", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reminders": sent})
}
