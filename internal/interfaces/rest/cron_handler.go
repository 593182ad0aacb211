package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/pkg/errors"
)

// CronHandler exposes the daily scheduler pass over HTTP for external
// cron services.
type CronHandler struct {
	scheduler *services.SchedulerService
	cfg       *config.Config
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(scheduler *services.SchedulerService, cfg *config.Config) *CronHandler {
	return &CronHandler{scheduler: scheduler, cfg: cfg}
}

// RunDaily triggers one daily pass. A testDate parameter runs the pass
// as of that date, forced past the afternoon cutoff and redirected to
// the test channel so production is never touched by a dry run.
func (h *CronHandler) RunDaily(c *gin.Context) {
	opts := services.RunOptions{}

	if testDate := c.Query("testDate"); testDate != "" {
		date, err := time.ParseInLocation("2006-01-02", testDate, h.cfg.Location)
		if err != nil {
			respondError(c, errors.NewValidationError("testDate", "must be YYYY-MM-DD"))
			return
		}
		opts.Date = date
		opts.Forced = true
		opts.Channel = h.cfg.TestChannelID
	}

	report := h.scheduler.RunDaily(c.Request.Context(), opts)

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"run_id":    report.RunID,
		"processed": report.Processed(),
		"alerts":    report.Alerts,
		"reminders": report.Reminders,
		"skipped":   report.Skipped,
		"errors":    report.Errors,
		"timestamp": time.Now().In(h.cfg.Location).Format(time.RFC3339),
	})
}
