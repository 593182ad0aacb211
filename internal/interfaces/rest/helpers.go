// Package rest exposes the HTTP surface: scheduler triggers, the Slack
// interaction webhook, and operational endpoints. Handlers stay thin and
// delegate to the application services.
package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/settlebot/backend/internal/interfaces/middleware"
	"github.com/settlebot/backend/pkg/errors"
)

// respondError maps an application error to its HTTP status and a
// uniform error body.
func respondError(c *gin.Context, err error) {
	c.JSON(errors.GetHTTPStatus(err), gin.H{
		"error": err.Error(),
		"code":  errors.GetErrorCode(err),
	})
}

// rawBody returns the signature-verified request body stashed by the
// Slack middleware.
func rawBody(c *gin.Context) []byte {
	if v, ok := c.Get(middleware.RawBodyKey); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}
