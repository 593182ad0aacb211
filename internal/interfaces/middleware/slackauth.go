package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
)

// RawBodyKey is the context key under which the verified raw request
// body is stored for downstream handlers.
const RawBodyKey = "slackRawBody"

// VerifySlackSignature checks the v0 HMAC signature Slack attaches to
// every webhook delivery. The raw body is consumed for verification and
// stored in the context, with the request body restored for any reader
// that prefers it.
func VerifySlackSignature(signingSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		verifier, err := slack.NewSecretsVerifier(c.Request.Header, signingSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature headers"})
			c.Abort()
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			c.Abort()
			return
		}
		if err := verifier.Ensure(); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature mismatch"})
			c.Abort()
			return
		}

		c.Set(RawBodyKey, body)
		c.Next()
	}
}
