package middleware

import (
	"time"

	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a hub tagged with the request id and route to every request.
// It is a no-op when sentry is disabled.
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	capture := sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetTag("request_id", types.GetRequestID(ctx))
		hub.Scope().SetTag("route", c.FullPath())
		c.Request = c.Request.WithContext(sentry.SetHubOnContext(ctx, hub))
		capture(c)
	}
}
