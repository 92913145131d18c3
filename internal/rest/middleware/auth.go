package middleware

import (
	"crypto/subtle"
	"strconv"

	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware checks the x-api-key header against the configured keys.
// With no keys configured every request passes as the default user.
func APIKeyMiddleware(cfg *config.Configuration, logger *logger.Logger) gin.HandlerFunc {
	keys := cfg.Auth.APIKeys

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if len(keys) == 0 {
			c.Request = c.Request.WithContext(types.SetUserID(ctx, types.DefaultUserID))
			c.Next()
			return
		}

		provided := c.GetHeader(types.HeaderAPIKey)
		for i, key := range keys {
			if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
				c.Request = c.Request.WithContext(types.SetUserID(ctx, apiKeyUser(i)))
				c.Next()
				return
			}
		}

		logger.Debugw("invalid api key", "path", c.Request.URL.Path)
		c.Error(ierr.NewError("invalid api key").
			WithHint("Provide a valid API key in the x-api-key header").
			Mark(ierr.ErrPermissionDenied))
		c.Abort()
	}
}

func apiKeyUser(index int) string {
	return "api_key_" + strconv.Itoa(index)
}
