package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelanceops/billing/internal/config"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(keys ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Configuration{Auth: config.AuthConfig{APIKeys: keys}}

	r := gin.New()
	r.Use(ErrorHandler(false))
	r.Use(APIKeyMiddleware(cfg, logger.NewNopLogger()))
	r.GET("/v1/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": types.GetUserID(c.Request.Context())})
	})
	return r
}

func serve(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/invoices", nil)
	if apiKey != "" {
		req.Header.Set(types.HeaderAPIKey, apiKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		apiKey     string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "no keys configured",
			apiKey:     "",
			wantStatus: http.StatusOK,
			wantUser:   types.DefaultUserID,
		},
		{
			name:       "valid key",
			keys:       []string{"key_a", "key_b"},
			apiKey:     "key_b",
			wantStatus: http.StatusOK,
			wantUser:   "api_key_1",
		},
		{
			name:       "wrong key",
			keys:       []string{"key_a"},
			apiKey:     "key_c",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing key",
			keys:       []string{"key_a"},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newAuthRouter(tt.keys...), tt.apiKey)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				var resp ierr.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				assert.Equal(t, ierr.ErrCodePermissionDenied, resp.Error.Code)
				assert.Contains(t, resp.Error.Display, "x-api-key")
				assert.Empty(t, resp.Error.InternalError)
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantUser, body["user_id"])
		})
	}
}
