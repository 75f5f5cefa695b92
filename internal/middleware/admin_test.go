package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	admin := router.Group("/api/v1", NewAdminMiddleware(apiKey).RequireAdminAuth())
	admin.POST("/contests/:id/resolve", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"contest_id": c.Param("id")})
	})
	return router
}

func TestRequireAdminAuth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		target     string
		headers    map[string]string
		wantStatus int
	}{
		{"bearer key", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"Authorization": "Bearer ops-key"}, http.StatusOK},
		{"lowercase bearer", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"Authorization": "bearer ops-key"}, http.StatusOK},
		{"x-api-key header", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"X-API-Key": "ops-key"}, http.StatusOK},
		{"wrong bearer falls back to header", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"Authorization": "Bearer nope", "X-API-Key": "ops-key"}, http.StatusOK},
		{"query parameter ignored", "ops-key", "/api/v1/contests/c1/resolve?api_key=ops-key", nil, http.StatusUnauthorized},
		{"wrong key", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"X-API-Key": "ops-key2"}, http.StatusUnauthorized},
		{"basic scheme", "ops-key", "/api/v1/contests/c1/resolve", map[string]string{"Authorization": "Basic ops-key"}, http.StatusUnauthorized},
		{"no credentials", "ops-key", "/api/v1/contests/c1/resolve", nil, http.StatusUnauthorized},
		{"unconfigured key rejects empty header", "", "/api/v1/contests/c1/resolve", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
		{"unconfigured key rejects bearer", "", "/api/v1/contests/c1/resolve", map[string]string{"Authorization": "Bearer anything"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			adminRouter(tt.configured).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"contest_id":"c1"`)
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
			assert.Equal(t, "Valid admin API key required for this endpoint", body["message"])
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	am := NewAdminMiddleware("ops-key")
	assert.True(t, am.ValidateAdminKey("ops-key"))
	assert.False(t, am.ValidateAdminKey("ops-ke"))
	assert.False(t, am.ValidateAdminKey(""))

	assert.False(t, NewAdminMiddleware("").ValidateAdminKey(""))
}
