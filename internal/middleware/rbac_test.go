package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stockroom-api/internal/models"
)

func roleRouter(role models.UserRole, hasClaims bool, required ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if hasClaims {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
		}
		c.Next()
	})
	router.GET("/guarded", RequireRoles(required...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name      string
		role      models.UserRole
		hasClaims bool
		required  []models.UserRole
		want      int
	}{
		{"admin allowed", models.RoleAdmin, true, []models.UserRole{models.RoleAdmin}, http.StatusOK},
		{"user rejected on admin route", models.RoleUser, true, []models.UserRole{models.RoleAdmin}, http.StatusForbidden},
		{"user allowed on shared route", models.RoleUser, true, []models.UserRole{models.RoleUser, models.RoleAdmin}, http.StatusOK},
		{"missing claims", models.RoleUser, false, []models.UserRole{models.RoleUser}, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := roleRouter(tc.role, tc.hasClaims, tc.required...)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
			require.Equal(t, tc.want, w.Code)
		})
	}
}
