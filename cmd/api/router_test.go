package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-food-api/internal/config"
	"github.com/flicky/go-food-api/internal/model"
)

func testRouter(t *testing.T) (*gin.Engine, *config.Config) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "router-secret"
	cfg.JWT.CookieName = "token"
	cfg.Media.Root = t.TempDir()
	cfg.Server.AllowedOrigins = []string{"*"}

	var router *gin.Engine
	require.NotPanics(t, func() {
		router = newRouter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), handlers{})
	})
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, role string) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(), "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_AccessControl(t *testing.T) {
	router, cfg := testRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		status int
	}{
		{"cart needs a token", http.MethodGet, "/api/v1/users/cart", "", http.StatusUnauthorized},
		{"cart is customer only", http.MethodGet, "/api/v1/users/cart", model.RoleRestaurant, http.StatusForbidden},
		{"analytics is restaurant only", http.MethodGet, "/api/v1/restaurants/analytics", model.RoleCustomer, http.StatusForbidden},
		{"item writes are restaurant only", http.MethodDelete, "/api/v1/items/" + uuid.NewString(), model.RoleCustomer, http.StatusForbidden},
		{"customers cannot move order status", http.MethodPatch, "/api/v1/orders/" + uuid.NewString() + "/status", model.RoleCustomer, http.StatusForbidden},
		{"restaurant list needs a token", http.MethodGet, "/api/v1/restaurants", "", http.StatusUnauthorized},
		{"public item lookup validates id", http.MethodGet, "/api/v1/items/not-a-uuid", "", http.StatusBadRequest},
		{"order lookup validates id", http.MethodGet, "/api/v1/orders/nope", model.RoleCustomer, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("Authorization", bearer(t, cfg, tt.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := testRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
