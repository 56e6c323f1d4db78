package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{service.ErrEmptyCart, http.StatusBadRequest, "cart is empty"},
		{service.ErrOrderNotFound, http.StatusNotFound, "order not found"},
		{service.ErrAlreadyReviewed, http.StatusConflict, "order already reviewed"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{service.ErrInvalidResetToken, http.StatusForbidden, "invalid or expired reset token"},
		{fmt.Errorf("get order: %w", errors.New("conn refused")), http.StatusInternalServerError, "internal server error"},
		{apperr.NotFoundf("item not found: %s", "abc"), http.StatusNotFound, "item not found: abc"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.message, env.Error.Message)
			assert.Equal(t, tt.status == http.StatusInternalServerError, len(c.Errors) == 1)
		})
	}
}

func TestRespond(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respond(c, http.StatusCreated, gin.H{"id": 7})

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"id":7}`, string(env.Data))
	assert.Nil(t, env.Error)
}

func TestPathValidation(t *testing.T) {
	r := gin.New()
	items := NewItemHandler(nil, 1<<20)
	orders := NewOrderHandler(nil)
	r.GET("/items", items.List)
	r.GET("/items/:id", items.GetByID)
	r.DELETE("/orders/:id/items/:itemId", orders.RemoveItem)

	tests := []struct {
		method, path, message string
	}{
		{http.MethodGet, "/items/not-a-uuid", "invalid id"},
		{http.MethodGet, "/items?restaurant=42", "invalid restaurant"},
		{http.MethodDelete, "/orders/6f1c3c1e-8d0b-4a5e-9a43-2f8f0b7f1d11/items/nope", "invalid itemId"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decode(t, w).Error.Message)
		})
	}
}

func TestItemHandler_CreateRejectsBadForms(t *testing.T) {
	r := gin.New()
	r.POST("/items", NewItemHandler(nil, 1<<20).Create)

	form := func(fields map[string]string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	body, ct := form(map[string]string{"name": "Dal", "description": "Lentils", "category": "curry", "price": "cheap"})
	req := httptest.NewRequest(http.MethodPost, "/items", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid price", decode(t, w).Error.Message)

	body, ct = form(map[string]string{"name": "Dal"})
	req = httptest.NewRequest(http.MethodPost, "/items", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "description is required; price is required; category is required", decode(t, w).Error.Message)
}

func TestBindError_FieldLevelMessages(t *testing.T) {
	r := gin.New()
	r.POST("/reviews", NewReviewHandler(nil).Add)
	r.POST("/register", NewAuthHandler(nil, "token", false).RegisterUser)
	r.POST("/restaurants/register", NewAuthHandler(nil, "token", false).RegisterRestaurant)

	tests := []struct {
		path    string
		body    string
		message string
	}{
		{"/reviews", `{"order_id":"` + uuid.NewString() + `","comment":"ok"}`, "rating is required"},
		{"/reviews", `{"order_id":"` + uuid.NewString() + `","rating":"five"}`, "rating has the wrong type"},
		{"/reviews", `{"rating":`, "malformed JSON body"},
		{"/reviews", ``, "request body is required"},
		{"/register", `{"name":"A","email":"not-an-email","password":"short"}`,
			"email must be a valid email; password must be at least 8 characters"},
		{"/restaurants/register", `{"name":"R","email":"r@example.com","password":"password123","address":"x","type":"vegan"}`,
			"type must be one of: veg, non-veg, both"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Error.Message)
			assert.NotContains(t, env.Error.Message, "Key:")
		})
	}
}

func TestItemHandler_CreateRejectsOversizedUpload(t *testing.T) {
	r := gin.New()
	r.POST("/items", NewItemHandler(nil, 64).Create)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("videoUrl", "clip.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte(strings.Repeat("x", 4096)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestHealthz(t *testing.T) {
	r := gin.New()
	r.GET("/healthz", (&HealthHandler{}).Healthz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestReadyz_ReportsFailingDependency(t *testing.T) {
	h := &HealthHandler{checks: []dependencyCheck{
		{"postgres", func(_ context.Context) error { return nil }},
		{"redis", func(_ context.Context) error { return errors.New("dial tcp: refused") }},
	}}
	r := gin.New()
	r.GET("/readyz", h.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.Equal(t, "redis unavailable", env.Error.Message)
	assert.JSONEq(t, `{"status":"error","postgres":"connected","redis":"unavailable"}`, string(env.Data))
}
