package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/service"
)

type AuthHandler struct {
	svc          *service.AuthService
	cookieName   string
	secureCookie bool
}

func NewAuthHandler(svc *service.AuthService, cookieName string, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieName: cookieName, secureCookie: secureCookie}
}

func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req dto.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.svc.RegisterUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, resp.Token)
	respond(c, http.StatusCreated, resp)
}

func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.svc.LoginUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, resp.Token)
	respond(c, http.StatusOK, resp)
}

func (h *AuthHandler) RegisterRestaurant(c *gin.Context) {
	var req dto.RegisterRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.svc.RegisterRestaurant(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, resp.Token)
	respond(c, http.StatusCreated, resp)
}

func (h *AuthHandler) LoginRestaurant(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.svc.LoginRestaurant(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setTokenCookie(c, resp.Token)
	respond(c, http.StatusOK, resp)
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.SendOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "if the email is registered, a code has been sent"})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), id, req.ResetToken, req.Password); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "password updated"})
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.svc.TokenTTL().Seconds()), "/", "", h.secureCookie, true)
}
