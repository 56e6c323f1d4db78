package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/service"
)

type RestaurantHandler struct {
	svc    *service.RestaurantService
	orders *service.OrderService
}

func NewRestaurantHandler(svc *service.RestaurantService, orders *service.OrderService) *RestaurantHandler {
	return &RestaurantHandler{svc: svc, orders: orders}
}

func (h *RestaurantHandler) List(c *gin.Context) {
	rests, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rests)
}

func (h *RestaurantHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rest, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rest)
}

func (h *RestaurantHandler) Profile(c *gin.Context) {
	rest, err := h.svc.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rest)
}

func (h *RestaurantHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	rest, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, rest)
}

func (h *RestaurantHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateRestaurantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), req.Status); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": req.Status})
}

func (h *RestaurantHandler) Orders(c *gin.Context) {
	orders, err := h.orders.ListByRestaurantID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewOrderListResponse(orders))
}

func (h *RestaurantHandler) Analytics(c *gin.Context) {
	report, err := h.svc.Analytics(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}
