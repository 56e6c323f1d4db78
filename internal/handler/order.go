package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/service"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	in := service.PlaceOrderInput{Address: req.Address, PaymentStatus: req.PaymentStatus}
	for _, l := range req.Items {
		in.Lines = append(in.Lines, service.OrderLineInput{ItemID: l.Item, Quantity: l.Quantity})
	}

	res, err := h.svc.PlaceOrder(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, placeOrderResponse(res))
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.svc.ListByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewOrderListResponse(orders))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.GetByID(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) Status(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.GetByID(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.OrderStatusResponse{ID: order.ID, Status: order.Status, PaymentStatus: order.PaymentStatus})
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "order deleted"})
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	order, err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), id, itemID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewOrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.svc.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), middleware.GetUserRole(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewOrderResponse(order))
}

func placeOrderResponse(res *service.PlaceOrderResult) dto.PlaceOrderResponse {
	return dto.PlaceOrderResponse{
		OrderID:         res.Order.ID,
		Restaurants:     res.RestaurantIDs,
		RestaurantCount: len(res.RestaurantIDs),
		Order:           dto.NewOrderResponse(res.Order),
		DroppedItems:    res.DroppedItems,
	}
}
