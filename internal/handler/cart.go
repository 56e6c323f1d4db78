package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/service"
)

type CartHandler struct {
	cart   *service.CartService
	orders *service.OrderService
}

func NewCartHandler(cart *service.CartService, orders *service.OrderService) *CartHandler {
	return &CartHandler{cart: cart, orders: orders}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cart.ListCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cart.AddToCart(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "item added to cart"})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.cart.SetQuantity(c.Request.Context(), middleware.GetUserID(c), itemID, *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "cart updated"})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cart.RemoveFromCart(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "item removed from cart"})
}

func (h *CartHandler) ListSaved(c *gin.Context) {
	items, err := h.cart.ListSaved(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h *CartHandler) SaveItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cart.SaveItem(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "item saved"})
}

func (h *CartHandler) UnsaveItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.cart.UnsaveItem(c.Request.Context(), middleware.GetUserID(c), itemID); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "item removed from saved items"})
}

func (h *CartHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.orders.CheckoutCart(c.Request.Context(), middleware.GetUserID(c), req.Address, req.PaymentStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, placeOrderResponse(res))
}

func (h *CartHandler) OrderSavedItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.OrderSavedItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.orders.OrderSavedItem(c.Request.Context(), middleware.GetUserID(c), itemID, req.Address, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, placeOrderResponse(res))
}
