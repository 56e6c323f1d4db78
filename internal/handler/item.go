package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/service"
)

type ItemHandler struct {
	svc            *service.CatalogService
	maxUploadBytes int64
}

func NewItemHandler(svc *service.CatalogService, maxUploadBytes int64) *ItemHandler {
	return &ItemHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Create accepts multipart/form-data with a required video part and an optional image part.
func (h *ItemHandler) Create(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var form dto.CreateItemForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		bindError(c, err)
		return
	}
	price, err := decimal.NewFromString(form.Price)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid price")
		return
	}

	item, err := h.svc.Create(c.Request.Context(), middleware.GetUserID(c), dto.CreateItemInput{
		Name:        form.Name,
		Description: form.Description,
		Price:       price,
		Category:    form.Category,
		Image:       form.Image,
		Video:       form.Video,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

// List returns the whole catalog, or one restaurant's items with ?restaurant=<id>.
func (h *ItemHandler) List(c *gin.Context) {
	restaurantID := uuid.Nil
	if raw := c.Query("restaurant"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid restaurant")
			return
		}
		restaurantID = id
	}

	items, err := h.svc.List(c.Request.Context(), restaurantID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.svc.Update(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "item deleted"})
}
