package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/middleware"
	"github.com/flicky/go-food-api/internal/service"
)

type ReviewHandler struct {
	svc *service.ReviewService
}

func NewReviewHandler(svc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

func (h *ReviewHandler) Add(c *gin.Context) {
	var req dto.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	review, err := h.svc.Add(c.Request.Context(), middleware.GetUserID(c), service.AddReviewInput{
		OrderID: req.OrderID, RestaurantID: req.RestaurantID, Rating: req.Rating, Comment: req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, dto.NewReviewResponse(review))
}

func (h *ReviewHandler) ListByRestaurant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.svc.ListByRestaurantID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, dto.NewReviewResponse(&reviews[i]))
	}
	respond(c, http.StatusOK, out)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	review, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, dto.NewReviewResponse(review))
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "review deleted"})
}
