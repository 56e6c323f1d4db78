package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrReviewNotFound  = apperr.NotFoundf("review not found")
	ErrAlreadyReviewed = apperr.Conflictf("order already reviewed")
	ErrRatingRange     = apperr.Invalid("rating must be between %d and %d", model.MinRating, model.MaxRating)
)

type AddReviewInput struct {
	OrderID uuid.UUID
	// RestaurantID picks the reviewed restaurant; it may be left nil when the order has one restaurant.
	RestaurantID *uuid.UUID
	Rating       int
	Comment      string
}

type ReviewService struct {
	reviewRepo repository.ReviewRepository
	orderRepo  repository.OrderRepository
	restRepo   repository.RestaurantRepository
	log        *slog.Logger
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	restRepo repository.RestaurantRepository,
	log *slog.Logger,
) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, orderRepo: orderRepo, restRepo: restRepo, log: log}
}

// Add records one review per (order, user) and folds its rating into the restaurant.
func (s *ReviewService) Add(ctx context.Context, userID uuid.UUID, in AddReviewInput) (*model.Review, error) {
	if in.Rating < model.MinRating || in.Rating > model.MaxRating {
		return nil, ErrRatingRange
	}

	order, err := s.orderRepo.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	restaurantID, err := reviewedRestaurant(order, in.RestaurantID)
	if err != nil {
		return nil, err
	}

	existing, err := s.reviewRepo.GetByOrderAndUser(ctx, order.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyReviewed
	}

	review := &model.Review{
		OrderID: order.ID, UserID: userID, RestaurantID: restaurantID,
		Rating: in.Rating, Comment: in.Comment,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	log := s.log.With("review_id", review.ID, "order_id", order.ID, "restaurant_id", restaurantID)
	if err := s.orderRepo.AddReviewRef(ctx, order.ID, review.ID); err != nil {
		log.Error("link review to order", "error", err)
	}
	if err := s.restRepo.AddReview(ctx, restaurantID, review.ID, review.Rating); err != nil {
		log.Error("link review to restaurant", "error", err)
	}
	return review, nil
}

func (s *ReviewService) GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

func (s *ReviewService) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Review, error) {
	return s.reviewRepo.ListByRestaurantID(ctx, restaurantID)
}

// Delete removes the caller's review and reverses its effect on the restaurant rating.
func (s *ReviewService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review: %w", err)
	}
	if review == nil || review.UserID != userID {
		return ErrReviewNotFound
	}
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}

	log := s.log.With("review_id", id, "order_id", review.OrderID, "restaurant_id", review.RestaurantID)
	if err := s.orderRepo.RemoveReviewRef(ctx, review.OrderID, id); err != nil {
		log.Error("unlink review from order", "error", err)
	}
	if err := s.restRepo.RemoveReview(ctx, review.RestaurantID, id, review.Rating); err != nil {
		log.Error("unlink review from restaurant", "error", err)
	}
	return nil
}

func reviewedRestaurant(order *model.Order, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil {
		if !order.HasRestaurant(*requested) {
			return uuid.Nil, apperr.Invalid("restaurant %s is not part of this order", *requested)
		}
		return *requested, nil
	}
	switch len(order.RestaurantIDs) {
	case 0:
		return uuid.Nil, apperr.Invalid("order has no restaurant to review")
	case 1:
		return order.RestaurantIDs[0], nil
	}
	return uuid.Nil, apperr.Invalid("order spans several restaurants; restaurant_id is required")
}
