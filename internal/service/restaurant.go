package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/go-food-api/internal/analytics"
	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrRestaurantNotFound = apperr.NotFoundf("restaurant not found")
	ErrInvalidStatus      = apperr.Invalid("status must be open or close")
)

type RestaurantService struct {
	restRepo   repository.RestaurantRepository
	orderRepo  repository.OrderRepository
	itemRepo   repository.ItemRepository
	reviewRepo repository.ReviewRepository
}

func NewRestaurantService(
	restRepo repository.RestaurantRepository,
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	reviewRepo repository.ReviewRepository,
) *RestaurantService {
	return &RestaurantService{restRepo: restRepo, orderRepo: orderRepo, itemRepo: itemRepo, reviewRepo: reviewRepo}
}

func (s *RestaurantService) GetByID(ctx context.Context, id uuid.UUID) (*dto.RestaurantResponse, error) {
	rest, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewRestaurantResponse(rest)
	return &resp, nil
}

func (s *RestaurantService) List(ctx context.Context) ([]dto.RestaurantResponse, error) {
	rests, err := s.restRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	out := make([]dto.RestaurantResponse, 0, len(rests))
	for i := range rests {
		out = append(out, dto.NewRestaurantResponse(&rests[i]))
	}
	return out, nil
}

func (s *RestaurantService) UpdateProfile(ctx context.Context, id uuid.UUID, req dto.UpdateRestaurantRequest) (*dto.RestaurantResponse, error) {
	rest, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rest.Name = *req.Name
	}
	if req.Email != nil {
		rest.Email = normalizeEmail(*req.Email)
	}
	if req.Address != nil {
		rest.Address = *req.Address
	}
	if req.Phone != nil {
		rest.Phone = *req.Phone
	}
	if req.Type != nil {
		rest.Type = *req.Type
	}

	if err := s.restRepo.UpdateProfile(ctx, rest); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRestaurantAlreadyExists
		}
		return nil, fmt.Errorf("update restaurant: %w", err)
	}
	resp := dto.NewRestaurantResponse(rest)
	return &resp, nil
}

func (s *RestaurantService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RestaurantStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.restRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Analytics scans the restaurant's orders and reviews and builds the report.
func (s *RestaurantService) Analytics(ctx context.Context, id uuid.UUID) (*analytics.Report, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	orders, err := s.orderRepo.ListByRestaurantID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	reviews, err := s.reviewRepo.ListByRestaurantID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	items, err := s.itemRepo.GetByIDs(ctx, analytics.ItemIDs(id, orders))
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}
	return analytics.Build(id, orders, reviews, items, analytics.DefaultTopN), nil
}

func (s *RestaurantService) get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	rest, err := s.restRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if rest == nil {
		return nil, ErrRestaurantNotFound
	}
	return rest, nil
}
