package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

const recentOrdersLimit = 5

type UserService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
}

func NewUserService(userRepo repository.UserRepository, orderRepo repository.OrderRepository) *UserService {
	return &UserService{userRepo: userRepo, orderRepo: orderRepo}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// Dashboard summarises the user's activity. Orders are read from the orders
// collection rather than User.OrderIDs.
func (s *UserService) Dashboard(ctx context.Context, userID uuid.UUID) (*dto.DashboardResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	resp := &dto.DashboardResponse{
		OrdersCount:  len(orders),
		TotalSpent:   decimal.Zero,
		SavedCount:   len(user.SavedItems),
		RecentOrders: []dto.OrderResponse{},
	}
	for _, l := range user.CartItems {
		resp.CartCount += l.Quantity
	}
	for i := range orders {
		if orders[i].Status != model.OrderStatusCancelled {
			resp.TotalSpent = resp.TotalSpent.Add(orders[i].TotalAmount)
		}
		if i < recentOrdersLimit {
			resp.RecentOrders = append(resp.RecentOrders, dto.NewOrderResponse(&orders[i]))
		}
	}
	return resp, nil
}
