package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrUserNotFound     = apperr.NotFoundf("user not found")
	ErrCartItemNotFound = apperr.NotFoundf("item is not in cart")
	ErrNegativeQuantity = apperr.Invalid("quantity must not be negative")
)

type CartService struct {
	userRepo repository.UserRepository
	itemRepo repository.ItemRepository
}

func NewCartService(userRepo repository.UserRepository, itemRepo repository.ItemRepository) *CartService {
	return &CartService{userRepo: userRepo, itemRepo: itemRepo}
}

// AddToCart increments the line for itemID, or appends it with quantity 1.
// The read-modify-write is not guarded: two concurrent adds may lose one increment.
func (s *CartService) AddToCart(ctx context.Context, userID, itemID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.requireItem(ctx, itemID); err != nil {
		return err
	}

	lines := cloneCart(user.CartItems)
	found := false
	for i := range lines {
		if lines[i].ItemID == itemID {
			lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, model.CartLine{ItemID: itemID, Quantity: 1})
	}

	if err := s.userRepo.UpdateCart(ctx, userID, lines); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// SetQuantity sets the line quantity exactly. Zero removes the line and is a
// no-op when the line is absent; a positive quantity requires the line to exist.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	lines := cloneCart(user.CartItems)
	idx := -1
	for i := range lines {
		if lines[i].ItemID == itemID {
			idx = i
			break
		}
	}

	switch {
	case quantity == 0 && idx < 0:
		return nil
	case quantity == 0:
		lines = append(lines[:idx], lines[idx+1:]...)
	case idx < 0:
		return ErrCartItemNotFound
	default:
		lines[idx].Quantity = quantity
	}

	if err := s.userRepo.UpdateCart(ctx, userID, lines); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	lines := make([]model.CartLine, 0, len(user.CartItems))
	for _, l := range user.CartItems {
		if l.ItemID != itemID {
			lines = append(lines, l)
		}
	}
	if len(lines) == len(user.CartItems) {
		return nil
	}

	if err := s.userRepo.UpdateCart(ctx, userID, lines); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// ListCart resolves cart lines against the live catalog at current prices.
// Lines whose item no longer exists are left out.
func (s *CartService) ListCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.GetByIDs(ctx, cartItemIDs(user.CartItems))
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}

	resp := &dto.CartResponse{Items: []dto.CartLineResponse{}, TotalAmount: decimal.Zero}
	for _, l := range user.CartItems {
		item, ok := items[l.ItemID]
		if !ok {
			continue
		}
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		resp.Items = append(resp.Items, dto.CartLineResponse{
			Item: dto.NewItemResponse(item), Quantity: l.Quantity, Subtotal: subtotal,
		})
		resp.TotalItems += l.Quantity
		resp.TotalAmount = resp.TotalAmount.Add(subtotal)
	}
	return resp, nil
}

func (s *CartService) SaveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.requireItem(ctx, itemID); err != nil {
		return err
	}

	saved := append(append([]uuid.UUID(nil), user.SavedItems...), itemID)
	if err := s.userRepo.UpdateSavedItems(ctx, userID, saved); err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

// UnsaveItem removes every occurrence of itemID from the saved list.
func (s *CartService) UnsaveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	saved := make([]uuid.UUID, 0, len(user.SavedItems))
	for _, id := range user.SavedItems {
		if id != itemID {
			saved = append(saved, id)
		}
	}
	if len(saved) == len(user.SavedItems) {
		return nil
	}

	if err := s.userRepo.UpdateSavedItems(ctx, userID, saved); err != nil {
		return fmt.Errorf("unsave item: %w", err)
	}
	return nil
}

// ListSaved returns the saved items that still exist, in saved order.
func (s *CartService) ListSaved(ctx context.Context, userID uuid.UUID) ([]dto.ItemResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.GetByIDs(ctx, user.SavedItems)
	if err != nil {
		return nil, fmt.Errorf("resolve saved items: %w", err)
	}

	out := make([]dto.ItemResponse, 0, len(user.SavedItems))
	for _, id := range user.SavedItems {
		if item, ok := items[id]; ok {
			out = append(out, dto.NewItemResponse(item))
		}
	}
	return out, nil
}

func (s *CartService) getUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *CartService) requireItem(ctx context.Context, itemID uuid.UUID) error {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return ErrItemNotFound
	}
	return nil
}

func cloneCart(lines []model.CartLine) []model.CartLine {
	return append([]model.CartLine(nil), lines...)
}

func cartItemIDs(lines []model.CartLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	return ids
}
