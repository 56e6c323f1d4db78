package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/model"
	"github.com/flicky/go-food-api/internal/repository"
)

var (
	ErrEmptyOrder       = apperr.Invalid("items are required")
	ErrEmptyCart        = apperr.Invalid("cart is empty")
	ErrAddressRequired  = apperr.Invalid("delivery address is required")
	ErrOrderNotFound    = apperr.NotFoundf("order not found")
	ErrSavedItemMissing = apperr.NotFoundf("item is not in saved items")
)

// EventPublisher announces persisted orders so back-references can be repaired asynchronously.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg model.OrderPlacedMessage) error
}

type OrderLineInput struct {
	ItemID   uuid.UUID
	Quantity int // zero means 1
}

type PlaceOrderInput struct {
	Lines         []OrderLineInput
	Address       string
	PaymentStatus model.PaymentStatus
}

type PlaceOrderResult struct {
	Order         *model.Order
	RestaurantIDs []uuid.UUID
	// DroppedItems lists cart lines skipped because their item no longer exists.
	DroppedItems []uuid.UUID
}

type OrderService struct {
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	itemRepo  repository.ItemRepository
	restRepo  repository.RestaurantRepository
	publisher EventPublisher
	log       *slog.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	itemRepo repository.ItemRepository,
	restRepo repository.RestaurantRepository,
	publisher EventPublisher,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo, userRepo: userRepo, itemRepo: itemRepo,
		restRepo: restRepo, publisher: publisher, log: log,
	}
}

// PlaceOrder snapshots item prices, groups lines by restaurant and persists one order.
// No order is written unless every item and restaurant resolves.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, ErrAddressRequired
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.place(ctx, userID, in)
}

// CheckoutCart places an order from the user's cart and clears the cart once the order is stored.
// An empty address falls back to the address on the user's profile.
func (s *OrderService) CheckoutCart(ctx context.Context, userID uuid.UUID, address string, payment model.PaymentStatus) (*PlaceOrderResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(address) == "" {
		address = user.Address
	}

	items, err := s.itemRepo.GetByIDs(ctx, cartItemIDs(user.CartItems))
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}

	var lines []OrderLineInput
	var dropped []uuid.UUID
	for _, l := range user.CartItems {
		if _, ok := items[l.ItemID]; !ok {
			dropped = append(dropped, l.ItemID)
			continue
		}
		lines = append(lines, OrderLineInput{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if strings.TrimSpace(address) == "" {
		return nil, ErrAddressRequired
	}

	res, err := s.place(ctx, userID, PlaceOrderInput{Lines: lines, Address: address, PaymentStatus: payment})
	if err != nil {
		return nil, err
	}
	res.DroppedItems = dropped

	if err := s.userRepo.UpdateCart(ctx, userID, nil); err != nil {
		s.log.Error("clear cart after checkout", "user_id", userID, "order_id", res.Order.ID, "error", err)
	}
	return res, nil
}

// OrderSavedItem places a single-line order for an item on the user's saved list.
func (s *OrderService) OrderSavedItem(ctx context.Context, userID, itemID uuid.UUID, address string, quantity int) (*PlaceOrderResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	saved := false
	for _, id := range user.SavedItems {
		if id == itemID {
			saved = true
			break
		}
	}
	if !saved {
		return nil, ErrSavedItemMissing
	}
	if strings.TrimSpace(address) == "" {
		address = user.Address
	}
	if strings.TrimSpace(address) == "" {
		return nil, ErrAddressRequired
	}
	return s.place(ctx, userID, PlaceOrderInput{
		Lines:   []OrderLineInput{{ItemID: itemID, Quantity: quantity}},
		Address: address,
	})
}

func (s *OrderService) place(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*PlaceOrderResult, error) {
	payment := in.PaymentStatus
	if payment == "" {
		payment = model.PaymentPending
	}
	if !payment.Valid() {
		return nil, apperr.Invalid("invalid payment status %q", payment)
	}
	for _, l := range in.Lines {
		if l.Quantity < 0 {
			return nil, ErrNegativeQuantity
		}
	}

	ids := make([]uuid.UUID, 0, len(in.Lines))
	for _, l := range in.Lines {
		ids = append(ids, l.ItemID)
	}
	items, err := s.itemRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}

	lines := make([]model.OrderLine, 0, len(in.Lines))
	var restaurantIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, l := range in.Lines {
		item, ok := items[l.ItemID]
		if !ok {
			return nil, apperr.NotFoundf("item not found: %s", l.ItemID)
		}
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		lines = append(lines, model.OrderLine{
			ItemID: item.ID, RestaurantID: item.RestaurantID, Quantity: qty, Price: item.Price,
		})
		if !seen[item.RestaurantID] {
			seen[item.RestaurantID] = true
			restaurantIDs = append(restaurantIDs, item.RestaurantID)
		}
	}

	existing, err := s.restRepo.ExistingIDs(ctx, restaurantIDs)
	if err != nil {
		return nil, fmt.Errorf("verify restaurants: %w", err)
	}
	if missing := missingIDs(restaurantIDs, existing); len(missing) > 0 {
		return nil, apperr.NotFoundf("restaurants not found: %s", joinIDs(missing))
	}

	order := &model.Order{
		UserID:        userID,
		RestaurantIDs: restaurantIDs,
		Items:         lines,
		Status:        model.OrderStatusPending,
		PaymentStatus: payment,
		Address:       strings.TrimSpace(in.Address),
	}
	order.RecomputeTotal()
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	log := s.log.With("order_id", order.ID, "user_id", userID)
	if err := s.userRepo.AddOrderRef(ctx, userID, order.ID); err != nil {
		log.Error("link order to user", "error", err)
	}
	if err := s.restRepo.AddOrderRef(ctx, restaurantIDs, order.ID); err != nil {
		log.Error("link order to restaurants", "restaurant_ids", restaurantIDs, "error", err)
	}
	if s.publisher != nil {
		msg := model.OrderPlacedMessage{OrderID: order.ID, UserID: userID, RestaurantIDs: restaurantIDs}
		if err := s.publisher.PublishOrderPlaced(ctx, msg); err != nil {
			log.Warn("publish order placed", "error", err)
		}
	}

	return &PlaceOrderResult{Order: order, RestaurantIDs: restaurantIDs}, nil
}

// RemoveItem drops every line for itemID and recomputes the total. An order
// left without lines is kept as is.
func (s *OrderService) RemoveItem(ctx context.Context, userID, orderID, itemID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	kept := make([]model.OrderLine, 0, len(order.Items))
	for _, l := range order.Items {
		if l.ItemID != itemID {
			kept = append(kept, l)
		}
	}
	order.Items = kept
	order.RecomputeTotal()

	if err := s.orderRepo.UpdateItems(ctx, order.ID, order.Items, order.TotalAmount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order items: %w", err)
	}
	return order, nil
}

// UpdateStatus moves an order along the status graph. Restaurants may only
// touch orders they take part in; admins may touch any order.
func (s *OrderService) UpdateStatus(ctx context.Context, actorID uuid.UUID, role string, orderID uuid.UUID, next model.OrderStatus) (*model.Order, error) {
	if !next.Valid() {
		return nil, apperr.Invalid("invalid order status %q", next)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || (role != model.RoleAdmin && !order.HasRestaurant(actorID)) {
		return nil, ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperr.Invalid("cannot change order status from %s to %s", order.Status, next)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = next
	return order, nil
}

// GetByID returns the order if it belongs to userID.
func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}

func (s *OrderService) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByRestaurantID(ctx, restaurantID)
}

// Delete removes the user's order and unlinks it from the user and its restaurants.
func (s *OrderService) Delete(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.GetByID(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}

	log := s.log.With("order_id", orderID, "user_id", userID)
	if err := s.userRepo.RemoveOrderRef(ctx, userID, orderID); err != nil {
		log.Error("unlink order from user", "error", err)
	}
	if err := s.restRepo.RemoveOrderRef(ctx, order.RestaurantIDs, orderID); err != nil {
		log.Error("unlink order from restaurants", "error", err)
	}
	return nil
}

func (s *OrderService) getUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func missingIDs(want, have []uuid.UUID) []uuid.UUID {
	found := make(map[uuid.UUID]bool, len(have))
	for _, id := range have {
		found[id] = true
	}
	var missing []uuid.UUID
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
