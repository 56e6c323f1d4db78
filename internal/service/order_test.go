package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-food-api/internal/apperr"
	"github.com/flicky/go-food-api/internal/model"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.RestaurantIDs = append([]uuid.UUID(nil), o.RestaurantIDs...)
	c.Items = append([]model.OrderLine(nil), o.Items...)
	c.ReviewIDs = append([]uuid.UUID(nil), o.ReviewIDs...)
	return &c
}

func (m *mockOrderRepo) add(o *model.Order) *model.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	o.RecomputeTotal()
	m.orders[o.ID] = o
	return o
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		return copyOrder(o), nil
	}
	return nil, nil
}

func (m *mockOrderRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByRestaurantID(_ context.Context, restaurantID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.HasRestaurant(restaurantID) {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateItems(_ context.Context, id uuid.UUID, items []model.OrderLine, total decimal.Decimal) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Items = append([]model.OrderLine(nil), items...)
	o.TotalAmount = total
	return nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepo) AddReviewRef(_ context.Context, id, reviewID uuid.UUID) error {
	if o, ok := m.orders[id]; ok && !containsID(o.ReviewIDs, reviewID) {
		o.ReviewIDs = append(o.ReviewIDs, reviewID)
	}
	return nil
}

func (m *mockOrderRepo) RemoveReviewRef(_ context.Context, id, reviewID uuid.UUID) error {
	if o, ok := m.orders[id]; ok {
		o.ReviewIDs = removeID(o.ReviewIDs, reviewID)
	}
	return nil
}

type mockPublisher struct {
	published []model.OrderPlacedMessage
	err       error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, msg model.OrderPlacedMessage) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

type orderFixture struct {
	users     *mockUserRepo
	rests     *mockRestaurantRepo
	items     *mockItemRepo
	orders    *mockOrderRepo
	publisher *mockPublisher
	svc       *OrderService

	user         *model.User
	r1, r2       *model.Restaurant
	burger, cola *model.Item
	salad        *model.Item
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		users:     newMockUserRepo(),
		rests:     newMockRestaurantRepo(),
		items:     newMockItemRepo(),
		orders:    newMockOrderRepo(),
		publisher: &mockPublisher{},
	}
	f.svc = NewOrderService(f.orders, f.users, f.items, f.rests, f.publisher, discardLogger())
	f.user = f.users.add(&model.User{Email: "eater@example.com", Address: "1 Home st", Role: model.RoleCustomer})
	f.r1 = f.rests.add(&model.Restaurant{Name: "Burger Barn", Email: "bb@example.com"})
	f.r2 = f.rests.add(&model.Restaurant{Name: "Green Bowl", Email: "gb@example.com"})
	f.burger = f.items.add(f.r1.ID, "Burger", "9.50")
	f.cola = f.items.add(f.r1.ID, "Cola", "2.00")
	f.salad = f.items.add(f.r2.ID, "Salad", "7.25")
	return f
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	res, err := f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderInput{
		Lines: []OrderLineInput{
			{ItemID: f.burger.ID, Quantity: 2},
			{ItemID: f.salad.ID},
			{ItemID: f.cola.ID, Quantity: 3},
		},
		Address: "  22 Elm st ",
	})
	require.NoError(t, err)

	order := res.Order
	assert.Equal(t, []uuid.UUID{f.r1.ID, f.r2.ID}, res.RestaurantIDs)
	assert.Equal(t, res.RestaurantIDs, order.RestaurantIDs)
	assert.Equal(t, "22 Elm st", order.Address)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	require.Len(t, order.Items, 3)
	assert.Equal(t, 1, order.Items[1].Quantity)
	assert.Equal(t, f.r2.ID, order.Items[1].RestaurantID)

	// 2*9.50 + 7.25 + 3*2.00
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("32.25")), order.TotalAmount.String())
	assert.True(t, order.TotalAmount.Equal(model.LinesTotal(order.Items)))

	assert.Contains(t, f.users.users[f.user.ID].OrderIDs, order.ID)
	assert.Contains(t, f.rests.rests[f.r1.ID].OrderIDs, order.ID)
	assert.Contains(t, f.rests.rests[f.r2.ID].OrderIDs, order.ID)
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, order.ID, f.publisher.published[0].OrderID)
}

func TestOrderService_PlaceOrder_PriceSnapshot(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	res, err := f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderInput{
		Lines:   []OrderLineInput{{ItemID: f.burger.ID, Quantity: 2}},
		Address: "22 Elm st",
	})
	require.NoError(t, err)

	f.items.items[f.burger.ID].Price = decimal.RequireFromString("99.99")

	stored, err := f.svc.GetByID(ctx, res.Order.ID, f.user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(19)), stored.TotalAmount.String())
	assert.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("9.50")))
}

func TestOrderService_PlaceOrder_UnresolvableItemCreatesNothing(t *testing.T) {
	f := newOrderFixture()
	missing := uuid.New()

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
		Lines:   []OrderLineInput{{ItemID: f.burger.ID}, {ItemID: missing}},
		Address: "22 Elm st",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), missing.String())
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.publisher.published)
}

func TestOrderService_PlaceOrder_MissingRestaurantCreatesNothing(t *testing.T) {
	f := newOrderFixture()
	orphan := f.items.add(uuid.New(), "Ghost dish", "5")

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
		Lines:   []OrderLineInput{{ItemID: orphan.ID}},
		Address: "22 Elm st",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "restaurants not found")
	assert.Empty(t, f.orders.orders)
}

func TestOrderService_PlaceOrder_Validation(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		userID uuid.UUID
		in     PlaceOrderInput
		want   error
		kind   apperr.Kind
	}{
		{"no lines", f.user.ID, PlaceOrderInput{Address: "x"}, ErrEmptyOrder, apperr.InvalidArgument},
		{"blank address", f.user.ID, PlaceOrderInput{Lines: []OrderLineInput{{ItemID: f.burger.ID}}, Address: "  "}, ErrAddressRequired, apperr.InvalidArgument},
		{"unknown user", uuid.New(), PlaceOrderInput{Lines: []OrderLineInput{{ItemID: f.burger.ID}}, Address: "x"}, ErrUserNotFound, apperr.NotFound},
		{"negative quantity", f.user.ID, PlaceOrderInput{Lines: []OrderLineInput{{ItemID: f.burger.ID, Quantity: -2}}, Address: "x"}, ErrNegativeQuantity, apperr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	_, err := f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderInput{
		Lines: []OrderLineInput{{ItemID: f.burger.ID}}, Address: "x", PaymentStatus: "bartered",
	})
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
	assert.Empty(t, f.orders.orders)
}

func TestOrderService_PlaceOrder_SideEffectFailuresAreTolerated(t *testing.T) {
	f := newOrderFixture()
	f.rests.addOrderRefErr = errors.New("connection reset")
	f.publisher.err = errors.New("broker down")

	res, err := f.svc.PlaceOrder(context.Background(), f.user.ID, PlaceOrderInput{
		Lines: []OrderLineInput{{ItemID: f.burger.ID}}, Address: "x",
	})
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, res.Order.ID)
	assert.NotContains(t, f.rests.rests[f.r1.ID].OrderIDs, res.Order.ID)
}

func TestOrderService_CheckoutCart(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	gone := uuid.New()
	f.users.users[f.user.ID].CartItems = []model.CartLine{
		{ItemID: f.burger.ID, Quantity: 2},
		{ItemID: gone, Quantity: 1},
		{ItemID: f.salad.ID, Quantity: 1},
	}

	res, err := f.svc.CheckoutCart(ctx, f.user.ID, "", model.PaymentPaid)
	require.NoError(t, err)

	assert.Len(t, res.Order.Items, 2)
	assert.Equal(t, []uuid.UUID{gone}, res.DroppedItems)
	assert.Equal(t, "1 Home st", res.Order.Address)
	assert.Equal(t, model.PaymentPaid, res.Order.PaymentStatus)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("26.25")))
	assert.Empty(t, f.users.users[f.user.ID].CartItems)
}

func TestOrderService_CheckoutCart_Empty(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.svc.CheckoutCart(ctx, f.user.ID, "22 Elm st", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	f.users.users[f.user.ID].CartItems = []model.CartLine{{ItemID: uuid.New(), Quantity: 1}}
	_, err = f.svc.CheckoutCart(ctx, f.user.ID, "22 Elm st", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.orders.orders)
}

func TestOrderService_CheckoutCart_ClearFailureKeepsOrder(t *testing.T) {
	f := newOrderFixture()
	f.users.users[f.user.ID].CartItems = []model.CartLine{{ItemID: f.cola.ID, Quantity: 1}}
	f.users.updateCartErr = errors.New("write timeout")

	res, err := f.svc.CheckoutCart(context.Background(), f.user.ID, "22 Elm st", "")
	require.NoError(t, err)
	assert.Contains(t, f.orders.orders, res.Order.ID)
	assert.Len(t, f.users.users[f.user.ID].CartItems, 1)
}

func TestOrderService_OrderSavedItem(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.svc.OrderSavedItem(ctx, f.user.ID, f.salad.ID, "", 1)
	assert.ErrorIs(t, err, ErrSavedItemMissing)

	f.users.users[f.user.ID].SavedItems = []uuid.UUID{f.salad.ID}
	res, err := f.svc.OrderSavedItem(ctx, f.user.ID, f.salad.ID, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.r2.ID}, res.RestaurantIDs)
	assert.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("14.5")))
}

func TestOrderService_RemoveItem(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	order := f.orders.add(&model.Order{
		UserID: f.user.ID, RestaurantIDs: []uuid.UUID{f.r1.ID},
		Items: []model.OrderLine{
			{ItemID: f.burger.ID, RestaurantID: f.r1.ID, Quantity: 1, Price: f.burger.Price},
			{ItemID: f.cola.ID, RestaurantID: f.r1.ID, Quantity: 2, Price: f.cola.Price},
		},
	})

	updated, err := f.svc.RemoveItem(ctx, f.user.ID, order.ID, f.burger.ID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(4)))

	updated, err = f.svc.RemoveItem(ctx, f.user.ID, order.ID, f.cola.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.True(t, updated.TotalAmount.IsZero())

	stored := f.orders.orders[order.ID]
	require.NotNil(t, stored)
	assert.Empty(t, stored.Items)
	assert.True(t, stored.TotalAmount.IsZero())
}

func TestOrderService_RemoveItem_NotOwner(t *testing.T) {
	f := newOrderFixture()
	order := f.orders.add(&model.Order{UserID: uuid.New(), RestaurantIDs: []uuid.UUID{f.r1.ID}})

	_, err := f.svc.RemoveItem(context.Background(), f.user.ID, order.ID, f.burger.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	order := f.orders.add(&model.Order{UserID: f.user.ID, RestaurantIDs: []uuid.UUID{f.r1.ID}})

	updated, err := f.svc.UpdateStatus(ctx, f.r1.ID, model.RoleRestaurant, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
	assert.Equal(t, model.OrderStatusConfirmed, f.orders.orders[order.ID].Status)

	_, err = f.svc.UpdateStatus(ctx, f.r1.ID, model.RoleRestaurant, order.ID, model.OrderStatusDelivered)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, f.r2.ID, model.RoleRestaurant, order.ID, model.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.UpdateStatus(ctx, f.r1.ID, model.RoleRestaurant, order.ID, "teleported")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

	updated, err = f.svc.UpdateStatus(ctx, uuid.New(), model.RoleAdmin, order.ID, model.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, f.r1.ID, model.RoleRestaurant, order.ID, model.OrderStatusPending)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestOrderService_Delete(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	res, err := f.svc.PlaceOrder(ctx, f.user.ID, PlaceOrderInput{
		Lines: []OrderLineInput{{ItemID: f.burger.ID}, {ItemID: f.salad.ID}}, Address: "x",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, uuid.New(), res.Order.ID), ErrOrderNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.user.ID, res.Order.ID))
	assert.Empty(t, f.orders.orders)
	assert.NotContains(t, f.users.users[f.user.ID].OrderIDs, res.Order.ID)
	assert.NotContains(t, f.rests.rests[f.r2.ID].OrderIDs, res.Order.ID)
}

func TestOrderService_Lists(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.add(&model.Order{UserID: f.user.ID, RestaurantIDs: []uuid.UUID{f.r1.ID}})
	f.orders.add(&model.Order{UserID: f.user.ID, RestaurantIDs: []uuid.UUID{f.r1.ID, f.r2.ID}})
	f.orders.add(&model.Order{UserID: uuid.New(), RestaurantIDs: []uuid.UUID{f.r2.ID}})

	mine, err := f.svc.ListByUserID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	forR2, err := f.svc.ListByRestaurantID(ctx, f.r2.ID)
	require.NoError(t, err)
	assert.Len(t, forR2, 2)
}
