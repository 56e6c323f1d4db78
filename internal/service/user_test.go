package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-food-api/internal/model"
)

func TestUserService_Dashboard(t *testing.T) {
	users := newMockUserRepo()
	orders := newMockOrderRepo()
	svc := NewUserService(users, orders)
	ctx := context.Background()

	user := users.add(&model.User{
		Email:      "eater@example.com",
		SavedItems: []uuid.UUID{uuid.New(), uuid.New()},
		CartItems:  []model.CartLine{{ItemID: uuid.New(), Quantity: 3}, {ItemID: uuid.New(), Quantity: 1}},
	})
	line := func(price string) []model.OrderLine {
		return []model.OrderLine{{ItemID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString(price)}}
	}
	orders.add(&model.Order{UserID: user.ID, Items: line("10")})
	orders.add(&model.Order{UserID: user.ID, Items: line("5.5"), Status: model.OrderStatusDelivered})
	orders.add(&model.Order{UserID: user.ID, Items: line("100"), Status: model.OrderStatusCancelled})
	orders.add(&model.Order{UserID: uuid.New(), Items: line("42")})

	dash, err := svc.Dashboard(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, dash.OrdersCount)
	assert.True(t, dash.TotalSpent.Equal(decimal.RequireFromString("15.5")), dash.TotalSpent.String())
	assert.Equal(t, 2, dash.SavedCount)
	assert.Equal(t, 4, dash.CartCount)
	assert.Len(t, dash.RecentOrders, 3)

	_, err = svc.Dashboard(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Profile(t *testing.T) {
	users := newMockUserRepo()
	svc := NewUserService(users, newMockOrderRepo())
	user := users.add(&model.User{Name: "Ravi", Email: "ravi@example.com", Role: model.RoleCustomer})

	resp, err := svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", resp.Name)
	assert.NotNil(t, resp.SavedItems)
}
