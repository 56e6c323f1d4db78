package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-food-api/internal/dto"
	"github.com/flicky/go-food-api/internal/model"
)

func TestRestaurantService_UpdateProfileAndStatus(t *testing.T) {
	rests := newMockRestaurantRepo()
	svc := NewRestaurantService(rests, newMockOrderRepo(), newMockItemRepo(), newMockReviewRepo())
	ctx := context.Background()
	rest := rests.add(&model.Restaurant{Name: "Old", Email: "old@example.com", Status: model.RestaurantOpen})

	name := "New name"
	email := " NEW@example.com"
	resp, err := svc.UpdateProfile(ctx, rest.ID, dto.UpdateRestaurantRequest{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "New name", resp.Name)
	assert.Equal(t, "new@example.com", resp.Email)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, rest.ID, "closed-forever"), ErrInvalidStatus)
	require.NoError(t, svc.UpdateStatus(ctx, rest.ID, model.RestaurantClose))
	assert.Equal(t, model.RestaurantClose, rests.rests[rest.ID].Status)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, uuid.New(), model.RestaurantOpen), ErrRestaurantNotFound)
	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestRestaurantService_Analytics(t *testing.T) {
	rests := newMockRestaurantRepo()
	orders := newMockOrderRepo()
	items := newMockItemRepo()
	reviews := newMockReviewRepo()
	svc := NewRestaurantService(rests, orders, items, reviews)
	ctx := context.Background()

	rest := rests.add(&model.Restaurant{Name: "Taco Town"})
	other := rests.add(&model.Restaurant{Name: "Elsewhere"})
	taco := items.add(rest.ID, "Taco", "3")
	fries := items.add(other.ID, "Fries", "2")
	when := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	orders.add(&model.Order{
		UserID: uuid.New(), RestaurantIDs: []uuid.UUID{rest.ID, other.ID}, Status: model.OrderStatusDelivered, CreatedAt: when,
		Items: []model.OrderLine{
			{ItemID: taco.ID, RestaurantID: rest.ID, Quantity: 4, Price: taco.Price},
			{ItemID: fries.ID, RestaurantID: other.ID, Quantity: 1, Price: fries.Price},
		},
	})
	orders.add(&model.Order{
		UserID: uuid.New(), RestaurantIDs: []uuid.UUID{rest.ID}, Status: model.OrderStatusCancelled, CreatedAt: when,
		Items: []model.OrderLine{{ItemID: taco.ID, RestaurantID: rest.ID, Quantity: 1, Price: taco.Price}},
	})

	report, err := svc.Analytics(ctx, rest.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.TotalOrders)
	assert.Equal(t, 1, report.Summary.CancelledOrders)
	assert.True(t, report.Summary.Revenue.Equal(decimal.NewFromInt(12)), report.Summary.Revenue.String())
	assert.True(t, report.Cancellations.LostRevenue.Equal(decimal.NewFromInt(3)))
	require.Len(t, report.TopItems, 1)
	assert.Equal(t, "Taco", report.TopItems[0].Name)

	_, err = svc.Analytics(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}
