package dto

import (
	"github.com/google/uuid"

	"github.com/flicky/go-food-api/internal/model"
)

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Address: u.Address,
		Avatar: u.Avatar, Role: u.Role, SavedItems: nonNilIDs(u.SavedItems), Orders: nonNilIDs(u.OrderIDs),
		CreatedAt: u.CreatedAt,
	}
}

func NewRestaurantResponse(r *model.Restaurant) RestaurantResponse {
	return RestaurantResponse{
		ID: r.ID, Name: r.Name, Email: r.Email, Address: r.Address, Phone: r.Phone, Avatar: r.Avatar,
		Type: r.Type, Status: r.Status, Rating: r.Rating, AverageRating: r.AverageRating(),
		ReviewCount: r.Reviews, Items: nonNilIDs(r.ItemIDs), Orders: nonNilIDs(r.OrderIDs),
		Reviews: nonNilIDs(r.ReviewIDs), CreatedAt: r.CreatedAt,
	}
}

func NewItemResponse(it *model.Item) ItemResponse {
	return ItemResponse{
		ID: it.ID, RestaurantID: it.RestaurantID, Name: it.Name, Description: it.Description,
		Price: it.Price, Category: it.Category, ImageURL: it.ImageURL, VideoURL: it.VideoURL,
		CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt,
	}
}

func NewOrderResponse(o *model.Order) OrderResponse {
	items := make([]OrderLineResponse, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, OrderLineResponse{
			ItemID: l.ItemID, RestaurantID: l.RestaurantID, Quantity: l.Quantity, Price: l.Price,
		})
	}
	return OrderResponse{
		ID: o.ID, UserID: o.UserID, Restaurants: nonNilIDs(o.RestaurantIDs), Items: items,
		TotalAmount: o.TotalAmount, Status: o.Status, PaymentStatus: o.PaymentStatus,
		Address: o.Address, Reviews: nonNilIDs(o.ReviewIDs), CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

func NewOrderListResponse(orders []model.Order) OrderListResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return OrderListResponse{Orders: out, Total: len(out)}
}

func NewReviewResponse(r *model.Review) ReviewResponse {
	return ReviewResponse{
		ID: r.ID, OrderID: r.OrderID, UserID: r.UserID, RestaurantID: r.RestaurantID,
		Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt,
	}
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
