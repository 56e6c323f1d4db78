package dto

import (
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/model"
)

// --- Auth ---

type RegisterUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type RegisterRestaurantRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Address  string `json:"address" binding:"required"`
	Phone    string `json:"phone"`
	Type     string `json:"type" binding:"omitempty,oneof=veg non-veg both"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Subject any    `json:"subject"`
}

type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type OTPVerifiedResponse struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	ResetToken   string    `json:"reset_token"`
}

type ResetPasswordRequest struct {
	ResetToken string `json:"reset_token" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
}

// --- Users ---

type UserResponse struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Address    string      `json:"address"`
	Avatar     string      `json:"avatar"`
	Role       string      `json:"role"`
	SavedItems []uuid.UUID `json:"saved_items"`
	Orders     []uuid.UUID `json:"orders"`
	CreatedAt  time.Time   `json:"created_at"`
}

type DashboardResponse struct {
	OrdersCount  int             `json:"orders_count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	SavedCount   int             `json:"saved_count"`
	CartCount    int             `json:"cart_count"`
	RecentOrders []OrderResponse `json:"recent_orders"`
}

// --- Restaurants ---

type RestaurantResponse struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Address       string                 `json:"address"`
	Phone         string                 `json:"phone"`
	Avatar        string                 `json:"avatar"`
	Type          string                 `json:"type"`
	Status        model.RestaurantStatus `json:"status"`
	Rating        int                    `json:"rating"`
	AverageRating decimal.Decimal        `json:"average_rating"`
	ReviewCount   int                    `json:"review_count"`
	Items         []uuid.UUID            `json:"items"`
	Orders        []uuid.UUID            `json:"orders"`
	Reviews       []uuid.UUID            `json:"reviews"`
	CreatedAt     time.Time              `json:"created_at"`
}

type UpdateRestaurantRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Type    *string `json:"type" binding:"omitempty,oneof=veg non-veg both"`
}

type UpdateRestaurantStatusRequest struct {
	Status model.RestaurantStatus `json:"status" binding:"required"`
}

// --- Items ---

type CreateItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Image       *multipart.FileHeader
	Video       *multipart.FileHeader
}

type CreateItemForm struct {
	Name        string                `form:"name" binding:"required"`
	Description string                `form:"description" binding:"required"`
	Price       string                `form:"price" binding:"required"`
	Category    string                `form:"category" binding:"required"`
	Image       *multipart.FileHeader `form:"imageUrl"`
	Video       *multipart.FileHeader `form:"videoUrl"`
}

type UpdateItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
}

type ItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	RestaurantID uuid.UUID       `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url,omitempty"`
	VideoURL     string          `json:"video_url"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// --- Cart ---

type UpdateCartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartLineResponse struct {
	Item     ItemResponse    `json:"item"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items       []CartLineResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

// --- Orders ---

type OrderLineRequest struct {
	Item     uuid.UUID `json:"item" binding:"required"`
	Quantity int       `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items         []OrderLineRequest  `json:"items"`
	Address       string              `json:"address"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type CheckoutRequest struct {
	Address       string              `json:"address"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type OrderSavedItemRequest struct {
	Address  string `json:"address"`
	Quantity int    `json:"quantity"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type PlaceOrderResponse struct {
	OrderID         uuid.UUID     `json:"order_id"`
	Restaurants     []uuid.UUID   `json:"restaurants"`
	RestaurantCount int           `json:"restaurant_count"`
	Order           OrderResponse `json:"order"`
	DroppedItems    []uuid.UUID   `json:"dropped_items,omitempty"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Restaurants   []uuid.UUID         `json:"restaurants"`
	Items         []OrderLineResponse `json:"items"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Address       string              `json:"address"`
	Reviews       []uuid.UUID         `json:"reviews"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type OrderLineResponse struct {
	ItemID       uuid.UUID       `json:"item"`
	RestaurantID uuid.UUID       `json:"restaurant"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

type OrderStatusResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Reviews ---

type AddReviewRequest struct {
	OrderID      uuid.UUID  `json:"order_id" binding:"required"`
	RestaurantID *uuid.UUID `json:"restaurant_id"`
	Rating       int        `json:"rating" binding:"required"`
	Comment      string     `json:"comment"`
}

type ReviewResponse struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	UserID       uuid.UUID `json:"user_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
