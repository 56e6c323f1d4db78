package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleAdmin      = "admin"
)

type User struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Password   string
	Phone      string
	Address    string
	Avatar     string
	Role       string
	SavedItems []uuid.UUID
	OrderIDs   []uuid.UUID
	CartItems  []CartLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartLine is unique by ItemID within a cart; the store does not enforce it.
type CartLine struct {
	ItemID   uuid.UUID `json:"item"`
	Quantity int       `json:"quantity"`
}

type RestaurantStatus string

const (
	RestaurantOpen  RestaurantStatus = "open"
	RestaurantClose RestaurantStatus = "close"
)

func (s RestaurantStatus) Valid() bool {
	return s == RestaurantOpen || s == RestaurantClose
}

type Restaurant struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Address   string
	Phone     string
	Avatar    string
	Role      string
	Type      string
	Status    RestaurantStatus
	Rating    int // additive accumulator of review ratings
	Reviews   int // number of reviews folded into Rating
	ItemIDs   []uuid.UUID
	OrderIDs  []uuid.UUID
	ReviewIDs []uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AverageRating is the running mean of all review ratings, rounded to two places.
func (r *Restaurant) AverageRating() decimal.Decimal {
	if r.Reviews == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Rating)).
		Div(decimal.NewFromInt(int64(r.Reviews))).
		Round(2)
}

type Item struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	ImageURL     string
	VideoURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	RestaurantIDs []uuid.UUID
	Items         []OrderLine
	TotalAmount   decimal.Decimal
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Address       string
	ReviewIDs     []uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderLine carries the item price captured when the order was placed.
type OrderLine struct {
	ItemID       uuid.UUID       `json:"item"`
	RestaurantID uuid.UUID       `json:"restaurant"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LinesTotal sums price*quantity over lines.
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// RecomputeTotal derives TotalAmount from Items.
func (o *Order) RecomputeTotal() {
	o.TotalAmount = LinesTotal(o.Items)
}

func (o *Order) HasRestaurant(id uuid.UUID) bool {
	for _, r := range o.RestaurantIDs {
		if r == id {
			return true
		}
	}
	return false
}

type Review struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	UserID       uuid.UUID
	RestaurantID uuid.UUID
	Rating       int
	Comment      string
	CreatedAt    time.Time
}

const (
	MinRating = 1
	MaxRating = 5
)

// OrderPlacedMessage is published after an order is persisted.
type OrderPlacedMessage struct {
	OrderID       uuid.UUID   `json:"order_id"`
	UserID        uuid.UUID   `json:"user_id"`
	RestaurantIDs []uuid.UUID `json:"restaurant_ids"`
}
