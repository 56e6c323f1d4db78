package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-food-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// ListByRestaurantID scans orders by their forward reference, not Restaurant.OrderIDs.
	ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Order, error)
	UpdateItems(ctx context.Context, id uuid.UUID, items []model.OrderLine, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddReviewRef(ctx context.Context, id, reviewID uuid.UUID) error
	RemoveReviewRef(ctx context.Context, id, reviewID uuid.UUID) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, restaurant_ids, items, total_amount, status, payment_status,
	address, review_ids, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.RestaurantIDs, &o.Items, &o.TotalAmount, &o.Status, &o.PaymentStatus,
		&o.Address, &o.ReviewIDs, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	if order.Items == nil {
		order.Items = []model.OrderLine{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, restaurant_ids, items, total_amount, status, payment_status, address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.RestaurantIDs, order.Items, order.TotalAmount,
		order.Status, order.PaymentStatus, order.Address,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE restaurant_ids @> ARRAY[$1::uuid] ORDER BY created_at DESC`, restaurantID)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *pgOrderRepo) UpdateItems(ctx context.Context, id uuid.UUID, items []model.OrderLine, total decimal.Decimal) error {
	if items == nil {
		items = []model.OrderLine{}
	}
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET items = $2, total_amount = $3, updated_at = NOW() WHERE id = $1`, id, items, total,
	)
	if err != nil {
		return fmt.Errorf("update order items: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) AddReviewRef(ctx context.Context, id, reviewID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET review_ids = array_append(review_ids, $2), updated_at = NOW()
		 WHERE id = $1 AND NOT ($2 = ANY(review_ids))`, id, reviewID,
	)
	if err != nil {
		return fmt.Errorf("add order review ref: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) RemoveReviewRef(ctx context.Context, id, reviewID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE orders SET review_ids = array_remove(review_ids, $2), updated_at = NOW() WHERE id = $1`, id, reviewID,
	)
	if err != nil {
		return fmt.Errorf("remove order review ref: %w", err)
	}
	return nil
}
