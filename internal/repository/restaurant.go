package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-food-api/internal/model"
)

type RestaurantRepository interface {
	Create(ctx context.Context, r *model.Restaurant) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
	GetByEmail(ctx context.Context, email string) (*model.Restaurant, error)
	List(ctx context.Context) ([]model.Restaurant, error)
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	UpdateProfile(ctx context.Context, r *model.Restaurant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RestaurantStatus) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	AddItemRef(ctx context.Context, id, itemID uuid.UUID) error
	RemoveItemRef(ctx context.Context, id, itemID uuid.UUID) error
	AddOrderRef(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error
	RemoveOrderRef(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error
	AddReview(ctx context.Context, id, reviewID uuid.UUID, rating int) error
	RemoveReview(ctx context.Context, id, reviewID uuid.UUID, rating int) error
}

type pgRestaurantRepo struct{ pool *pgxpool.Pool }

func NewRestaurantRepository(pool *pgxpool.Pool) RestaurantRepository {
	return &pgRestaurantRepo{pool: pool}
}

const restaurantColumns = `id, name, email, password, address, phone, avatar, role, type, status,
	rating, review_count, item_ids, order_ids, review_ids, created_at, updated_at`

func scanRestaurant(row pgx.Row) (*model.Restaurant, error) {
	r := &model.Restaurant{}
	err := row.Scan(
		&r.ID, &r.Name, &r.Email, &r.Password, &r.Address, &r.Phone, &r.Avatar, &r.Role, &r.Type, &r.Status,
		&r.Rating, &r.Reviews, &r.ItemIDs, &r.OrderIDs, &r.ReviewIDs, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

func (r *pgRestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	rest.ID = uuid.New()
	query := `INSERT INTO restaurants (id, name, email, password, address, phone, avatar, role, type, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		rest.ID, rest.Name, rest.Email, rest.Password, rest.Address, rest.Phone, rest.Avatar,
		rest.Role, rest.Type, rest.Status,
	).Scan(&rest.CreatedAt, &rest.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create restaurant: %w", err)
	}
	return nil
}

func (r *pgRestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	rest, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restaurant by id: %w", err)
	}
	return rest, nil
}

func (r *pgRestaurantRepo) GetByEmail(ctx context.Context, email string) (*model.Restaurant, error) {
	rest, err := scanRestaurant(r.pool.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restaurant by email: %w", err)
	}
	return rest, nil
}

func (r *pgRestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	var out []model.Restaurant
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		out = append(out, *rest)
	}
	return out, rows.Err()
}

func (r *pgRestaurantRepo) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM restaurants WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find restaurants: %w", err)
	}
	defer rows.Close()

	var found []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan restaurant id: %w", err)
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

func (r *pgRestaurantRepo) UpdateProfile(ctx context.Context, rest *model.Restaurant) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE restaurants SET name=$2, email=$3, address=$4, phone=$5, type=$6, updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		rest.ID, rest.Name, rest.Email, rest.Address, rest.Phone, rest.Type,
	).Scan(&rest.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update restaurant: %w", err)
	}
	return nil
}

func (r *pgRestaurantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RestaurantStatus) error {
	return r.exec(ctx, "update restaurant status",
		`UPDATE restaurants SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

func (r *pgRestaurantRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.exec(ctx, "update restaurant password",
		`UPDATE restaurants SET password = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

func (r *pgRestaurantRepo) AddItemRef(ctx context.Context, id, itemID uuid.UUID) error {
	return r.exec(ctx, "add restaurant item ref",
		`UPDATE restaurants SET item_ids = array_append(item_ids, $2), updated_at = NOW()
		 WHERE id = $1 AND NOT ($2 = ANY(item_ids))`, id, itemID)
}

func (r *pgRestaurantRepo) RemoveItemRef(ctx context.Context, id, itemID uuid.UUID) error {
	return r.exec(ctx, "remove restaurant item ref",
		`UPDATE restaurants SET item_ids = array_remove(item_ids, $2), updated_at = NOW() WHERE id = $1`, id, itemID)
}

func (r *pgRestaurantRepo) AddOrderRef(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error {
	return r.exec(ctx, "add restaurant order refs",
		`UPDATE restaurants SET order_ids = array_append(order_ids, $2), updated_at = NOW()
		 WHERE id = ANY($1) AND NOT ($2 = ANY(order_ids))`, ids, orderID)
}

func (r *pgRestaurantRepo) RemoveOrderRef(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error {
	return r.exec(ctx, "remove restaurant order refs",
		`UPDATE restaurants SET order_ids = array_remove(order_ids, $2), updated_at = NOW() WHERE id = ANY($1)`, ids, orderID)
}

func (r *pgRestaurantRepo) AddReview(ctx context.Context, id, reviewID uuid.UUID, rating int) error {
	return r.exec(ctx, "add restaurant review",
		`UPDATE restaurants SET review_ids = array_append(review_ids, $2),
		        rating = rating + $3, review_count = review_count + 1, updated_at = NOW()
		 WHERE id = $1`, id, reviewID, rating)
}

func (r *pgRestaurantRepo) RemoveReview(ctx context.Context, id, reviewID uuid.UUID, rating int) error {
	return r.exec(ctx, "remove restaurant review",
		`UPDATE restaurants SET review_ids = array_remove(review_ids, $2),
		        rating = GREATEST(rating - $3, 0), review_count = GREATEST(review_count - 1, 0), updated_at = NOW()
		 WHERE id = $1 AND $2 = ANY(review_ids)`, id, reviewID, rating)
}

func (r *pgRestaurantRepo) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
