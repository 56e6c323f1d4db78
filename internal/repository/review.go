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

type ReviewRepository interface {
	// Create returns ErrDuplicate when (order, user) already has a review.
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error)
	GetByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Review, error)
	ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

const reviewColumns = `id, order_id, user_id, restaurant_id, rating, comment, created_at`

func scanReview(row pgx.Row) (*model.Review, error) {
	rv := &model.Review{}
	err := row.Scan(&rv.ID, &rv.OrderID, &rv.UserID, &rv.RestaurantID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}

func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	review.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, order_id, user_id, restaurant_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		review.ID, review.OrderID, review.UserID, review.RestaurantID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *pgReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	return r.getOne(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
}

func (r *pgReviewRepo) GetByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Review, error) {
	return r.getOne(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE order_id = $1 AND user_id = $2`, orderID, userID)
}

func (r *pgReviewRepo) getOne(ctx context.Context, query string, args ...any) (*model.Review, error) {
	review, err := scanReview(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (r *pgReviewRepo) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE restaurant_id = $1 ORDER BY created_at DESC`, restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, rows.Err()
}

func (r *pgReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
