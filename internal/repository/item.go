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

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// GetByIDs returns the items that still exist, keyed by id.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Item, error)
	List(ctx context.Context, restaurantID uuid.UUID) ([]model.Item, error)
	// Update and Delete return pgx.ErrNoRows when the item does not exist.
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgItemRepo struct{ pool *pgxpool.Pool }

func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &pgItemRepo{pool: pool}
}

const itemColumns = `id, restaurant_id, name, description, price, category, image_url, video_url, created_at, updated_at`

func scanItem(row pgx.Row) (*model.Item, error) {
	it := &model.Item{}
	err := row.Scan(
		&it.ID, &it.RestaurantID, &it.Name, &it.Description, &it.Price, &it.Category,
		&it.ImageURL, &it.VideoURL, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

func (r *pgItemRepo) Create(ctx context.Context, item *model.Item) error {
	item.ID = uuid.New()
	query := `INSERT INTO items (id, restaurant_id, name, description, price, category, image_url, video_url, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.ID, item.RestaurantID, item.Name, item.Description, item.Price, item.Category, item.ImageURL, item.VideoURL,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *pgItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *pgItemRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Item, error) {
	out := make(map[uuid.UUID]*model.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

// List returns all items, or only those of restaurantID when it is not uuid.Nil.
func (r *pgItemRepo) List(ctx context.Context, restaurantID uuid.UUID) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR restaurant_id = $1)
		 ORDER BY created_at DESC`, restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *pgItemRepo) Update(ctx context.Context, item *model.Item) error {
	query := `UPDATE items SET name=$2, description=$3, price=$4, category=$5, image_url=$6, video_url=$7, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		item.ID, item.Name, item.Description, item.Price, item.Category, item.ImageURL, item.VideoURL,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (r *pgItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
