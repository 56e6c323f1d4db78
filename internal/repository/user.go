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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateCart(ctx context.Context, userID uuid.UUID, lines []model.CartLine) error
	UpdateSavedItems(ctx context.Context, userID uuid.UUID, items []uuid.UUID) error
	AddOrderRef(ctx context.Context, userID, orderID uuid.UUID) error
	RemoveOrderRef(ctx context.Context, userID, orderID uuid.UUID) error
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

const userColumns = `id, name, email, password, phone, address, avatar, role,
	saved_items, order_ids, cart_items, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Phone, &u.Address, &u.Avatar, &u.Role,
		&u.SavedItems, &u.OrderIDs, &u.CartItems, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *pgUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	if user.CartItems == nil {
		user.CartItems = []model.CartLine{}
	}
	query := `INSERT INTO users (id, name, email, password, phone, address, avatar, role, cart_items, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Email, user.Password, user.Phone, user.Address, user.Avatar, user.Role, user.CartItems,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// UpdateCart overwrites the whole cart document. Concurrent writers are last-write-wins.
func (r *pgUserRepo) UpdateCart(ctx context.Context, userID uuid.UUID, lines []model.CartLine) error {
	if lines == nil {
		lines = []model.CartLine{}
	}
	ct, err := r.pool.Exec(ctx,
		`UPDATE users SET cart_items = $2, updated_at = NOW() WHERE id = $1`, userID, lines,
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgUserRepo) UpdateSavedItems(ctx context.Context, userID uuid.UUID, items []uuid.UUID) error {
	if items == nil {
		items = []uuid.UUID{}
	}
	ct, err := r.pool.Exec(ctx,
		`UPDATE users SET saved_items = $2, updated_at = NOW() WHERE id = $1`, userID, items,
	)
	if err != nil {
		return fmt.Errorf("update saved items: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgUserRepo) AddOrderRef(ctx context.Context, userID, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET order_ids = array_append(order_ids, $2), updated_at = NOW()
		 WHERE id = $1 AND NOT ($2 = ANY(order_ids))`, userID, orderID,
	)
	if err != nil {
		return fmt.Errorf("add user order ref: %w", err)
	}
	return nil
}

func (r *pgUserRepo) RemoveOrderRef(ctx context.Context, userID, orderID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET order_ids = array_remove(order_ids, $2), updated_at = NOW() WHERE id = $1`,
		userID, orderID,
	)
	if err != nil {
		return fmt.Errorf("remove user order ref: %w", err)
	}
	return nil
}
