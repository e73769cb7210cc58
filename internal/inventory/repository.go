package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository is the stock ledger. Reserve is the only way quantity goes
// down and Release the only way it goes back up; both are single atomic
// statements so concurrent checkouts can never oversell.
type Repository interface {
	GetProduct(ctx context.Context, productID uint) (*Product, error)

	Reserve(ctx context.Context, productID uint, qty int) error
	Release(ctx context.Context, productID uint, qty int) error

	// Tx variants for callers holding their own transaction, so a
	// multi-item reservation stays all-or-nothing.
	ReserveTx(ctx context.Context, tx *sql.Tx, productID uint, qty int) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, productID uint, qty int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) GetProduct(ctx context.Context, productID uint) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *repository) Reserve(ctx context.Context, productID uint, qty int) error {
	return reserve(ctx, r.db, productID, qty)
}

func (r *repository) ReserveTx(ctx context.Context, tx *sql.Tx, productID uint, qty int) error {
	return reserve(ctx, tx, productID, qty)
}

// reserve is a conditional decrement. The WHERE clause is the stock check:
// two concurrent reservations for the last units cannot both match, so the
// quantity column never goes negative.
func reserve(ctx context.Context, q execer, productID uint, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND quantity >= $1
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read reserve result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing product from a short one.
	var exists bool
	err = q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func (r *repository) Release(ctx context.Context, productID uint, qty int) error {
	return release(ctx, r.db, productID, qty)
}

func (r *repository) ReleaseTx(ctx context.Context, tx *sql.Tx, productID uint, qty int) error {
	return release(ctx, tx, productID, qty)
}

func release(ctx context.Context, q execer, productID uint, qty int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	return nil
}
