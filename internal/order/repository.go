package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arasta-be/internal/inventory"
	"arasta-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// pendingGuardConstraint is the partial unique index backing the
// one-pending-order-per-user invariant (see migrations/0001_init.sql).
const pendingGuardConstraint = "orders_one_pending_per_user"

type Repository interface {
	CreateOrderTx(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error)
	HasPendingOrder(ctx context.Context, userID uint) (bool, error)

	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetByAuthority(ctx context.Context, authority string) (*Order, error)
	ListUserOrders(ctx context.Context, userID uint) ([]*Order, error)
	ListUnsettled(ctx context.Context) ([]*Order, error)

	SetAuthority(ctx context.Context, orderID uuid.UUID, authority string) error
	MarkCompleted(ctx context.Context, orderID uuid.UUID, refID string) error
	MarkFailedAndRelease(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderState(ctx context.Context, orderID uuid.UUID, from, to State) error
	SetTrackingCode(ctx context.Context, orderID uuid.UUID, code string) error

	ReleaseAndDelete(ctx context.Context, orderID uuid.UUID) (int, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db  *sql.DB
	inv inventory.Repository
}

func NewRepository(db *sql.DB, inv inventory.Repository) Repository {
	return &repository{db: db, inv: inv}
}

const orderColumns = `
	id, user_id, order_status, payment_status, payment_method,
	delivery_method, total_price, authority, ref_id, tracking_code,
	created_at, updated_at
`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderStatus, &o.PaymentStatus, &o.PaymentMethod,
		&o.DeliveryMethod, &o.TotalPrice, &o.Authority, &o.RefID, &o.TrackingCode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrderTx reserves stock, freezes unit prices and persists the order
// with its items in a single transaction. Any item coming up short rolls
// the whole reservation back, so the net inventory effect of a failed
// request is zero.
func (r *repository) CreateOrderTx(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Uint("user_id", userID),
		zap.Int("item_count", len(input.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	order := &Order{
		ID:             uuid.New(),
		UserID:         userID,
		OrderStatus:    StatusPending,
		PaymentStatus:  PaymentPending,
		PaymentMethod:  input.PaymentMethod,
		DeliveryMethod: input.DeliveryMethod,
	}

	for _, req := range input.Items {
		// Conditional decrement; the ledger rejects missing or short stock.
		if err := r.inv.ReserveTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
			log.Warn("stock reservation failed",
				zap.Uint("product_id", req.ProductID),
				zap.Int("quantity", req.Quantity),
				zap.Error(err),
			)
			return nil, err
		}

		var price float64
		err := tx.QueryRowContext(ctx,
			`SELECT price FROM products WHERE id = $1`, req.ProductID,
		).Scan(&price)
		if err != nil {
			return nil, fmt.Errorf("failed to read product price: %w", err)
		}

		order.Items = append(order.Items, OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Price:     price,
		})
		order.TotalPrice += float64(req.Quantity) * price
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, user_id, order_status, payment_status,
			payment_method, delivery_method, total_price
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`,
		order.ID, order.UserID, order.OrderStatus, order.PaymentStatus,
		order.PaymentMethod, order.DeliveryMethod, order.TotalPrice,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == pendingGuardConstraint {
			return nil, ErrPendingOrderExists
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	committed = true

	log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.Float64("total_price", order.TotalPrice),
	)

	return order, nil
}

func (r *repository) HasPendingOrder(ctx context.Context, userID uint) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM orders
			WHERE user_id = $1 AND order_status = 'pending' AND payment_status = 'pending'
		)
	`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending order: %w", err)
	}
	return exists, nil
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetByAuthority(ctx context.Context, authority string) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE authority = $1`, authority)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order by authority: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uint) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListUnsettled returns reconciliation candidates: orders whose payment is
// still pending or already failed, items eagerly loaded.
func (r *repository) ListUnsettled(ctx context.Context) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_status IN ('pending', 'failed')
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsettled orders: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *repository) loadItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) SetAuthority(ctx context.Context, orderID uuid.UUID, authority string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET authority = $1, updated_at = NOW() WHERE id = $2
	`, authority, orderID)
	if err != nil {
		return fmt.Errorf("failed to set authority: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkCompleted moves (pending, pending) to (processing, completed). The
// WHERE clause is the storage-level transition guard; a concurrent writer
// losing the race gets ErrInvalidTransition.
func (r *repository) MarkCompleted(ctx context.Context, orderID uuid.UUID, refID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = 'processing', payment_status = 'completed',
		    ref_id = $1, updated_at = NOW()
		WHERE id = $2 AND order_status = 'pending' AND payment_status = 'pending'
	`, refID, orderID)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkFailedAndRelease transitions payment to failed and returns the
// reserved stock. Items are deleted in the same transaction as the release,
// so a concurrent reconciliation pass finds nothing left to release.
func (r *repository) MarkFailedAndRelease(ctx context.Context, orderID uuid.UUID) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "MarkFailedAndRelease"),
		zap.String("order_id", orderID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = 'failed', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInvalidTransition
	}

	if _, err := releaseItemsTx(ctx, tx, r.inv, orderID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit compensation: %w", err)
	}
	committed = true

	log.Info("order marked failed, stock released")
	return nil
}

func (r *repository) UpdateOrderState(ctx context.Context, orderID uuid.UUID, from, to State) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3 AND order_status = $4 AND payment_status = $5
	`, to.Order, to.Payment, orderID, from.Order, from.Payment)
	if err != nil {
		return fmt.Errorf("failed to update order state: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *repository) SetTrackingCode(ctx context.Context, orderID uuid.UUID, code string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET tracking_code = $1, updated_at = NOW()
		WHERE id = $2 AND order_status = 'shipped'
	`, code, orderID)
	if err != nil {
		return fmt.Errorf("failed to set tracking code: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrOrderNotShipped
	}
	return nil
}

// ReleaseAndDelete reverts an abandoned order: release every reserved
// quantity, drop its items, then the order, all in one transaction. Returns
// the total quantity released. The order delete is guarded on an unsettled
// payment status; if a verification completed the order in between, the
// whole transaction rolls back and nothing is released.
func (r *repository) ReleaseAndDelete(ctx context.Context, orderID uuid.UUID) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	released, err := releaseItemsTx(ctx, tx, r.inv, orderID)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1 AND payment_status IN ('pending', 'failed')
	`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return 0, ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit release: %w", err)
	}
	committed = true

	return released, nil
}

func (r *repository) Delete(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1 AND payment_status IN ('pending', 'failed')
	`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// releaseItemsTx deletes the order's items and returns each quantity to
// stock. Deleting and releasing in one statement sequence inside the
// caller's transaction makes release idempotent: a second pass over the
// same order deletes zero rows and releases nothing.
func releaseItemsTx(ctx context.Context, tx *sql.Tx, inv inventory.Repository, orderID uuid.UUID) (int, error) {
	rows, err := tx.QueryContext(ctx, `
		DELETE FROM order_items
		WHERE order_id = $1
		RETURNING product_id, quantity
	`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order items: %w", err)
	}

	type released struct {
		productID uint
		quantity  int
	}
	var toRelease []released
	for rows.Next() {
		var rel released
		if err := rows.Scan(&rel.productID, &rel.quantity); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan released item: %w", err)
		}
		toRelease = append(toRelease, rel)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, rel := range toRelease {
		if err := inv.ReleaseTx(ctx, tx, rel.productID, rel.quantity); err != nil {
			return 0, err
		}
		total += rel.quantity
	}
	return total, nil
}
