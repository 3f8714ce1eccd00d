package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lianamed/pharmacy-api/internal/domain/billing"
)

const (
	orderColumns = `id, user_id, items, total, status, payment_method, payment_status, delivery_address, billing_address, created_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, total, status, payment_method, payment_status, delivery_address, billing_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	markOrderPaidSQL = `UPDATE orders SET payment_status = 'paid', status = $2 WHERE id = $1`
)

var _ billing.Repository = (*OrderRepository)(nil)

// OrderRepository implements billing.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are serialized to JSON for the JSONB
// column.
func (r *OrderRepository) Create(ctx context.Context, o *billing.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.Total, o.Status,
		o.PaymentMethod, o.PaymentStatus, o.DeliveryAddress, o.BillingAddress,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*billing.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]billing.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]billing.Order, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the order's fulfilment status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status billing.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrNotFound
	}
	return nil
}

// MarkPaid records payment and the accompanying status move.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, status billing.Status) error {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, id, status)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (billing.Order, error) {
	var (
		o         billing.Order
		itemsJSON []byte
		total     decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &total, &o.Status,
		&o.PaymentMethod, &o.PaymentStatus, &o.DeliveryAddress, &o.BillingAddress, &o.CreatedAt,
	)
	if err != nil {
		return billing.Order{}, err
	}
	o.Total = total
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return billing.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
