package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lianamed/pharmacy-api/internal/domain/notification"
)

const (
	createNotificationSQL = `INSERT INTO notifications (id, user_id, message) VALUES ($1, $2, $3)`

	listNotificationsByUserSQL = `SELECT id, user_id, message, read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	markNotificationReadSQL = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create persists a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, createNotificationSQL, n.ID, n.UserID, n.Message)
	if err != nil {
		return fmt.Errorf("creating notification %q: %w", n.ID, err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.Notification, error) {
		var n notification.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt)
		return n, err
	})
}

// MarkRead flags the notification as read, scoped to its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, markNotificationReadSQL, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification %q read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}
