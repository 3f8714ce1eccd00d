// Package notification holds per-user notifications raised by order and
// prescription events.
package notification

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no notification matches the lookup.
var ErrNotFound = errors.New("notification not found")

// Notification is one message for one user.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Repository defines notification persistence.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Service creates and reads notifications. It satisfies billing.Notifier.
type Service struct {
	repo Repository
}

// NewService creates a notification Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify records a message for userID.
func (s *Service) Notify(ctx context.Context, userID, message string) error {
	return s.repo.Create(ctx, &Notification{
		ID:      uuid.New().String(),
		UserID:  userID,
		Message: message,
	})
}

// ListForUser returns the user's notifications, newest first per the
// repository's ordering.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead flags one of the user's notifications as read. The userID guard
// stops one user marking another's notifications.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}
