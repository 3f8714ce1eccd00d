// Package medicine holds the catalog domain: the Medicine type, its
// repository contract, and the list query semantics shared by the storefront
// and the staff dashboards.
package medicine

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested medicine does not exist.
var ErrNotFound = errors.New("medicine not found")

// Medicine is a catalog item.
type Medicine struct {
	ID                   string
	Name                 string
	Category             string
	Description          string
	Price                decimal.Decimal
	Stock                int
	ImageRef             string
	RequiresPrescription bool
	CreatedAt            time.Time
}

// Repository defines catalog persistence.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Medicine, int, error)
	GetByID(ctx context.Context, id string) (*Medicine, error)
	GetByIDs(ctx context.Context, ids []string) ([]Medicine, error)
	Create(ctx context.Context, m *Medicine) error
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id string) error
	// AdjustStock decrements (negative delta) or restocks (positive delta)
	// and fails if the result would be negative.
	AdjustStock(ctx context.Context, id string, delta int) error
}

// ErrInsufficientStock is returned by AdjustStock when a decrement would
// take the stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")
