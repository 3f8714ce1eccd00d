// Package billing holds orders: checkout from a cart snapshot, payment
// marking, and the status lifecycle staff dashboards drive.
package billing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks whether an order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMpesa  PaymentMethod = "Mpesa"
	PaymentCard   PaymentMethod = "Card"
	PaymentPayPal PaymentMethod = "PayPal"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMpesa, PaymentCard, PaymentPayPal:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no order matches the lookup.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned on checkout with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAlreadyPaid is returned on paying an order twice.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrInvalidStatus is returned on an unknown target status.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidPaymentMethod is returned on checkout with an unknown
	// payment method.
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	// ErrStatusLocked is returned when the requested transition is not
	// allowed: delivered is terminal, and a paid order cannot be cancelled.
	ErrStatusLocked = errors.New("order status cannot be changed")
)

// Order is a placed order. Item names and prices are the cart's snapshot at
// checkout time, not live catalog values.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	Total           decimal.Decimal
	Status          Status
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	DeliveryAddress string
	BillingAddress  string
	CreatedAt       time.Time
}

// OrderItem is one purchased line.
type OrderItem struct {
	MedicineID string          `json:"medicineId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
}

// Repository defines order persistence.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	MarkPaid(ctx context.Context, id string, status Status) error
}
