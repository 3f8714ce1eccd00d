package billing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/cart"
	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
)

// MedicineNotFoundError indicates a cart line references a medicine that no
// longer exists in the catalog.
type MedicineNotFoundError struct {
	MedicineID string
}

func (e *MedicineNotFoundError) Error() string {
	return fmt.Sprintf("medicine %s not found", e.MedicineID)
}

// InsufficientStockError indicates the catalog cannot cover a line's
// quantity.
type InsufficientStockError struct {
	MedicineID string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("medicine %s: requested %d, only %d in stock",
		e.MedicineID, e.Requested, e.Available)
}

// Notifier delivers a message to a user. Failures are the implementation's
// problem; the billing service treats notification as best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// Service places orders and drives their lifecycle.
type Service struct {
	orders    Repository
	medicines medicine.Repository
	notifier  Notifier
	lg        *zap.Logger
}

// NewService creates a billing Service.
func NewService(orders Repository, medicines medicine.Repository, notifier Notifier, lg *zap.Logger) *Service {
	return &Service{
		orders:    orders,
		medicines: medicines,
		notifier:  notifier,
		lg:        lg,
	}
}

// CheckoutRequest holds the input for placing an order. Lines is the
// customer's cart snapshot; prices on it are the snapshot taken when each
// item was added, and they are what the customer is billed.
type CheckoutRequest struct {
	UserID          string
	Lines           []cart.Line
	DeliveryAddress string
	BillingAddress  string
	PaymentMethod   PaymentMethod
}

// Checkout validates the cart against the catalog, reserves stock, persists
// the order as pending/unpaid, and notifies the customer. Stock already
// taken is restored if a later line fails.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if !req.PaymentMethod.Valid() {
		return nil, errors.Wrapf(ErrInvalidPaymentMethod, "%q", req.PaymentMethod)
	}

	ids := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.ItemID
	}
	fetched, err := s.medicines.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get medicines")
	}
	byID := make(map[string]medicine.Medicine, len(fetched))
	for _, m := range fetched {
		byID[m.ID] = m
	}

	// Validate every line before touching stock.
	for _, l := range req.Lines {
		m, ok := byID[l.ItemID]
		if !ok {
			return nil, &MedicineNotFoundError{MedicineID: l.ItemID}
		}
		if m.Stock < l.Quantity {
			return nil, &InsufficientStockError{
				MedicineID: l.ItemID,
				Requested:  l.Quantity,
				Available:  m.Stock,
			}
		}
	}

	// Reserve stock line by line, compensating on failure. A concurrent
	// checkout can still win a race on the last unit; AdjustStock is the
	// authoritative guard.
	taken := make([]cart.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		if err := s.medicines.AdjustStock(ctx, l.ItemID, -l.Quantity); err != nil {
			s.restoreStock(ctx, taken)
			if errors.Is(err, medicine.ErrInsufficientStock) {
				return nil, &InsufficientStockError{
					MedicineID: l.ItemID,
					Requested:  l.Quantity,
					Available:  byID[l.ItemID].Stock,
				}
			}
			return nil, errors.Wrapf(err, "reserve stock for %s", l.ItemID)
		}
		taken = append(taken, l)
	}

	items := make([]OrderItem, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		items[i] = OrderItem{
			MedicineID: l.ItemID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Items:           items,
		Total:           total.Round(2),
		Status:          StatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   PaymentUnpaid,
		DeliveryAddress: req.DeliveryAddress,
		BillingAddress:  req.BillingAddress,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		s.restoreStock(ctx, taken)
		return nil, errors.Wrap(err, "create order")
	}

	s.notify(ctx, req.UserID, fmt.Sprintf("Order %s placed. Total: %s", o.ID, o.Total))
	return o, nil
}

// Pay marks an order paid and moves a pending order to processing.
func (s *Service) Pay(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}

	status := o.Status
	if status == StatusPending {
		status = StatusProcessing
	}
	if err := s.orders.MarkPaid(ctx, orderID, status); err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	o.PaymentStatus = PaymentPaid
	o.Status = status

	s.notify(ctx, o.UserID, fmt.Sprintf("Payment received for order %s", o.ID))
	return o, nil
}

// UpdateStatus transitions an order for the staff dashboards. Delivered is
// terminal, and a paid order cannot be cancelled.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status == StatusDelivered && status != StatusDelivered {
		return nil, ErrStatusLocked
	}
	if status == StatusCancelled && o.PaymentStatus == PaymentPaid {
		return nil, ErrStatusLocked
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	o.Status = status

	// Cancellation returns reserved stock to the catalog.
	if status == StatusCancelled {
		for _, item := range o.Items {
			if err := s.medicines.AdjustStock(ctx, item.MedicineID, item.Quantity); err != nil {
				s.lg.Warn("restock after cancellation failed",
					zap.String("order_id", o.ID),
					zap.String("medicine_id", item.MedicineID),
					zap.Error(err),
				)
			}
		}
	}

	s.notify(ctx, o.UserID, fmt.Sprintf("Order %s is now %s", o.ID, status))
	return o, nil
}

func (s *Service) restoreStock(ctx context.Context, taken []cart.Line) {
	for _, l := range taken {
		if err := s.medicines.AdjustStock(ctx, l.ItemID, l.Quantity); err != nil {
			s.lg.Warn("stock restore failed",
				zap.String("medicine_id", l.ItemID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		s.lg.Warn("notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}
