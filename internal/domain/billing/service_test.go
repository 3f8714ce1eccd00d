package billing

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/cart"
	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
)

// --- Mock implementations ---

type mockMedicineRepo struct {
	byID    map[string]*medicine.Medicine
	getErr  error
	stockOp []string
}

func (m *mockMedicineRepo) List(context.Context, medicine.ListQuery) ([]medicine.Medicine, int, error) {
	return nil, 0, nil
}

func (m *mockMedicineRepo) GetByID(_ context.Context, id string) (*medicine.Medicine, error) {
	med, ok := m.byID[id]
	if !ok {
		return nil, medicine.ErrNotFound
	}
	return med, nil
}

func (m *mockMedicineRepo) GetByIDs(_ context.Context, ids []string) ([]medicine.Medicine, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]medicine.Medicine, 0, len(ids))
	for _, id := range ids {
		if med, ok := m.byID[id]; ok {
			out = append(out, *med)
		}
	}
	return out, nil
}

func (m *mockMedicineRepo) Create(context.Context, *medicine.Medicine) error { return nil }
func (m *mockMedicineRepo) Update(context.Context, *medicine.Medicine) error { return nil }
func (m *mockMedicineRepo) Delete(context.Context, string) error             { return nil }

func (m *mockMedicineRepo) AdjustStock(_ context.Context, id string, delta int) error {
	med, ok := m.byID[id]
	if !ok {
		return medicine.ErrNotFound
	}
	if med.Stock+delta < 0 {
		return medicine.ErrInsufficientStock
	}
	med.Stock += delta
	op := "take"
	if delta > 0 {
		op = "restore"
	}
	m.stockOp = append(m.stockOp, op+":"+id)
	return nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	createErr error
	last      *Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[o.ID] = o
	m.last = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string, status Status) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = PaymentPaid
	o.Status = status
	return nil
}

type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, _, message string) error {
	m.messages = append(m.messages, message)
	return nil
}

// --- Helpers ---

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func catalog(meds ...medicine.Medicine) *mockMedicineRepo {
	byID := make(map[string]*medicine.Medicine, len(meds))
	for i := range meds {
		byID[meds[i].ID] = &meds[i]
	}
	return &mockMedicineRepo{byID: byID}
}

func med(id string, stock int, p string) medicine.Medicine {
	return medicine.Medicine{ID: id, Name: "med-" + id, Price: price(p), Stock: stock}
}

func checkoutReq(lines ...cart.Line) CheckoutRequest {
	return CheckoutRequest{
		UserID:          "u1",
		Lines:           lines,
		DeliveryAddress: "12 Moi Ave",
		BillingAddress:  "12 Moi Ave",
		PaymentMethod:   PaymentMpesa,
	}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	svc := NewService(newMockOrderRepo(), catalog(), nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), checkoutReq())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_UnsupportedPaymentMethod(t *testing.T) {
	svc := NewService(newMockOrderRepo(), catalog(med("m1", 5, "50")), nil, zap.NewNop())

	req := checkoutReq(cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 1})
	req.PaymentMethod = "Barter"
	_, err := svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCheckout_BillsCartSnapshotPrices(t *testing.T) {
	// Catalog price changed to 80 after the customer added at 50; the
	// snapshot price is what gets billed.
	orders := newMockOrderRepo()
	notifier := &mockNotifier{}
	svc := NewService(orders, catalog(med("m1", 10, "80")), notifier, zap.NewNop())

	o, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", Name: "Paracetamol", UnitPrice: price("50"), Quantity: 3},
	))

	require.NoError(t, err)
	assert.True(t, price("150.00").Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Paracetamol", o.Items[0].Name)
	assert.NotNil(t, orders.last)
	assert.Len(t, notifier.messages, 1)
}

func TestCheckout_DecrementsStock(t *testing.T) {
	meds := catalog(med("m1", 5, "50"), med("m2", 2, "20"))
	svc := NewService(newMockOrderRepo(), meds, nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 3},
		cart.Line{ItemID: "m2", UnitPrice: price("20"), Quantity: 2},
	))

	require.NoError(t, err)
	assert.Equal(t, 2, meds.byID["m1"].Stock)
	assert.Equal(t, 0, meds.byID["m2"].Stock)
}

func TestCheckout_UnknownMedicine(t *testing.T) {
	svc := NewService(newMockOrderRepo(), catalog(), nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "ghost", UnitPrice: price("5"), Quantity: 1},
	))

	var nfErr *MedicineNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "ghost", nfErr.MedicineID)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	meds := catalog(med("m1", 2, "50"))
	svc := NewService(newMockOrderRepo(), meds, nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 3},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 2, meds.byID["m1"].Stock, "stock must be untouched")
}

func TestCheckout_RestoresStockWhenCreateFails(t *testing.T) {
	orders := newMockOrderRepo()
	orders.createErr = errors.New("db down")
	meds := catalog(med("m1", 5, "50"))
	svc := NewService(orders, meds, nil, zap.NewNop())

	_, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 3},
	))

	require.Error(t, err)
	assert.Equal(t, 5, meds.byID["m1"].Stock)
	assert.Equal(t, []string{"take:m1", "restore:m1"}, meds.stockOp)
}

func TestPay(t *testing.T) {
	orders := newMockOrderRepo()
	svc := NewService(orders, catalog(med("m1", 5, "50")), nil, zap.NewNop())

	o, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 1},
	))
	require.NoError(t, err)

	paid, err := svc.Pay(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, StatusProcessing, paid.Status)

	_, err = svc.Pay(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	orders := newMockOrderRepo()
	meds := catalog(med("m1", 5, "50"))
	svc := NewService(orders, meds, nil, zap.NewNop())

	o, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 2},
	))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID, "teleported")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := svc.UpdateStatus(context.Background(), o.ID, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusDelivered)
	require.NoError(t, err)

	// Delivered is terminal.
	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusPending)
	assert.ErrorIs(t, err, ErrStatusLocked)
}

func TestUpdateStatus_CancelRestocksAndPaidOrdersStay(t *testing.T) {
	orders := newMockOrderRepo()
	meds := catalog(med("m1", 5, "50"))
	svc := NewService(orders, meds, nil, zap.NewNop())

	o, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 2},
	))
	require.NoError(t, err)
	require.Equal(t, 3, meds.byID["m1"].Stock)

	_, err = svc.UpdateStatus(context.Background(), o.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, meds.byID["m1"].Stock, "cancellation must restock")

	// A paid order cannot be cancelled.
	o2, err := svc.Checkout(context.Background(), checkoutReq(
		cart.Line{ItemID: "m1", UnitPrice: price("50"), Quantity: 1},
	))
	require.NoError(t, err)
	_, err = svc.Pay(context.Background(), o2.ID)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), o2.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrStatusLocked)
}
