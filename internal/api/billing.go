package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/lianamed/pharmacy-api/internal/domain/billing"
)

type checkoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress"`
	BillingAddress  string `json:"billingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

type orderItemResponse struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   int     `json:"quantity"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Items           []orderItemResponse `json:"items"`
	Total           float64             `json:"total"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentStatus   string              `json:"paymentStatus"`
	DeliveryAddress string              `json:"deliveryAddress"`
	BillingAddress  string              `json:"billingAddress"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func toOrderResponse(o *billing.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			MedicineID: item.MedicineID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice.InexactFloat64(),
			Quantity:   item.Quantity,
		}
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		Total:           o.Total.InexactFloat64(),
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		DeliveryAddress: o.DeliveryAddress,
		BillingAddress:  o.BillingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

// Checkout places an order from the authenticated user's cart and clears the
// cart on success.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m := h.cartManager(r)
	defer m.Close()

	o, err := h.billing.Checkout(r.Context(), billing.CheckoutRequest{
		UserID:          userIDFrom(r.Context()),
		Lines:           m.Lines(),
		DeliveryAddress: req.DeliveryAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   billing.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		h.mapCheckoutError(w, r, err)
		return
	}

	m.Clear()
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) mapCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nfErr    *billing.MedicineNotFoundError
		stockErr *billing.InsufficientStockError
	)
	switch {
	case errors.Is(err, billing.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, billing.ErrInvalidPaymentMethod):
		respondError(w, http.StatusUnprocessableEntity, "unsupported payment method")
	case errors.As(err, &nfErr):
		respondError(w, http.StatusUnprocessableEntity, nfErr.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusUnprocessableEntity, stockErr.Error())
	default:
		respondInternal(w, r, err)
	}
}

// MyOrders returns the authenticated user's orders.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondOrders(w, orders)
}

// AllOrders returns every order for the staff dashboards.
func (h *Handler) AllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondOrders(w, orders)
}

func (h *Handler) respondOrders(w http.ResponseWriter, orders []billing.Order) {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// GetOrder returns one order. Customers only see their own; staff see all.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	claims, _ := claimsFrom(r.Context())
	if o.UserID != claims.Subject && !claims.Role.Staff() {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// PayOrder marks the authenticated user's order as paid.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	if o.UserID != userIDFrom(r.Context()) {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	paid, err := h.billing.Pay(r.Context(), id)
	if err != nil {
		if errors.Is(err, billing.ErrAlreadyPaid) {
			respondError(w, http.StatusConflict, "order already paid")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(paid))
}

// UpdateOrderStatus transitions an order (staff only).
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.billing.UpdateStatus(r.Context(), chi.URLParam(r, "id"), billing.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, billing.ErrInvalidStatus):
			respondError(w, http.StatusUnprocessableEntity, "invalid order status")
		case errors.Is(err, billing.ErrStatusLocked):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondInternal(w, r, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
