package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/lianamed/pharmacy-api/internal/cart"
	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
	"github.com/lianamed/pharmacy-api/internal/identity"
)

type cartLineResponse struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
}

type cartResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	TotalQuantity int                `json:"totalQuantity"`
	TotalPrice    float64            `json:"totalPrice"`
}

type addCartItemRequest struct {
	MedicineID string `json:"medicineId"`
}

// cartManager builds a manager bound to the request's identity over the
// shared substrate. Cheap to construct: it loads the owner's cart and is
// closed when the request ends.
func (h *Handler) cartManager(r *http.Request) *cart.Manager {
	provider := identity.NewStatic(userIDFrom(r.Context()))
	return cart.NewManager(h.cartStore, provider, h.lg)
}

func (h *Handler) respondCart(w http.ResponseWriter, lines []cart.Line) {
	out := cartResponse{
		Lines:         make([]cartLineResponse, len(lines)),
		TotalQuantity: cart.TotalQuantity(lines),
		TotalPrice:    cart.TotalPrice(lines).InexactFloat64(),
	}
	for i, l := range lines {
		out.Lines[i] = cartLineResponse{
			ItemID:    l.ItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			Image:     h.imageURL(l.ImageRef),
			Quantity:  l.Quantity,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// GetCart returns the current owner's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	m := h.cartManager(r)
	defer m.Close()
	h.respondCart(w, m.Lines())
}

// AddCartItem puts one unit of a catalog item in the cart, snapshotting its
// current name, price and image.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MedicineID == "" {
		respondError(w, http.StatusUnprocessableEntity, "medicineId is required")
		return
	}

	med, err := h.medicines.GetByID(r.Context(), req.MedicineID)
	if err != nil {
		if errors.Is(err, medicine.ErrNotFound) {
			respondError(w, http.StatusUnprocessableEntity, "medicine not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	m := h.cartManager(r)
	defer m.Close()
	m.AddItem(cart.Item{
		ItemID:    med.ID,
		Name:      med.Name,
		UnitPrice: med.Price,
		ImageRef:  med.ImageRef,
	})
	h.respondCart(w, m.Lines())
}

// RemoveCartItem drops a line. Unknown ids are fine: removing what is not
// there leaves the cart unchanged.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	m := h.cartManager(r)
	defer m.Close()
	m.RemoveItem(chi.URLParam(r, "id"))
	h.respondCart(w, m.Lines())
}

// IncreaseCartItem bumps a line's quantity by one.
func (h *Handler) IncreaseCartItem(w http.ResponseWriter, r *http.Request) {
	m := h.cartManager(r)
	defer m.Close()
	m.IncreaseQuantity(chi.URLParam(r, "id"))
	h.respondCart(w, m.Lines())
}

// DecreaseCartItem lowers a line's quantity by one, dropping the line at
// zero.
func (h *Handler) DecreaseCartItem(w http.ResponseWriter, r *http.Request) {
	m := h.cartManager(r)
	defer m.Close()
	m.DecreaseQuantity(chi.URLParam(r, "id"))
	h.respondCart(w, m.Lines())
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	m := h.cartManager(r)
	defer m.Close()
	m.Clear()
	h.respondCart(w, m.Lines())
}
