package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
)

type medicineResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Category             string  `json:"category"`
	Description          string  `json:"description"`
	Price                float64 `json:"price"`
	Stock                int     `json:"stock"`
	Image                string  `json:"image,omitempty"`
	RequiresPrescription bool    `json:"requiresPrescription"`
}

type medicineListResponse struct {
	Medicines []medicineResponse `json:"medicines"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	PageSize  int                `json:"pageSize"`
}

type medicineRequest struct {
	Name                 string  `json:"name"`
	Category             string  `json:"category"`
	Description          string  `json:"description"`
	Price                string  `json:"price"`
	Stock                int     `json:"stock"`
	Image                string  `json:"image"`
	RequiresPrescription bool    `json:"requiresPrescription"`
}

func (h *Handler) toMedicineResponse(m medicine.Medicine) medicineResponse {
	return medicineResponse{
		ID:                   m.ID,
		Name:                 m.Name,
		Category:             m.Category,
		Description:          m.Description,
		Price:                m.Price.InexactFloat64(),
		Stock:                m.Stock,
		Image:                h.imageURL(m.ImageRef),
		RequiresPrescription: m.RequiresPrescription,
	}
}

// ListMedicines returns one catalog page, honoring search/sort/pagination
// query parameters.
func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	q := medicine.ParseListQuery(r.URL.Query())

	meds, total, err := h.medicines.List(r.Context(), q)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := medicineListResponse{
		Medicines: make([]medicineResponse, len(meds)),
		Total:     total,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	for i, m := range meds {
		out.Medicines[i] = h.toMedicineResponse(m)
	}
	respondJSON(w, http.StatusOK, out)
}

// GetMedicine returns one catalog item.
func (h *Handler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := h.medicines.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, medicine.ErrNotFound) {
			respondError(w, http.StatusNotFound, "medicine not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toMedicineResponse(*m))
}

// CreateMedicine adds a catalog item (admin/pharmacist).
func (h *Handler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, ok := medicineFromRequest(w, req)
	if !ok {
		return
	}
	m.ID = uuid.New().String()

	if err := h.medicines.Create(r.Context(), m); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.toMedicineResponse(*m))
}

// UpdateMedicine replaces a catalog item's mutable fields (admin/pharmacist).
func (h *Handler) UpdateMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, ok := medicineFromRequest(w, req)
	if !ok {
		return
	}
	m.ID = chi.URLParam(r, "id")

	if err := h.medicines.Update(r.Context(), m); err != nil {
		if errors.Is(err, medicine.ErrNotFound) {
			respondError(w, http.StatusNotFound, "medicine not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toMedicineResponse(*m))
}

// DeleteMedicine removes a catalog item (admin/pharmacist).
func (h *Handler) DeleteMedicine(w http.ResponseWriter, r *http.Request) {
	if err := h.medicines.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, medicine.ErrNotFound) {
			respondError(w, http.StatusNotFound, "medicine not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// medicineFromRequest validates the write payload. Price arrives as a string
// to preserve decimal exactness.
func medicineFromRequest(w http.ResponseWriter, req medicineRequest) (*medicine.Medicine, bool) {
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return nil, false
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusUnprocessableEntity, "price must be a non-negative decimal")
		return nil, false
	}
	if req.Stock < 0 {
		respondError(w, http.StatusUnprocessableEntity, "stock must not be negative")
		return nil, false
	}
	return &medicine.Medicine{
		Name:                 req.Name,
		Category:             req.Category,
		Description:          req.Description,
		Price:                price,
		Stock:                req.Stock,
		ImageRef:             req.Image,
		RequiresPrescription: req.RequiresPrescription,
	}, true
}
