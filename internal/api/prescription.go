package api

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/domain/prescription"
)

type prescriptionResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	FileName   string    `json:"fileName"`
	File       string    `json:"file"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	ReviewedBy string    `json:"reviewedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type reviewPrescriptionRequest struct {
	Status string `json:"status"`
}

func toPrescriptionResponse(p *prescription.Prescription) prescriptionResponse {
	return prescriptionResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		FileName:   p.FileName,
		File:       "/api/prescriptions/" + p.ID + "/file",
		Notes:      p.Notes,
		Status:     string(p.Status),
		ReviewedBy: p.ReviewedBy,
		CreatedAt:  p.CreatedAt,
	}
}

// UploadPrescription accepts a multipart upload with a "file" part and an
// optional "notes" field.
func (h *Handler) UploadPrescription(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	p, err := h.prescriptions.Upload(r.Context(), prescription.UploadRequest{
		UserID:   userIDFrom(r.Context()),
		FileName: header.Filename,
		Size:     header.Size,
		File:     file,
		Notes:    r.FormValue("notes"),
	})
	if err != nil {
		if errors.Is(err, prescription.ErrUnsupportedFile) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPrescriptionResponse(p))
}

// MyPrescriptions lists the authenticated user's uploads.
func (h *Handler) MyPrescriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.prescRepo.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondPrescriptions(w, list)
}

// AllPrescriptions lists every prescription for the review queue.
func (h *Handler) AllPrescriptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.prescRepo.ListAll(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	h.respondPrescriptions(w, list)
}

func (h *Handler) respondPrescriptions(w http.ResponseWriter, list []prescription.Prescription) {
	out := make([]prescriptionResponse, len(list))
	for i := range list {
		out[i] = toPrescriptionResponse(&list[i])
	}
	respondJSON(w, http.StatusOK, out)
}

// GetPrescriptionFile streams the stored file. Customers only reach their
// own uploads; pharmacists and admins reach all of them for review.
func (h *Handler) GetPrescriptionFile(w http.ResponseWriter, r *http.Request) {
	p, rc, err := h.prescriptions.OpenFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, prescription.ErrNotFound) {
			respondError(w, http.StatusNotFound, "prescription not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	defer rc.Close()

	claims, _ := claimsFrom(r.Context())
	if p.UserID != claims.Subject && !claims.Role.Staff() {
		respondError(w, http.StatusNotFound, "prescription not found")
		return
	}

	if ct := mime.TypeByExtension(filepath.Ext(p.FileRef)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+p.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		zctx.From(r.Context()).Warn("streaming prescription file failed", zap.Error(err))
	}
}

// ReviewPrescription approves or rejects a pending upload.
func (h *Handler) ReviewPrescription(w http.ResponseWriter, r *http.Request) {
	var req reviewPrescriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.prescriptions.Review(r.Context(),
		chi.URLParam(r, "id"),
		prescription.Status(req.Status),
		userIDFrom(r.Context()),
	)
	if err != nil {
		switch {
		case errors.Is(err, prescription.ErrNotFound):
			respondError(w, http.StatusNotFound, "prescription not found")
		case errors.Is(err, prescription.ErrInvalidStatus):
			respondError(w, http.StatusUnprocessableEntity, "invalid prescription status")
		case errors.Is(err, prescription.ErrAlreadyReviewed):
			respondError(w, http.StatusConflict, "prescription already reviewed")
		default:
			respondInternal(w, r, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, toPrescriptionResponse(p))
}
