// Package prescription handles uploaded prescriptions and their pharmacist
// review lifecycle.
package prescription

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Status is the review state of a prescription.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known review status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when no prescription matches the lookup.
	ErrNotFound = errors.New("prescription not found")
	// ErrInvalidStatus is returned on an unknown review status.
	ErrInvalidStatus = errors.New("invalid prescription status")
	// ErrAlreadyReviewed is returned when re-reviewing a decided
	// prescription.
	ErrAlreadyReviewed = errors.New("prescription already reviewed")
)

// Prescription is an uploaded prescription document's metadata; the file
// itself lives in the file store under FileRef.
type Prescription struct {
	ID         string
	UserID     string
	FileRef    string
	FileName   string
	Notes      string
	Status     Status
	ReviewedBy string
	CreatedAt  time.Time
}

// Repository defines prescription persistence.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id string) (*Prescription, error)
	ListByUser(ctx context.Context, userID string) ([]Prescription, error)
	ListAll(ctx context.Context) ([]Prescription, error)
	UpdateStatus(ctx context.Context, id string, status Status, reviewedBy string) error
}
