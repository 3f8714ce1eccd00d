package prescription

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/domain/billing"
	"github.com/lianamed/pharmacy-api/internal/domain/user"
)

// maxUploadSize bounds a prescription file (images or PDF scans).
const maxUploadSize = 10 << 20

// allowedExtensions are the upload types pharmacists can review.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true,
}

// ErrUnsupportedFile is returned for uploads outside the allowed types.
var ErrUnsupportedFile = errors.New("unsupported prescription file type")

// FileStore persists uploaded prescription files and reads them back for
// the review screen. Repository rows point at the returned references.
type FileStore interface {
	Save(ctx context.Context, ref string, r io.Reader) error
	Open(ref string) (io.ReadCloser, error)
}

// Reviewers lists the accounts that review prescriptions, so new uploads
// can be announced to them.
type Reviewers interface {
	ListByRole(ctx context.Context, roles ...user.Role) ([]user.User, error)
}

// Service handles uploads and pharmacist review.
type Service struct {
	prescriptions Repository
	files         FileStore
	notifier      billing.Notifier
	reviewers     Reviewers
	lg            *zap.Logger
}

// NewService creates a prescription Service.
func NewService(prescriptions Repository, files FileStore, notifier billing.Notifier, reviewers Reviewers, lg *zap.Logger) *Service {
	return &Service{
		prescriptions: prescriptions,
		files:         files,
		notifier:      notifier,
		reviewers:     reviewers,
		lg:            lg,
	}
}

// UploadRequest holds the input for a prescription upload.
type UploadRequest struct {
	UserID   string
	FileName string
	Size     int64
	File     io.Reader
	Notes    string
}

// Upload stores the file under a generated reference and records the
// prescription as pending review.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Prescription, error) {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedFile
	}
	if req.Size > maxUploadSize {
		return nil, errors.Errorf("file exceeds %d bytes", maxUploadSize)
	}

	id := uuid.New().String()
	ref := id + ext
	if err := s.files.Save(ctx, ref, req.File); err != nil {
		return nil, errors.Wrap(err, "save file")
	}

	p := &Prescription{
		ID:       id,
		UserID:   req.UserID,
		FileRef:  ref,
		FileName: req.FileName,
		Notes:    req.Notes,
		Status:   StatusPending,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create prescription")
	}

	s.notifyReviewers(ctx, p)
	return p, nil
}

// notifyReviewers tells pharmacists and admins about a new pending upload.
// Notification is best-effort; the upload already succeeded.
func (s *Service) notifyReviewers(ctx context.Context, p *Prescription) {
	if s.notifier == nil || s.reviewers == nil {
		return
	}
	staff, err := s.reviewers.ListByRole(ctx, user.RolePharmacist, user.RoleAdmin)
	if err != nil {
		s.lg.Warn("listing reviewers failed", zap.Error(err))
		return
	}
	msg := fmt.Sprintf("New prescription %s awaiting review", p.ID)
	for _, reviewer := range staff {
		if err := s.notifier.Notify(ctx, reviewer.ID, msg); err != nil {
			s.lg.Warn("reviewer notification failed",
				zap.String("user_id", reviewer.ID), zap.Error(err))
		}
	}
}

// OpenFile returns a prescription with a reader over its stored file. The
// caller closes the reader and enforces who may see it.
func (s *Service) OpenFile(ctx context.Context, id string) (*Prescription, io.ReadCloser, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(p.FileRef)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open file")
	}
	return p, rc, nil
}

// Review decides a pending prescription and notifies its owner. Approved and
// rejected are final.
func (s *Service) Review(ctx context.Context, id string, status Status, reviewerID string) (*Prescription, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPending {
		return nil, ErrAlreadyReviewed
	}

	if err := s.prescriptions.UpdateStatus(ctx, id, status, reviewerID); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	p.Status = status
	p.ReviewedBy = reviewerID

	if s.notifier != nil {
		msg := fmt.Sprintf("Your prescription %s was %s", p.ID, status)
		if err := s.notifier.Notify(ctx, p.UserID, msg); err != nil {
			s.lg.Warn("prescription notification failed",
				zap.String("user_id", p.UserID), zap.Error(err))
		}
	}
	return p, nil
}
