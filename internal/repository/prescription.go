package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lianamed/pharmacy-api/internal/domain/prescription"
)

const (
	prescriptionColumns = `id, user_id, file_ref, file_name, notes, status, reviewed_by, created_at`

	createPrescriptionSQL = `INSERT INTO prescriptions (id, user_id, file_ref, file_name, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getPrescriptionByIDSQL = `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`

	listPrescriptionsByUserSQL = `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE user_id = $1 ORDER BY created_at DESC`

	listAllPrescriptionsSQL = `SELECT ` + prescriptionColumns + ` FROM prescriptions ORDER BY created_at DESC`

	updatePrescriptionStatusSQL = `UPDATE prescriptions SET status = $2, reviewed_by = $3 WHERE id = $1`
)

var _ prescription.Repository = (*PrescriptionRepository)(nil)

// PrescriptionRepository implements prescription.Repository backed by
// PostgreSQL.
type PrescriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPrescriptionRepository returns a PrescriptionRepository that uses the
// given pool.
func NewPrescriptionRepository(pool *pgxpool.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{pool: pool}
}

// Create persists new prescription metadata.
func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	_, err := r.pool.Exec(ctx, createPrescriptionSQL,
		p.ID, p.UserID, p.FileRef, p.FileName, p.Notes, p.Status,
	)
	if err != nil {
		return fmt.Errorf("creating prescription %q: %w", p.ID, err)
	}
	return nil
}

// GetByID returns one prescription by its identifier.
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*prescription.Prescription, error) {
	rows, err := r.pool.Query(ctx, getPrescriptionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting prescription %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPrescription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, prescription.ErrNotFound
		}
		return nil, fmt.Errorf("getting prescription %q: %w", id, err)
	}
	return &p, nil
}

// ListByUser returns the user's prescriptions, newest first.
func (r *PrescriptionRepository) ListByUser(ctx context.Context, userID string) ([]prescription.Prescription, error) {
	rows, err := r.pool.Query(ctx, listPrescriptionsByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanPrescription)
}

// ListAll returns every prescription, newest first.
func (r *PrescriptionRepository) ListAll(ctx context.Context) ([]prescription.Prescription, error) {
	rows, err := r.pool.Query(ctx, listAllPrescriptionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	return pgx.CollectRows(rows, scanPrescription)
}

// UpdateStatus records the review decision.
func (r *PrescriptionRepository) UpdateStatus(ctx context.Context, id string, status prescription.Status, reviewedBy string) error {
	tag, err := r.pool.Exec(ctx, updatePrescriptionStatusSQL, id, status, reviewedBy)
	if err != nil {
		return fmt.Errorf("updating prescription %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return prescription.ErrNotFound
	}
	return nil
}

func scanPrescription(row pgx.CollectableRow) (prescription.Prescription, error) {
	var p prescription.Prescription
	err := row.Scan(
		&p.ID, &p.UserID, &p.FileRef, &p.FileName, &p.Notes,
		&p.Status, &p.ReviewedBy, &p.CreatedAt,
	)
	return p, err
}
