package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lianamed/pharmacy-api/internal/domain/medicine"
)

const (
	medicineColumns = `id, name, category, description, price, stock, image_ref, requires_prescription, created_at`

	getMedicineByIDSQL = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	getMedicinesByIDsSQL = `SELECT ` + medicineColumns + ` FROM medicines WHERE id = ANY($1)`

	createMedicineSQL = `INSERT INTO medicines (id, name, category, description, price, stock, image_ref, requires_prescription)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateMedicineSQL = `UPDATE medicines
		SET name = $2, category = $3, description = $4, price = $5, stock = $6, image_ref = $7, requires_prescription = $8
		WHERE id = $1`

	deleteMedicineSQL = `DELETE FROM medicines WHERE id = $1`

	upsertMedicineSQL = `INSERT INTO medicines (id, name, category, description, price, stock, image_ref, requires_prescription)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, category = EXCLUDED.category, description = EXCLUDED.description,
			price = EXCLUDED.price, stock = EXCLUDED.stock, image_ref = EXCLUDED.image_ref,
			requires_prescription = EXCLUDED.requires_prescription`

	// The stock guard lives in the WHERE clause: a decrement that would go
	// negative simply matches no row.
	adjustStockSQL = `UPDATE medicines SET stock = stock + $2 WHERE id = $1 AND stock + $2 >= 0`
)

var _ medicine.Repository = (*MedicineRepository)(nil)

// MedicineRepository implements medicine.Repository backed by PostgreSQL.
type MedicineRepository struct {
	pool *pgxpool.Pool
}

// NewMedicineRepository returns a MedicineRepository that uses the given pool.
func NewMedicineRepository(pool *pgxpool.Pool) *MedicineRepository {
	return &MedicineRepository{pool: pool}
}

// List returns one page of the catalog matching q plus the total match count.
func (r *MedicineRepository) List(ctx context.Context, q medicine.ListQuery) ([]medicine.Medicine, int, error) {
	where, args := listFilter(q)

	var total int
	countSQL := `SELECT count(*) FROM medicines` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting medicines: %w", err)
	}

	listSQL := `SELECT ` + medicineColumns + ` FROM medicines` + where + listOrder(q.Sort) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, q.PageSize, q.Offset())

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing medicines: %w", err)
	}
	meds, err := pgx.CollectRows(rows, scanMedicine)
	if err != nil {
		return nil, 0, fmt.Errorf("listing medicines: %w", err)
	}
	return meds, total, nil
}

// GetByID returns a single medicine by its identifier.
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*medicine.Medicine, error) {
	rows, err := r.pool.Query(ctx, getMedicineByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting medicine %q: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMedicine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medicine.ErrNotFound
		}
		return nil, fmt.Errorf("getting medicine %q: %w", id, err)
	}
	return &m, nil
}

// GetByIDs returns medicines matching any of the given IDs.
func (r *MedicineRepository) GetByIDs(ctx context.Context, ids []string) ([]medicine.Medicine, error) {
	rows, err := r.pool.Query(ctx, getMedicinesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting medicines by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanMedicine)
}

// Create inserts a new catalog row.
func (r *MedicineRepository) Create(ctx context.Context, m *medicine.Medicine) error {
	_, err := r.pool.Exec(ctx, createMedicineSQL,
		m.ID, m.Name, m.Category, m.Description, m.Price, m.Stock, m.ImageRef, m.RequiresPrescription,
	)
	if err != nil {
		return fmt.Errorf("creating medicine %q: %w", m.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a catalog row.
func (r *MedicineRepository) Update(ctx context.Context, m *medicine.Medicine) error {
	tag, err := r.pool.Exec(ctx, updateMedicineSQL,
		m.ID, m.Name, m.Category, m.Description, m.Price, m.Stock, m.ImageRef, m.RequiresPrescription,
	)
	if err != nil {
		return fmt.Errorf("updating medicine %q: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return medicine.ErrNotFound
	}
	return nil
}

// Upsert inserts a catalog row or replaces an existing one. Used by the seed
// and catalog ingest tools, which re-run against a populated database.
func (r *MedicineRepository) Upsert(ctx context.Context, m *medicine.Medicine) error {
	_, err := r.pool.Exec(ctx, upsertMedicineSQL,
		m.ID, m.Name, m.Category, m.Description, m.Price, m.Stock, m.ImageRef, m.RequiresPrescription,
	)
	if err != nil {
		return fmt.Errorf("upserting medicine %q: %w", m.ID, err)
	}
	return nil
}

// Delete removes a catalog row.
func (r *MedicineRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteMedicineSQL, id)
	if err != nil {
		return fmt.Errorf("deleting medicine %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return medicine.ErrNotFound
	}
	return nil
}

// AdjustStock applies delta to the stock, failing when the result would be
// negative.
func (r *MedicineRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	tag, err := r.pool.Exec(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return fmt.Errorf("adjusting stock for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is missing or the guard rejected the decrement.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return medicine.ErrInsufficientStock
	}
	return nil
}

// listFilter builds the WHERE clause for a catalog listing.
func listFilter(q medicine.ListQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR category ILIKE $%d)", n, n))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func listOrder(sort string) string {
	switch sort {
	case medicine.SortPriceAsc:
		return " ORDER BY price ASC, name"
	case medicine.SortPriceDesc:
		return " ORDER BY price DESC, name"
	case medicine.SortNewest:
		return " ORDER BY created_at DESC"
	default:
		return " ORDER BY name"
	}
}

func scanMedicine(row pgx.CollectableRow) (medicine.Medicine, error) {
	var (
		m     medicine.Medicine
		price decimal.Decimal
	)
	err := row.Scan(
		&m.ID, &m.Name, &m.Category, &m.Description, &price,
		&m.Stock, &m.ImageRef, &m.RequiresPrescription, &m.CreatedAt,
	)
	m.Price = price
	return m, err
}
