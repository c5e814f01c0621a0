package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/jewel_catalog/internal/models"
)

// Nullable metadata columns are coalesced so rows scan into plain strings.
const designColumns = `id, design_no, is_active,
        COALESCE(category, '') AS category,
        COALESCE(subcategory, '') AS subcategory,
        COALESCE(collection, '') AS collection,
        COALESCE(gender, '') AS gender,
        COALESCE(product_type, '') AS product_type,
        COALESCE(description, '') AS description,
        COALESCE(image_base_path, '') AS image_base_path,
        COALESCE(last_synced_at, created_at) AS last_synced_at,
        created_at`

// DesignRepository handles data access for designs.
type DesignRepository struct {
	db *sqlx.DB
}

// NewDesignRepository creates a new DesignRepository.
func NewDesignRepository(db *sqlx.DB) *DesignRepository {
	return &DesignRepository{db: db}
}

// GetByDesignNo returns a single design. It returns sql.ErrNoRows when absent.
func (r *DesignRepository) GetByDesignNo(ctx context.Context, designNo string) (*models.Design, error) {
	q := `SELECT ` + designColumns + ` FROM designs WHERE design_no = $1 LIMIT 1`

	var d models.Design
	if err := r.db.GetContext(ctx, &d, q, designNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &d, nil
}

// Upsert inserts a design or overwrites its metadata in a single statement.
// is_active is only set on insert; the conflict branch never touches it.
// inserted reports whether a new row was created.
func (r *DesignRepository) Upsert(ctx context.Context, designNo string, f models.DesignFields, activeOnCreate bool) (inserted bool, err error) {
	const q = `
        INSERT INTO designs (design_no, category, subcategory, collection, gender, product_type,
                             description, image_base_path, is_active, last_synced_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (design_no) DO UPDATE SET
            category = EXCLUDED.category,
            subcategory = EXCLUDED.subcategory,
            collection = EXCLUDED.collection,
            gender = EXCLUDED.gender,
            product_type = EXCLUDED.product_type,
            description = EXCLUDED.description,
            image_base_path = EXCLUDED.image_base_path,
            last_synced_at = NOW(),
            updated_at = NOW()
        RETURNING (xmax = 0) AS inserted`

	err = r.db.QueryRowxContext(ctx, q,
		designNo, f.Category, f.Subcategory, f.Collection, f.Gender, f.ProductType,
		f.Description, f.ImageBasePath, activeOnCreate,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert design %s: %w", designNo, err)
	}
	return inserted, nil
}

// SetActive sets the visibility flag of a design. found is false when no row matched.
func (r *DesignRepository) SetActive(ctx context.Context, designNo string, active bool) (found bool, err error) {
	const q = `UPDATE designs SET is_active = $1, updated_at = NOW() WHERE design_no = $2`
	res, err := r.db.ExecContext(ctx, q, active, designNo)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Toggle flips the visibility flag in a single statement and returns the new value.
// found is false when no row matched.
func (r *DesignRepository) Toggle(ctx context.Context, designNo string) (active bool, found bool, err error) {
	const q = `UPDATE designs SET is_active = NOT is_active, updated_at = NOW() WHERE design_no = $1 RETURNING is_active`
	if err := r.db.GetContext(ctx, &active, q, designNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return active, true, nil
}

// ListActive returns every design with is_active = true.
func (r *DesignRepository) ListActive(ctx context.Context) ([]models.Design, error) {
	q := `SELECT ` + designColumns + ` FROM designs WHERE is_active = true ORDER BY design_no`

	var designs []models.Design
	if err := r.db.SelectContext(ctx, &designs, q); err != nil {
		return nil, err
	}
	return designs, nil
}

// List returns designs matching the filter and the total count before pagination.
// Empty filters are ignored. Page begins at 1.
func (r *DesignRepository) List(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error) {
	page, limit := filter.Page, filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	const baseWhere = `WHERE ($1 = '' OR design_no ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')
        AND ($2 = '' OR LOWER(category) = LOWER($2))
        AND ($3::boolean IS NULL OR is_active = $3)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM designs `+baseWhere,
		filter.Search, filter.Category, filter.IsActive); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + designColumns + ` FROM designs ` + baseWhere + `
        ORDER BY design_no LIMIT $4 OFFSET $5`
	var designs []models.Design
	if err := r.db.SelectContext(ctx, &designs, listQuery,
		filter.Search, filter.Category, filter.IsActive, limit, offset); err != nil {
		return nil, 0, err
	}
	return designs, total, nil
}

// Ping checks database reachability.
func (r *DesignRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
