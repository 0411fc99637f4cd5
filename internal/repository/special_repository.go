package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

const specialColumns = `id, coupon_code, coupon_name, discount_type, discount_value, course_ids,
    valid_from, valid_until, active, crm_coupon_id, created_at`

// SpecialRepository persists the local mirror of CRM coupons.
type SpecialRepository struct {
	db *sqlx.DB
}

// NewSpecialRepository constructs the repository.
func NewSpecialRepository(db *sqlx.DB) *SpecialRepository {
	return &SpecialRepository{db: db}
}

// FindActiveByCode returns the active special whose code matches case-insensitively.
func (r *SpecialRepository) FindActiveByCode(ctx context.Context, code string) (*models.Special, error) {
	query := `SELECT ` + specialColumns + ` FROM specials
        WHERE UPPER(coupon_code) = UPPER($1) AND active = TRUE
        ORDER BY created_at DESC LIMIT 1`
	var special models.Special
	if err := r.db.GetContext(ctx, &special, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find special by code: %w", err)
	}
	return &special, nil
}

// FindByCode returns the most recent special with the code regardless of status.
func (r *SpecialRepository) FindByCode(ctx context.Context, code string) (*models.Special, error) {
	query := `SELECT ` + specialColumns + ` FROM specials
        WHERE UPPER(coupon_code) = UPPER($1)
        ORDER BY active DESC, created_at DESC LIMIT 1`
	var special models.Special
	if err := r.db.GetContext(ctx, &special, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find special: %w", err)
	}
	return &special, nil
}

// ListActive returns every special still flagged active, newest first.
func (r *SpecialRepository) ListActive(ctx context.Context) ([]models.Special, error) {
	query := `SELECT ` + specialColumns + ` FROM specials WHERE active = TRUE ORDER BY created_at DESC`
	var specials []models.Special
	if err := r.db.SelectContext(ctx, &specials, query); err != nil {
		return nil, fmt.Errorf("list active specials: %w", err)
	}
	return specials, nil
}

// Deactivate flips the given specials to inactive and returns how many changed.
func (r *SpecialRepository) Deactivate(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE specials SET active = FALSE WHERE id::text = ANY($1) AND active = TRUE`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("deactivate specials: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate specials rows: %w", err)
	}
	return affected, nil
}

// Create inserts a special.
func (r *SpecialRepository) Create(ctx context.Context, special *models.Special) error {
	if special.ID == "" {
		special.ID = uuid.NewString()
	}
	if special.CreatedAt.IsZero() {
		special.CreatedAt = time.Now().UTC()
	}
	if special.CourseIDs == nil {
		special.CourseIDs = pq.StringArray{}
	}
	const query = `INSERT INTO specials (id, coupon_code, coupon_name, discount_type, discount_value, course_ids,
        valid_from, valid_until, active, crm_coupon_id, created_at)
        VALUES (:id, :coupon_code, :coupon_name, :discount_type, :discount_value, :course_ids,
        :valid_from, :valid_until, :active, :crm_coupon_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, special); err != nil {
		return fmt.Errorf("create special: %w", err)
	}
	return nil
}
