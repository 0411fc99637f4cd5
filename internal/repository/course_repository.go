package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

const courseColumns = `id, num, title, price_regular_cents, price_discount_cents, active, sort_order`

// CourseRepository reads the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id::text = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindByRef resolves a course by id, falling back to its catalog number.
// Checkout notes may carry either.
func (r *CourseRepository) FindByRef(ctx context.Context, ref string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
        WHERE id::text = $1 OR UPPER(num) = UPPER($1)
        ORDER BY (id::text = $1) DESC LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by ref: %w", err)
	}
	return &course, nil
}
