package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

const scheduleColumns = `id, course_id, start_date, location, spots_total, spots_available, status`

// statusFor renders the status recomputation for a seat expression. Completed
// offerings keep their status regardless of seat movement.
func statusFor(expr string) string {
	return fmt.Sprintf(`CASE WHEN status = 'completed' THEN status
            WHEN %[1]s <= 0 THEN 'sold_out'
            WHEN %[1]s <= $2 THEN 'filling'
            ELSE 'open' END`, expr)
}

// ScheduleRepository owns the seat counter on course_schedule rows.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID returns a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.CourseSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM course_schedule WHERE id::text = $1`
	var schedule models.CourseSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return &schedule, nil
}

// NextOpenForCourse returns the earliest upcoming schedule of a course with seats left.
func (r *ScheduleRepository) NextOpenForCourse(ctx context.Context, courseID string) (*models.CourseSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM course_schedule
        WHERE course_id::text = $1 AND spots_available > 0 AND status <> 'completed'
          AND (start_date IS NULL OR start_date >= CURRENT_DATE)
        ORDER BY start_date ASC NULLS LAST LIMIT 1`
	var schedule models.CourseSchedule
	if err := r.db.GetContext(ctx, &schedule, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find next open schedule: %w", err)
	}
	return &schedule, nil
}

// Reserve takes one seat if any is left, in a single guarded statement.
// applied is false when the schedule exists but has no seat left;
// sql.ErrNoRows is returned when the schedule does not exist.
func (r *ScheduleRepository) Reserve(ctx context.Context, id string) (schedule *models.CourseSchedule, applied bool, err error) {
	query := `UPDATE course_schedule
        SET spots_available = spots_available - 1,
            status = ` + statusFor("spots_available - 1") + `
        WHERE id::text = $1 AND spots_available > 0
        RETURNING ` + scheduleColumns
	var updated models.CourseSchedule
	err = r.db.GetContext(ctx, &updated, query, id, models.FillingThreshold)
	if err == nil {
		return &updated, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("reserve seat: %w", err)
	}
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// Release returns one seat, capped at spots_total.
func (r *ScheduleRepository) Release(ctx context.Context, id string) (*models.CourseSchedule, error) {
	const next = "LEAST(spots_available + 1, spots_total)"
	query := `UPDATE course_schedule
        SET spots_available = ` + next + `,
            status = ` + statusFor(next) + `
        WHERE id::text = $1
        RETURNING ` + scheduleColumns
	var updated models.CourseSchedule
	if err := r.db.GetContext(ctx, &updated, query, id, models.FillingThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("release seat: %w", err)
	}
	return &updated, nil
}

// Reconcile recomputes spots_available from the enrollments currently holding a seat.
func (r *ScheduleRepository) Reconcile(ctx context.Context, id string) (*models.CourseSchedule, error) {
	const next = "GREATEST(0, spots_total - held.n)"
	query := `WITH held AS (
            SELECT COUNT(*)::int AS n FROM enrollments
            WHERE course_schedule_id::text = $1 AND status <> 'cancelled'
        )
        UPDATE course_schedule
        SET spots_available = ` + next + `,
            status = ` + statusFor(next) + `
        FROM held
        WHERE course_schedule.id::text = $1
        RETURNING course_schedule.id, course_schedule.course_id, course_schedule.start_date,
            course_schedule.location, course_schedule.spots_total, course_schedule.spots_available, course_schedule.status`
	var updated models.CourseSchedule
	if err := r.db.GetContext(ctx, &updated, query, id, models.FillingThreshold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("reconcile seats: %w", err)
	}
	return &updated, nil
}
