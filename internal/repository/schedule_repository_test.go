package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

var scheduleRowColumns = []string{"id", "course_id", "start_date", "location", "spots_total", "spots_available", "status"}

func TestScheduleRepositoryReserveApplied(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id::text = $1 AND spots_available > 0")).
		WithArgs("sched-1", models.FillingThreshold).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("sched-1", "course-1", nil, "Miami", 10, 3, "filling"))

	schedule, applied, err := repo.Reserve(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 3, schedule.SpotsAvailable)
	assert.Equal(t, models.ScheduleStatusFilling, schedule.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReserveSoldOut(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("spots_available = spots_available - 1")).
		WithArgs("sched-1", models.FillingThreshold).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_schedule WHERE id::text = $1")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("sched-1", "course-1", nil, "Miami", 10, 0, "sold_out"))

	schedule, applied, err := repo.Reserve(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0, schedule.SpotsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReserveMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("spots_available = spots_available - 1")).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_schedule WHERE id::text = $1")).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns))

	_, _, err := repo.Reserve(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReleaseCapsAtTotal(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET spots_available = LEAST(spots_available + 1, spots_total)")).
		WithArgs("sched-1", models.FillingThreshold).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("sched-1", "course-1", nil, "Miami", 10, 10, "open"))

	schedule, err := repo.Release(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 10, schedule.SpotsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReleaseRecomputesStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHEN LEAST(spots_available + 1, spots_total) <= $2 THEN 'filling'")).
		WithArgs("sched-1", models.FillingThreshold).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("sched-1", "course-1", nil, "Miami", 4, 1, "filling"))

	schedule, err := repo.Release(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.SpotsAvailable)
	assert.Equal(t, models.ScheduleStatusFilling, schedule.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReconcile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WITH held AS (")).
		WithArgs("sched-1", models.FillingThreshold).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).AddRow("sched-1", "course-1", nil, "Miami", 10, 7, "open"))

	schedule, err := repo.Reconcile(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 7, schedule.SpotsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
