package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepositoryFindByRefMatchesNumber(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id::text = $1 OR UPPER(num) = UPPER($1)")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "num", "title", "price_regular_cents", "price_discount_cents", "active", "sort_order"}).
			AddRow("course-1", "C1", "Intro", 6000, 5000, true, 1))

	course, err := repo.FindByRef(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.EqualValues(t, 5000, course.ListPriceCents())
	assert.NoError(t, mock.ExpectationsWereMet())
}
