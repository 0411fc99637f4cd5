package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
)

var specialRowColumns = []string{"id", "coupon_code", "coupon_name", "discount_type", "discount_value", "course_ids",
	"valid_from", "valid_until", "active", "crm_coupon_id", "created_at"}

func TestSpecialRepositoryFindActiveByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSpecialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE UPPER(coupon_code) = UPPER($1) AND active = TRUE")).
		WithArgs("save10").
		WillReturnRows(sqlmock.NewRows(specialRowColumns).
			AddRow("sp-1", "SAVE10", "Save ten", "fixed", 1000, "{course-1,course-2}", nil, nil, true, "crm-1", time.Now()))

	special, err := repo.FindActiveByCode(context.Background(), "save10")
	require.NoError(t, err)
	assert.Equal(t, models.DiscountFixed, special.DiscountType)
	assert.Equal(t, pq.StringArray{"course-1", "course-2"}, special.CourseIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpecialRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSpecialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE specials SET active = FALSE WHERE id::text = ANY($1)")).
		WithArgs(pq.Array([]string{"sp-1", "sp-2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.Deactivate(context.Background(), []string{"sp-1", "sp-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	affected, err = repo.Deactivate(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpecialRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSpecialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO specials")).WillReturnResult(sqlmock.NewResult(1, 1))

	special := &models.Special{CouponCode: "SPRING", DiscountType: models.DiscountPercentage, DiscountValue: 15, Active: true}
	require.NoError(t, repo.Create(context.Background(), special))
	assert.NotEmpty(t, special.ID)
	assert.NotNil(t, special.CourseIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
