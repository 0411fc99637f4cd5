package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, StudentTokenExpiry: 24 * time.Hour, Issuer: "academy-enrollment-api"}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "staff@example.com", PasswordHash: string(password), Active: true, Role: models.RoleAdmin}}
	svc := NewAuthService(repo, newMemEnrollments(), validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "123", Email: "staff@example.com", PasswordHash: string(password), Active: false}}
	svc := NewAuthService(repo, newMemEnrollments(), validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)

	repo.userByEmail.Active = true
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "staff@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceStudentLogin(t *testing.T) {
	enrollments := newMemEnrollments()
	_, err := enrollments.Create(context.Background(), &models.Enrollment{
		StudentName: "Ana", StudentEmail: "ana@example.com", AccessCode: "K7QZ2P", Status: models.EnrollmentStatusPaid, CRMOrderID: strp("crm-1"),
	})
	require.NoError(t, err)
	_, err = enrollments.Create(context.Background(), &models.Enrollment{
		StudentName: "Bo", StudentEmail: "bo@example.com", AccessCode: "ABCDEF", Status: models.EnrollmentStatusPending, CRMOrderID: strp("crm-2"),
	})
	require.NoError(t, err)
	svc := NewAuthService(&mockAuthRepo{}, enrollments, nil, nil, testAuthConfig())

	res, err := svc.StudentLogin(context.Background(), models.StudentLoginRequest{Email: "ana@example.com", AccessCode: " k7qz2p "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, int64(86400), res.ExpiresIn)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	details, err := svc.StudentEnrollments(context.Background(), claims)
	require.NoError(t, err)
	assert.Len(t, details, 1)

	_, err = svc.StudentLogin(context.Background(), models.StudentLoginRequest{Email: "bo@example.com", AccessCode: "ABCDEF"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.StudentEnrollments(context.Background(), &models.JWTClaims{Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, newMemEnrollments(), nil, nil, testAuthConfig())
	other := NewAuthService(&mockAuthRepo{}, newMemEnrollments(), nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	token, err := other.sign(models.UserInfo{ID: "u1", Role: models.RoleStaff}, time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
