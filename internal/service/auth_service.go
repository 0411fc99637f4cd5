package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type studentEnrollmentReader interface {
	FindForStudent(ctx context.Context, email, accessCode string) ([]models.EnrollmentDetail, error)
	ListByEmail(ctx context.Context, email string) ([]models.EnrollmentDetail, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	StudentTokenExpiry time.Duration
	Issuer             string
}

// AuthService issues and validates tokens for staff and students.
type AuthService struct {
	users       authUserRepository
	enrollments studentEnrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
	config      AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, enrollments studentEnrollmentReader, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.StudentTokenExpiry <= 0 {
		config.StudentTokenExpiry = config.AccessTokenExpiry
	}
	return &AuthService{users: users, enrollments: enrollments, validator: validate, logger: logger, config: config}
}

// Login authenticates a staff user by email and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	info := models.UserInfo{ID: user.ID, Email: user.Email, FullName: user.FullName, Role: user.Role}
	token, err := s.sign(info, s.config.AccessTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        info,
	}, nil
}

// StudentLogin authenticates a student by email and the access code issued
// with a paid or deposit-paid enrollment.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	matches, err := s.enrollments.FindForStudent(ctx, req.Email, NormalizeAccessCode(req.AccessCode))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify access code")
	}
	if len(matches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or access code")
	}

	enrollment := matches[0]
	info := models.UserInfo{
		ID:       enrollment.ID,
		Email:    enrollment.StudentEmail,
		FullName: enrollment.StudentName,
		Role:     models.RoleStudent,
	}
	token, err := s.sign(info, s.config.StudentTokenExpiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.StudentTokenExpiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User:        info,
	}, nil
}

// StudentEnrollments lists the paid enrollments of the authenticated student.
func (s *AuthService) StudentEnrollments(ctx context.Context, claims *models.JWTClaims) ([]models.EnrollmentDetail, error) {
	if claims == nil || claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student session required")
	}
	details, err := s.enrollments.ListByEmail(ctx, claims.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollments")
	}
	return details, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) sign(info models.UserInfo, ttl time.Duration) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:   info.ID,
		Role:     info.Role,
		Email:    info.Email,
		FullName: info.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}
