package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

type authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error)
	StudentEnrollments(ctx context.Context, claims *models.JWTClaims) ([]models.EnrollmentDetail, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authenticator
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authenticator) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate staff
// @Description Authenticate a back-office user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// StudentLogin godoc
// @Summary Student portal login
// @Description Authenticate a student by email and enrollment access code
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Student login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /portal/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req models.StudentLoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	res, err := h.service.StudentLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Student enrollments
// @Description Returns the paid enrollments of the authenticated student
// @Tags Portal
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /portal/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollments, err := h.service.StudentEnrollments(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	info := models.UserInfo{ID: claims.UserID, Email: claims.Email, FullName: claims.FullName, Role: claims.Role}
	response.JSON(c, http.StatusOK, gin.H{"user": info, "enrollments": enrollments}, nil)
}
