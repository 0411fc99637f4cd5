package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-enrollment-api/internal/middleware"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/academy-enrollment-api/pkg/errors"
	"github.com/noah-isme/academy-enrollment-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// bindJSON decodes the request body into dest, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
