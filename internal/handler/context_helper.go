package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roadready/coachplan-api/internal/middleware"
	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// monthFromQuery reads year and month query params, defaulting to the
// current UTC month when absent.
func monthFromQuery(c *gin.Context) (int, time.Month, error) {
	now := time.Now().UTC()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "year must be an integer")
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	return year, time.Month(month), nil
}
