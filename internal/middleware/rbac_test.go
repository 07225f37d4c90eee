package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/roadready/coachplan-api/internal/models"
)

func runRBAC(t *testing.T, claims *models.JWTClaims, pathID string, allowed ...string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/coaches/"+pathID+"/availability", nil)
	c.Request = req
	if pathID != "" {
		c.Params = gin.Params{{Key: "id", Value: pathID}}
	}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	RBAC(allowed...)(c)
	return w, !c.IsAborted()
}

func TestRBACMissingClaims(t *testing.T) {
	w, passed := runRBAC(t, nil, "coach-1", string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, passed)
}

func TestRBACAdminAllowed(t *testing.T) {
	_, passed := runRBAC(t, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, "coach-1", string(models.RoleAdmin), "SELF")
	assert.True(t, passed)
}

func TestRBACSelfMatchAllowed(t *testing.T) {
	_, passed := runRBAC(t, &models.JWTClaims{UserID: "coach-1", Role: models.RoleCoach}, "coach-1", string(models.RoleAdmin), "SELF")
	assert.True(t, passed)
}

func TestRBACSelfMismatchForbidden(t *testing.T) {
	w, passed := runRBAC(t, &models.JWTClaims{UserID: "coach-2", Role: models.RoleCoach}, "coach-1", string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, passed)
}

func TestRBACSelfNeverAdmitsCandidates(t *testing.T) {
	w, passed := runRBAC(t, &models.JWTClaims{UserID: "coach-1", Role: models.RoleCandidate}, "coach-1", string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, passed)
}

func TestRequireRoles(t *testing.T) {
	_, passed := runRBAC(t, &models.JWTClaims{UserID: "coach-1", Role: models.RoleCoach}, "",
		string(models.RoleAdmin), string(models.RoleCoach))
	assert.True(t, passed)
}
