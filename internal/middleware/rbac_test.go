package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/reside-labs/societygate-api/internal/models"
	appErrors "github.com/reside-labs/societygate-api/pkg/errors"
)

type staticValidator struct {
	claims *models.JWTClaims
	err    error
}

func (v *staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func newProtectedRouter(validator TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(validator), RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMissingHeader(t *testing.T) {
	r := newProtectedRouter(&staticValidator{}, models.RoleGuard)
	w := doRequest(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	r := newProtectedRouter(&staticValidator{}, models.RoleGuard)
	w := doRequest(r, "Token abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	r := newProtectedRouter(&staticValidator{err: appErrors.ErrUnauthorized}, models.RoleGuard)
	w := doRequest(r, "Bearer abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "guard-1", Role: models.RoleGuard}
	r := newProtectedRouter(&staticValidator{claims: claims}, models.RoleGuard, models.RoleManager)
	w := doRequest(r, "Bearer abc")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesAdminAlwaysPasses(t *testing.T) {
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	r := newProtectedRouter(&staticValidator{claims: claims}, models.RoleResident)
	w := doRequest(r, "Bearer abc")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "resident-1", Role: models.RoleResident}
	r := newProtectedRouter(&staticValidator{claims: claims}, models.RoleGuard)
	w := doRequest(r, "Bearer abc")
	require.Equal(t, http.StatusForbidden, w.Code)
}
