package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type jwtConfig string

func (c jwtConfig) GetJWTAccessSecret() string { return string(c) }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(secret string) (*gin.Engine, *Identity) {
	gin.SetMode(gin.TestMode)
	var seen Identity
	router := gin.New()
	router.GET("/me", AuthRequired(jwtConfig(secret)), func(c *gin.Context) {
		seen, _ = GetIdentity(c)
		c.Status(http.StatusNoContent)
	})
	router.GET("/admin", AuthRequired(jwtConfig(secret)), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, &seen
}

func TestAuthRequiredPopulatesIdentity(t *testing.T) {
	router, seen := newAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":   "42",
		"name":  "Admin",
		"roles": []string{"admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	id := *seen
	if id.UserID != 42 || id.Name != "Admin" || !id.HasRole(RoleAdmin) {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthRequiredRejectsWrongSecret(t *testing.T) {
	router, _ := newAuthRouter("s3cret")
	token := signToken(t, "other", jwt.MapClaims{"sub": "42"})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleForbidsApplicants(t *testing.T) {
	router, _ := newAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "7", "roles": []string{"applicant"}})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
