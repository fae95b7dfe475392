package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "zoning_portal_backend/internal/http"
	"zoning_portal_backend/platform/httpkit"
	"zoning_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return true }
func (testConfig) GetCORSOrigins() []string   { return nil }
func (testConfig) GetCORSAllowCreds() bool    { return false }
func (testConfig) GetJWTAccessSecret() string { return "secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(groups *apphttp.RouterContext) {
	groups.Public.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	groups.Protected.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	groups.Admin.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func TestHealthReflectsDatabasePing(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(pinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpkit.HeaderRequestID))

	w = httptest.NewRecorder()
	newEngine(pinger{err: errors.New("down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestModuleRoutesRequireAuth(t *testing.T) {
	engine := newEngine(pinger{})

	for _, path := range []string{"/api/v1/echo", "/api/v1/admin/echo"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	w := httptest.NewRecorder()
	newEngine(pinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
