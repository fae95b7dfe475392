// Package http wires the API modules onto one gin engine.
package http

import (
	"context"

	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health. The database pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Module mounts one feature area's routes.
type Module interface {
	Name() string
	RegisterRoutes(groups *RouterContext)
}

// RouterContext holds the /api/v1 groups a module can mount on.
type RouterContext struct {
	// Public has no authentication.
	Public *gin.RouterGroup
	// Protected requires a valid access token.
	Protected *gin.RouterGroup
	// Admin is Protected under /admin restricted to the admin role.
	Admin *gin.RouterGroup
}

// App is everything router.New needs. main builds it.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
