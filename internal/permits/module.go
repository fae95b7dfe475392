// Package permits provides the land use certification bounded context module.
// This file defines the module that encapsulates all permits setup and route registration.
package permits

import (
	"zoning_portal_backend/internal/events"
	apphttp "zoning_portal_backend/internal/http"
	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/internal/permits/handler"
	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/service"
	"zoning_portal_backend/platform/clock"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/db"
	"zoning_portal_backend/platform/logger"
	"zoning_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the permits bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	issuer  *certificate.Issuer
}

// Files groups the object stores the module writes to.
type Files struct {
	Certificates certificate.Storage
	Receipts     service.ReceiptStorage
}

// NewModule creates and initializes the permits module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.CertificateConfig,
	renderer certificate.Renderer,
	files Files,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	tx := db.NewTxManager(pool)
	clk := clock.System{}

	issuer := certificate.NewIssuer(repo, tx, renderer, files.Certificates, eventBus, clk, cfg, log)
	svc := service.New(repo, tx, eventBus, issuer, files.Receipts, clk, val, cfg, log)

	return &Module{
		handler: handler.New(svc, issuer),
		service: svc,
		issuer:  issuer,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "permits"
}

// Service returns the permits service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Issuer returns the certificate issuer, used by the background worker.
func (m *Module) Issuer() *certificate.Issuer {
	return m.issuer
}

// SetReissueQueue routes HTTP re-issue requests through the background queue.
func (m *Module) SetReissueQueue(q handler.ReissueQueue) {
	m.handler.SetReissueQueue(q)
}

// RegisterRoutes mounts permits routes on the provided router context.
func (m *Module) RegisterRoutes(groups *apphttp.RouterContext) {
	m.handler.RegisterRoutes(groups.Protected)
	m.handler.RegisterAdminRoutes(groups.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
