package main

import (
	"context"
	"fmt"

	"zoning_portal_backend/internal/adapters"
	"zoning_portal_backend/internal/adapters/storage"
	"zoning_portal_backend/internal/email"
	"zoning_portal_backend/internal/events"
	"zoning_portal_backend/internal/notification"
	"zoning_portal_backend/internal/pdf"
	"zoning_portal_backend/internal/permits"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/db"
	"zoning_portal_backend/platform/logger"
	"zoning_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// cliEnv holds the wiring a command needs; close releases it.
type cliEnv struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	permits *permits.Module
}

func newEnv(ctx context.Context) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sender, err := email.NewSender(cfg, cfg.GetAppBaseURL())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init email sender: %w", err)
	}
	bus := events.NewInMemoryBus(log)
	notification.New(sender, log).RegisterHandlers(bus)

	if !cfg.IsMinIOEnabled() {
		pool.Close()
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var gotenberg *pdf.GotenbergClient
	if cfg.IsGotenbergEnabled() {
		gotenberg = pdf.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
	}

	module := permits.NewModule(pool, bus, validator.New(), cfg,
		adapters.NewCertificateRenderer(gotenberg, log),
		permits.Files{
			Certificates: storage.NewBucket(storageSvc, cfg.GetMinioBucketCertificates(), "certificates", storage.CertificatePolicy(cfg.GetMinIOMaxFileSize())),
			Receipts:     storage.NewBucket(storageSvc, cfg.GetMinioBucketReceipts(), "receipts", storage.ReceiptPolicy(cfg.GetMinIOMaxFileSize())),
		},
		log,
	)

	return &cliEnv{cfg: cfg, pool: pool, permits: module}, nil
}

func (e *cliEnv) close() {
	e.pool.Close()
}
