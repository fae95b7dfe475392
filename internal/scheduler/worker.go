package scheduler

import (
	"context"
	"fmt"

	"zoning_portal_backend/internal/permits/certificate"
	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/config"
	"zoning_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 10
	systemActor        = "system"
)

// Reissuer re-runs certificate issuance for a payment.
type Reissuer interface {
	Reissue(ctx context.Context, paymentID int64, actor string) (certificate.Result, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	reissuer Reissuer
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reissuer Reissuer, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		Logger: asynqLogger{log: log},
	})

	return newWorker(server, reissuer, log), nil
}

func newWorker(server *asynq.Server, reissuer Reissuer, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		reissuer: reissuer,
		log:      log,
	}
	mux.HandleFunc(TaskCertificateReissue, w.handleCertificateReissue)
	return w
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

// handleCertificateReissue retries transient failures. Missing payments and
// payments that are not verified never succeed, so they skip retry.
func (w *Worker) handleCertificateReissue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCertificateReissuePayload(task)
	if err != nil {
		return fmt.Errorf("parse reissue payload: %v: %w", err, asynq.SkipRetry)
	}
	actor := payload.Actor
	if actor == "" {
		actor = systemActor
	}

	result, err := w.reissuer.Reissue(ctx, payload.PaymentID, actor)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindConflict) {
			w.log.WithContext(ctx).Warn("certificate reissue dropped", "paymentId", payload.PaymentID, "error", err)
			return fmt.Errorf("reissue payment %d: %v: %w", payload.PaymentID, err, asynq.SkipRetry)
		}
		return err
	}

	w.log.WithContext(ctx).Info("certificate reissued",
		"paymentId", payload.PaymentID,
		"certificateNumber", result.Certificate.CertificateNumber,
		"created", result.Created,
		"sideEffects", len(result.SideEffects),
	)
	return nil
}

// asynqLogger routes asynq's internal logging through the structured logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
