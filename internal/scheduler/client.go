package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zoning_portal_backend/platform/apperr"
	"zoning_portal_backend/platform/config"

	"github.com/hibiken/asynq"
)

const (
	defaultQueue       = "default"
	reissueMaxRetry    = 5
	reissueTaskTimeout = 2 * time.Minute
	// Identical re-issue requests inside this window are refused.
	reissueDedupWindow = time.Minute
)

// Client enqueues certificate work for the worker.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(opt, queue), nil
}

func newClient(opt asynq.RedisConnOpt, queue string) *Client {
	if queue == "" {
		queue = defaultQueue
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReissue queues a certificate re-issue for a payment and returns the
// task id. A duplicate request inside the dedup window is a conflict.
func (c *Client) EnqueueReissue(ctx context.Context, paymentID int64, actor string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewCertificateReissueTask(CertificateReissuePayload{PaymentID: paymentID, Actor: actor})
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(reissueMaxRetry),
		asynq.Timeout(reissueTaskTimeout),
		asynq.Unique(reissueDedupWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", apperr.Conflict(fmt.Sprintf("a re-issue for payment %d is already queued", paymentID))
	}
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TaskCertificateReissue, err)
	}
	return info.ID, nil
}
