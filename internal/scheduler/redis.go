package scheduler

import (
	"crypto/tls"
	"errors"
	"fmt"

	"zoning_portal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

var errRedisNotConfigured = errors.New("REDIS_URL is not configured")

// connection resolves the Redis connection and queue name shared by the
// client and the worker.
func connection(cfg config.SchedulerConfig) (asynq.RedisClientOpt, string, error) {
	if cfg.GetRedisURL() == "" {
		return asynq.RedisClientOpt{}, "", errRedisNotConfigured
	}
	opt, err := parseRedisURL(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return asynq.RedisClientOpt{}, "", err
	}
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = defaultQueue
	}
	return opt, queue, nil
}

// parseRedisURL accepts redis:// and rediss:// URLs. insecure skips
// certificate verification, for managed Redis behind self-signed certs.
func parseRedisURL(redisURL string, insecure bool) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	tlsConfig := parsed.TLSConfig
	switch {
	case tlsConfig != nil && insecure:
		tlsConfig = tlsConfig.Clone()
		tlsConfig.InsecureSkipVerify = true
	case tlsConfig == nil && insecure:
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: tlsConfig,
	}, nil
}
