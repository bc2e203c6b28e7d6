package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/logger"
)

// slowCommand is the latency above which a Redis command is logged. BLPOP is
// exempt: it waits for the queue.
const slowCommand = 100 * time.Millisecond

// NewRedisClient creates and validates a Redis client connection.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	rdb.AddHook(slowLogHook{log: logger.Component(log, "redis"), threshold: slowCommand})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}

// slowLogHook warns about slow or failed commands.
type slowLogHook struct {
	log       zerolog.Logger
	threshold time.Duration
}

func (h slowLogHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.log.Warn().Err(err).Str("addr", addr).Msg("Redis dial failed")
		}
		return conn, err
	}
}

func (h slowLogHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		if cmd.Name() == "blpop" {
			return err
		}
		if elapsed := time.Since(start); elapsed > h.threshold {
			h.log.Warn().Str("cmd", cmd.Name()).Dur("elapsed", elapsed).Msg("Slow Redis command")
		}
		if err != nil && err != redis.Nil {
			h.log.Debug().Err(err).Str("cmd", cmd.Name()).Msg("Redis command failed")
		}
		return err
	}
}

func (h slowLogHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
