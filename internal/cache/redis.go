// Package cache holds the Redis client and the finished-match queue that
// feeds the historian.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/D34dlyK1ss/whoisit/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list finished matches are pushed to.
var DefaultQueueName = "whoisit_results"

// ConnectRedis initializes the global Redis client from REDIS_ADDR and
// REDIS_DB.
func ConnectRedis() error {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName returns the configured result queue name.
func QueueName() string {
	if name := os.Getenv("RESULT_QUEUE_NAME"); name != "" {
		return name
	}
	return DefaultQueueName
}

// PublishMatchResult serializes the record and pushes it onto the result
// queue for the historian to persist.
func PublishMatchResult(ctx context.Context, rec models.MatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal match record: %w", err)
	}
	if err := Rdb.RPush(ctx, QueueName(), data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to '%s': %w", QueueName(), err)
	}
	return nil
}

// ResultReporter implements game.ResultReporter by publishing to the result
// queue. A failed publish loses the historical record but never blocks the
// match teardown; the in-memory outcome already happened.
type ResultReporter struct {
	Log *logrus.Logger
}

func (r *ResultReporter) Report(ctx context.Context, rec models.MatchRecord) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := PublishMatchResult(ctx, rec); err != nil {
		r.Log.WithField("game", rec.GameCode).Errorf("failed to report match result: %v", err)
	}
}
