package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// listStore is the subset of the Redis client the queue relies on.
type listStore interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPop(ctx context.Context, key string) *redis.StringCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AnswerQueue pushes answer selections onto the Redis persistence queue.
type AnswerQueue struct {
	rdb listStore
	key string
}

// NewAnswerQueue creates a new AnswerQueue backed by rdb.
func NewAnswerQueue(rdb listStore) *AnswerQueue {
	return &AnswerQueue{rdb: rdb, key: config.WorkerKey.AttemptAnswersQueue}
}

// Enqueue appends one answer to the queue.
func (q *AnswerQueue) Enqueue(ctx context.Context, a model.AttemptAnswer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.key, payload).Err()
}
