package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultRetryDelay = 5 * time.Second
	drainTimeout      = 10 * time.Second
	popTimeout        = time.Second
)

// AnswerWriter stores a batch of attempt answers.
type AnswerWriter interface {
	UpsertBatch(ctx context.Context, answers []model.AttemptAnswer) error
}

// AutosaveWorker consumes the persist answers queue and UPSERTs answers to PostgreSQL.
type AutosaveWorker struct {
	rdb        listStore
	writer     AnswerWriter
	key        string
	batchSize  int
	retryDelay time.Duration
	log        zerolog.Logger

	done chan struct{}
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(rdb listStore, writer AnswerWriter, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		rdb:        rdb,
		writer:     writer,
		key:        config.WorkerKey.AttemptAnswersQueue,
		batchSize:  defaultBatchSize,
		retryDelay: defaultRetryDelay,
		log:        log.With().Str("component", "autosave_worker").Logger(),
		done:       make(chan struct{}),
	}
}

// Done is closed once Start has returned.
func (w *AutosaveWorker) Done() <-chan struct{} { return w.done }

// Start runs the worker loop until ctx is cancelled, then drains what is
// left in the queue. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			w.drain(drainCtx)
			cancel()
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or the timeout passes.
	result, err := w.rdb.BLPop(ctx, popTimeout, w.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			w.sleep(ctx)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	raw := []string{result[1]}
	raw = append(raw, w.popMore(ctx, w.batchSize-1)...)

	if err := w.persist(ctx, raw); err != nil {
		w.log.Error().Err(err).Int("count", len(raw)).Msg("Persist error, retrying later")
		w.requeue(context.Background(), raw)
		w.sleep(ctx)
	}
}

// popMore takes up to n further items without blocking.
func (w *AutosaveWorker) popMore(ctx context.Context, n int) []string {
	var raw []string
	for i := 0; i < n; i++ {
		item, err := w.rdb.LPop(ctx, w.key).Result()
		if err != nil {
			break
		}
		raw = append(raw, item)
	}
	return raw
}

func (w *AutosaveWorker) persist(ctx context.Context, raw []string) error {
	answers := make([]model.AttemptAnswer, 0, len(raw))
	for _, item := range raw {
		var a model.AttemptAnswer
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("payload", item).Msg("Unmarshal error")
			continue
		}
		answers = append(answers, a)
	}
	return w.writer.UpsertBatch(ctx, answers)
}

func (w *AutosaveWorker) requeue(ctx context.Context, raw []string) {
	values := make([]interface{}, len(raw))
	for i, item := range raw {
		values[i] = item
	}
	if err := w.rdb.RPush(ctx, w.key, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(raw)).Msg("Requeue failed, answers lost")
	}
}

func (w *AutosaveWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// drain persists the remaining items before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for ctx.Err() == nil {
		raw := w.popMore(ctx, w.batchSize)
		if len(raw) == 0 {
			break
		}
		if err := w.persist(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.requeue(context.Background(), raw)
			break
		}
		drained += len(raw)
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
