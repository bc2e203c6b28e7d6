package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memList struct {
	mu    sync.Mutex
	items map[string][]string
}

func newMemList() *memList { return &memList{items: map[string][]string{}} }

func (m *memList) BLPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if len(m.items[k]) > 0 {
			v := m.items[k][0]
			m.items[k] = m.items[k][1:]
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	time.Sleep(2 * time.Millisecond)
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (m *memList) LPop(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items[key]) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	v := m.items[key][0]
	m.items[key] = m.items[key][1:]
	return redis.NewStringResult(v, nil)
}

func (m *memList) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		switch s := v.(type) {
		case []byte:
			m.items[key] = append(m.items[key], string(s))
		default:
			m.items[key] = append(m.items[key], fmt.Sprint(s))
		}
	}
	return redis.NewIntResult(int64(len(m.items[key])), nil)
}

func (m *memList) len(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[key])
}

type memWriter struct {
	mu      sync.Mutex
	failFor int
	saved   []model.AttemptAnswer
	calls   int
}

func (w *memWriter) UpsertBatch(_ context.Context, answers []model.AttemptAnswer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.failFor > 0 {
		w.failFor--
		return errors.New("db down")
	}
	w.saved = append(w.saved, answers...)
	return nil
}

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.saved)
}

func answer(index int) model.AttemptAnswer {
	return model.AttemptAnswer{
		AttemptID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		UserID:        7,
		QuestionIndex: index,
		QuestionID:    uuid.New(),
		OptionID:      index % 3,
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestAnswerQueue_EnqueueEncodesJSON(t *testing.T) {
	list := newMemList()
	q := NewAnswerQueue(list)

	a := answer(4)
	require.NoError(t, q.Enqueue(context.Background(), a))
	require.Equal(t, 1, list.len(config.WorkerKey.AttemptAnswersQueue))

	raw := list.items[config.WorkerKey.AttemptAnswersQueue][0]
	var got model.AttemptAnswer
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, a.QuestionIndex, got.QuestionIndex)
	assert.Equal(t, a.QuestionID, got.QuestionID)
	assert.Equal(t, a.OptionID, got.OptionID)
}

func TestAutosaveWorker_PersistsInBatches(t *testing.T) {
	list := newMemList()
	q := NewAnswerQueue(list)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), answer(i)))
	}

	writer := &memWriter{}
	w := NewAutosaveWorker(list, writer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	require.Eventually(t, func() bool { return writer.count() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	<-w.Done()

	assert.Equal(t, 0, list.len(config.WorkerKey.AttemptAnswersQueue))
	assert.Equal(t, 1, writer.calls, "one BLPop plus LPop batch")
}

func TestAutosaveWorker_RequeuesOnFailure(t *testing.T) {
	list := newMemList()
	q := NewAnswerQueue(list)
	require.NoError(t, q.Enqueue(context.Background(), answer(0)))
	require.NoError(t, q.Enqueue(context.Background(), answer(1)))

	writer := &memWriter{failFor: 1}
	w := NewAutosaveWorker(list, writer, zerolog.Nop())
	w.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	require.Eventually(t, func() bool { return writer.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-w.Done()
	assert.Equal(t, 0, list.len(config.WorkerKey.AttemptAnswersQueue))
}

func TestAutosaveWorker_DropsMalformedPayloads(t *testing.T) {
	list := newMemList()
	list.RPush(context.Background(), config.WorkerKey.AttemptAnswersQueue, "not json")
	require.NoError(t, NewAnswerQueue(list).Enqueue(context.Background(), answer(2)))

	writer := &memWriter{}
	w := NewAutosaveWorker(list, writer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	require.Eventually(t, func() bool { return writer.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-w.Done()
	assert.Equal(t, 0, list.len(config.WorkerKey.AttemptAnswersQueue))
}

func TestAutosaveWorker_DrainsOnShutdown(t *testing.T) {
	list := newMemList()
	writer := &memWriter{}
	w := NewAutosaveWorker(list, writer, zerolog.Nop())

	q := NewAnswerQueue(list)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), answer(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	assert.Equal(t, 3, writer.count())
	assert.Equal(t, 0, list.len(config.WorkerKey.AttemptAnswersQueue))
}
