package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// makePool builds n questions with four options each; the correct option of
// question i is i%4.
func makePool(n int) []model.Question {
	pool := make([]model.Question, n)
	for i := range pool {
		pool[i] = model.Question{
			ID:       uuid.New(),
			Text:     fmt.Sprintf("question %d", i),
			Category: "signs",
			Options: []model.Option{
				{ID: 0, Content: "a"},
				{ID: 1, Content: "b"},
				{ID: 2, Content: "c"},
				{ID: 3, Content: "d"},
			},
			CorrectAnswer: i % 4,
		}
	}
	return pool
}

func wrongAnswer(q model.Question) int {
	return (q.CorrectAnswer + 1) % 4
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time)}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeTicker) factory() TickerFactory {
	return func(time.Duration) Ticker { return f }
}

func tick(t *testing.T, f *fakeTicker) {
	t.Helper()
	select {
	case f.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not consume tick")
	}
}

type fakeStore struct {
	mu      sync.Mutex
	calls   int
	fail    int
	gate    chan struct{}
	entered chan struct{}
	stored  []*model.ExamResult
}

func (f *fakeStore) Append(ctx context.Context, r *model.ExamResult) (*model.ExamResult, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail > 0
	if fail {
		f.fail--
	}
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("connection refused")
	}

	out := r.Clone()
	out.ID = uuid.New()
	f.mu.Lock()
	f.stored = append(f.stored, out)
	f.mu.Unlock()
	return out.Clone(), nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) storedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}
