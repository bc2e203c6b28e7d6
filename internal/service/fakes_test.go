package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/repository"
)

var testLog = zerolog.Nop()

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTExpiry:        time.Hour,
		BcryptCost:       4,
		QuestionCacheTTL: time.Minute,
		MaxUploadBytes:   1024,
	}
}

func makeQuestions(n int, category string) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:       uuid.New(),
			Text:     fmt.Sprintf("%s %d", category, i),
			Category: category,
			Options: []model.Option{
				{ID: 0, Content: "a"},
				{ID: 1, Content: "b"},
				{ID: 2, Content: "c"},
			},
			CorrectAnswer: i % 3,
		}
	}
	return qs
}

// ─── Questions ─────────────────────────────────────────────────────────

type fakeQuestionStore struct {
	mu        sync.Mutex
	questions []model.Question
	listCalls int
	listErr   error
	// afterRead runs once List has copied the rows, outside the lock.
	afterRead func()
}

func (f *fakeQuestionStore) List(ctx context.Context) ([]model.Question, error) {
	f.mu.Lock()
	f.listCalls++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	rows := append([]model.Question(nil), f.questions...)
	hook := f.afterRead
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (f *fakeQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.questions {
		if f.questions[i].ID == id {
			q := f.questions[i]
			return &q, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeQuestionStore) Create(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	f.questions = append(f.questions, *q)
	return nil
}

func (f *fakeQuestionStore) Update(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.questions {
		if f.questions[i].ID == q.ID {
			f.questions[i] = *q
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeQuestionStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.questions {
		if f.questions[i].ID == id {
			f.questions = append(f.questions[:i], f.questions[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeQuestionStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// ─── Results ───────────────────────────────────────────────────────────

type fakeResultStore struct {
	mu      sync.Mutex
	fail    int
	results []model.ExamResult
	appends int
}

func (f *fakeResultStore) Append(ctx context.Context, r *model.ExamResult) (*model.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("database unavailable")
	}
	stored := r.Clone()
	stored.ID = uuid.New()
	f.results = append(f.results, *stored)
	return stored.Clone(), nil
}

func (f *fakeResultStore) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.results {
		if f.results[i].ID == id {
			return f.results[i].Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResultStore) ListByUser(ctx context.Context, userID int) ([]model.ExamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ExamResult
	for _, r := range f.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) counts() (appends, stored int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends, len(f.results)
}

// ─── Answer queue ──────────────────────────────────────────────────────

type fakeAnswerQueue struct {
	mu      sync.Mutex
	answers []model.AttemptAnswer
}

func (f *fakeAnswerQueue) Enqueue(ctx context.Context, a model.AttemptAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, a)
	return nil
}

func (f *fakeAnswerQueue) snapshot() []model.AttemptAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AttemptAnswer(nil), f.answers...)
}

// ─── Tickers ───────────────────────────────────────────────────────────

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

type tickerRecorder struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (r *tickerRecorder) factory() exam.TickerFactory {
	return func(time.Duration) exam.Ticker {
		r.mu.Lock()
		defer r.mu.Unlock()
		t := &manualTicker{ch: make(chan time.Time)}
		r.tickers = append(r.tickers, t)
		return t
	}
}

func (r *tickerRecorder) last() *manualTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickers[len(r.tickers)-1]
}

// ─── Users and sessions ────────────────────────────────────────────────

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) GetByID(ctx context.Context, id int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *u
	return &c, nil
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return repository.ErrDuplicateUsername
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	c := *u
	f.users[u.Username] = &c
	return nil
}

type fakeSessionStore struct {
	mu   sync.Mutex
	jtis map[int]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{jtis: make(map[int]string)}
}

func (f *fakeSessionStore) Set(ctx context.Context, userID int, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jtis[userID] = jti
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, userID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jtis[userID], nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jtis, userID)
	return nil
}

// ─── Suggestions ───────────────────────────────────────────────────────

type fakeSuggestionStore struct {
	mu          sync.Mutex
	suggestions []*model.SuggestedQuestion
	questions   *fakeQuestionStore
}

func (f *fakeSuggestionStore) Create(ctx context.Context, s *model.SuggestedQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.New()
	s.Status = model.SuggestionPending
	s.CreatedAt = time.Now().Add(time.Duration(len(f.suggestions)) * time.Second)
	c := *s
	f.suggestions = append(f.suggestions, &c)
	return nil
}

func (f *fakeSuggestionStore) ListByUser(ctx context.Context, userID int) ([]model.SuggestedQuestion, error) {
	return f.filter(func(s *model.SuggestedQuestion) bool { return s.UserID == userID }), nil
}

func (f *fakeSuggestionStore) List(ctx context.Context, status *model.SuggestionStatus) ([]model.SuggestedQuestion, error) {
	return f.filter(func(s *model.SuggestedQuestion) bool { return status == nil || s.Status == *status }), nil
}

func (f *fakeSuggestionStore) filter(keep func(*model.SuggestedQuestion) bool) []model.SuggestedQuestion {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SuggestedQuestion
	for _, s := range f.suggestions {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeSuggestionStore) pending(id uuid.UUID) (*model.SuggestedQuestion, error) {
	for _, s := range f.suggestions {
		if s.ID == id {
			if s.Status != model.SuggestionPending {
				return nil, repository.ErrSuggestionReviewed
			}
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSuggestionStore) Approve(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, *model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.pending(id)
	if err != nil {
		return nil, nil, err
	}
	q := s.ToQuestion()
	if err := f.questions.Create(ctx, q); err != nil {
		return nil, nil, err
	}
	now := time.Now()
	s.Status = model.SuggestionApproved
	s.QuestionID = &q.ID
	s.ReviewedAt = &now
	c := *s
	return &c, q, nil
}

func (f *fakeSuggestionStore) Reject(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.pending(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s.Status = model.SuggestionRejected
	s.ReviewedAt = &now
	c := *s
	return &c, nil
}
