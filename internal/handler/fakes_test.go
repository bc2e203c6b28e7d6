package handler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/repository"
)

// ─── Users & sessions ──────────────────────────────────────────────────

type memUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (m *memUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicateUsername
		}
	}
	u.ID = len(m.users) + 1
	u.CreatedAt = time.Now()
	m.users = append(m.users, *u)
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	jtis map[int]string
}

func (m *memSessions) Set(_ context.Context, userID int, jti string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jtis[userID] = jti
	return nil
}

func (m *memSessions) Get(_ context.Context, userID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jtis[userID], nil
}

func (m *memSessions) Delete(_ context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jtis, userID)
	return nil
}

// ─── Questions ─────────────────────────────────────────────────────────

type memQuestions struct {
	mu        sync.Mutex
	questions []model.Question
}

func (m *memQuestions) List(_ context.Context) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Question(nil), m.questions...), nil
}

func (m *memQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			return &q, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memQuestions) Create(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.questions = append(m.questions, *q)
	return nil
}

func (m *memQuestions) Update(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == q.ID {
			m.questions[i] = *q
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memQuestions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.questions {
		if m.questions[i].ID == id {
			m.questions = append(m.questions[:i], m.questions[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memQuestions) correctAnswer(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.questions {
		if q.ID == id {
			return q.CorrectAnswer
		}
	}
	return -1
}

func seedQuestions(n int, categories ...string) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:       uuid.New(),
			Text:     fmt.Sprintf("Câu hỏi %d", i+1),
			Category: categories[i%len(categories)],
			Options: []model.Option{
				{ID: 0, Content: "A"},
				{ID: 1, Content: "B"},
				{ID: 2, Content: "C"},
			},
			CorrectAnswer: i % 3,
		}
	}
	return qs
}

// ─── Results ───────────────────────────────────────────────────────────

type memResults struct {
	mu      sync.Mutex
	fail    int
	results []model.ExamResult
}

func (m *memResults) Append(_ context.Context, r *model.ExamResult) (*model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return nil, errors.New("database unavailable")
	}
	stored := r.Clone()
	stored.ID = uuid.New()
	m.results = append(m.results, *stored)
	return stored.Clone(), nil
}

func (m *memResults) GetByID(_ context.Context, id uuid.UUID) (*model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memResults) ListByUser(_ context.Context, userID int) ([]model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamResult
	for _, r := range m.results {
		if r.UserID == userID {
			out = append(out, *r.Clone())
		}
	}
	return out, nil
}

func (m *memResults) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

type memAnswers struct {
	answers []model.AttemptAnswer
}

func (m *memAnswers) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	var out []model.AttemptAnswer
	for _, a := range m.answers {
		if a.AttemptID == attemptID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Suggestions ───────────────────────────────────────────────────────

type memSuggestions struct {
	mu          sync.Mutex
	questions   *memQuestions
	suggestions []model.SuggestedQuestion
}

func (m *memSuggestions) Create(_ context.Context, s *model.SuggestedQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.Status = model.SuggestionPending
	s.CreatedAt = time.Now()
	m.suggestions = append(m.suggestions, *s)
	return nil
}

func (m *memSuggestions) ListByUser(_ context.Context, userID int) ([]model.SuggestedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SuggestedQuestion
	for _, s := range m.suggestions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSuggestions) List(_ context.Context, status *model.SuggestionStatus) ([]model.SuggestedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SuggestedQuestion
	for _, s := range m.suggestions {
		if status == nil || s.Status == *status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSuggestions) Approve(ctx context.Context, id uuid.UUID) (*model.SuggestedQuestion, *model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pending(id)
	if err != nil {
		return nil, nil, err
	}
	q := s.ToQuestion()
	if err := m.questions.Create(ctx, q); err != nil {
		return nil, nil, err
	}
	now := time.Now()
	s.Status = model.SuggestionApproved
	s.QuestionID = &q.ID
	s.ReviewedAt = &now
	out := *s
	return &out, q, nil
}

func (m *memSuggestions) Reject(_ context.Context, id uuid.UUID) (*model.SuggestedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pending(id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s.Status = model.SuggestionRejected
	s.ReviewedAt = &now
	out := *s
	return &out, nil
}

func (m *memSuggestions) pending(id uuid.UUID) (*model.SuggestedQuestion, error) {
	for i := range m.suggestions {
		if m.suggestions[i].ID == id {
			if m.suggestions[i].Status != model.SuggestionPending {
				return nil, repository.ErrSuggestionReviewed
			}
			return &m.suggestions[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

// ─── Database ping ─────────────────────────────────────────────────────

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
