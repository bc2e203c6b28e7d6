package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"golang.org/x/sync/singleflight"
)

// CategoryAll selects every category.
const CategoryAll = "all"

// bankLoadTimeout bounds a shared question bank load. The load is detached
// from the caller that started it, since other callers may be waiting on it.
const bankLoadTimeout = 10 * time.Second

var ErrQuestionNotFound = errors.New("question not found")

// QuestionStore is the persistence behind the question bank.
type QuestionStore interface {
	List(ctx context.Context) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionService serves the question bank. The full list is cached in Redis
// and rebuilt at most once at a time per process.
type QuestionService struct {
	repo  QuestionStore
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	// generation is bumped by Invalidate. A load only caches what it read
	// if no write happened meanwhile.
	generation atomic.Uint64
	log        zerolog.Logger
}

// NewQuestionService creates a new QuestionService. rdb may be nil, in which
// case every read goes to the store.
func NewQuestionService(repo QuestionStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		repo: repo,
		rdb:  rdb,
		ttl:  cfg.QuestionCacheTTL,
		log:  log.With().Str("component", "question_service").Logger(),
	}
}

// List returns the whole question bank.
func (s *QuestionService) List(ctx context.Context) ([]model.Question, error) {
	if cached, ok := s.readCache(ctx); ok {
		return cached, nil
	}

	ch := s.group.DoChan("questions", func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bankLoadTimeout)
		defer cancel()
		return s.load(lctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.Question), nil
	}
}

func (s *QuestionService) load(ctx context.Context) ([]model.Question, error) {
	gen := s.generation.Load()
	questions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}

	if s.generation.Load() != gen {
		return questions, nil
	}
	s.writeCache(ctx, questions)
	// Invalidate may have run between the check and the write.
	if s.generation.Load() != gen {
		s.dropCache(ctx)
	}
	return questions, nil
}

// ListByCategory returns the questions of one category, or all of them for
// CategoryAll and "".
func (s *QuestionService) ListByCategory(ctx context.Context, category string) ([]model.Question, error) {
	questions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" || category == CategoryAll {
		return questions, nil
	}

	filtered := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if q.Category == category {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

// Categories returns CategoryAll followed by each category in order of first
// appearance, with question counts.
func (s *QuestionService) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	questions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	var order []string
	for _, q := range questions {
		if _, ok := counts[q.Category]; !ok {
			order = append(order, q.Category)
		}
		counts[q.Category]++
	}

	categories := make([]model.CategoryCount, 0, len(order)+1)
	categories = append(categories, model.CategoryCount{Category: CategoryAll, Count: len(questions)})
	for _, c := range order {
		categories = append(categories, model.CategoryCount{Category: c, Count: counts[c]})
	}
	return categories, nil
}

// GetByID retrieves a single question.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, req *model.QuestionRequest) (*model.Question, error) {
	q, err := req.ToQuestion()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.Invalidate(ctx)
	return q, nil
}

// Update replaces a question's content.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.QuestionRequest) (*model.Question, error) {
	q, err := req.ToQuestion()
	if err != nil {
		return nil, err
	}
	q.ID = id
	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.Invalidate(ctx)
	return q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached question bank. Loads that started before the
// call do not write their result back.
func (s *QuestionService) Invalidate(ctx context.Context) {
	s.generation.Add(1)
	s.group.Forget("questions")
	s.dropCache(ctx)
}

func (s *QuestionService) dropCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.QuestionBankKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate question cache")
	}
}

func (s *QuestionService) readCache(ctx context.Context) ([]model.Question, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, config.CacheKey.QuestionBankKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Question cache read failed")
		}
		return nil, false
	}
	var questions []model.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		s.log.Warn().Err(err).Msg("Corrupt question cache entry")
		return nil, false
	}
	return questions, true
}

func (s *QuestionService) writeCache(ctx context.Context, questions []model.Question) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuestionBankKey(), raw, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Question cache write failed")
	}
}
