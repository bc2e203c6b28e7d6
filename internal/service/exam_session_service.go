package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/exam"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

var (
	ErrNoActiveExam  = errors.New("no active exam attempt")
	ErrShuttingDown  = errors.New("exam service is shutting down")
	errEventsDropped = errors.New("event buffer full")
)

const (
	eventBuffer      = 64
	subscriberBuffer = 16
	enqueueTimeout   = 2 * time.Second
)

// QuestionLister supplies the question bank an exam is drawn from.
type QuestionLister interface {
	List(ctx context.Context) ([]model.Question, error)
}

// AnswerQueue receives answer selections for asynchronous persistence.
type AnswerQueue interface {
	Enqueue(ctx context.Context, a model.AttemptAnswer) error
}

// ExamView is the state of a running attempt together with its questions.
type ExamView struct {
	exam.Snapshot
	Questions []exam.QuestionView `json:"questions"`
}

// ExamSessionOption customizes an ExamSessionService.
type ExamSessionOption func(*ExamSessionService)

// WithTickerFactory replaces the countdown ticker of new sessions.
func WithTickerFactory(f exam.TickerFactory) ExamSessionOption {
	return func(s *ExamSessionService) { s.newTicker = f }
}

// WithTimeBudget overrides the countdown of new sessions.
func WithTimeBudget(d time.Duration) ExamSessionOption {
	return func(s *ExamSessionService) { s.budget = d }
}

// ExamSessionService keeps at most one live exam attempt per user and fans
// session events out to subscribers and the answer queue.
type ExamSessionService struct {
	questions QuestionLister
	results   exam.ResultStore
	answers   AnswerQueue
	log       zerolog.Logger

	newTicker exam.TickerFactory
	budget    time.Duration

	// baseCtx outlives requests; cancelling it abandons every live session.
	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	live   map[int]*liveExam
	closed bool
}

type liveExam struct {
	session *exam.Session
	events  chan exam.Event

	mu     sync.Mutex
	subs   map[chan exam.Event]struct{}
	closed bool
}

// NewExamSessionService creates a new ExamSessionService. answers may be nil.
func NewExamSessionService(questions QuestionLister, results exam.ResultStore, answers AnswerQueue, log zerolog.Logger, opts ...ExamSessionOption) *ExamSessionService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ExamSessionService{
		questions: questions,
		results:   results,
		answers:   answers,
		log:       log.With().Str("component", "exam_session_service").Logger(),
		budget:    exam.TimeBudget,
		baseCtx:   ctx,
		stop:      cancel,
		live:      make(map[int]*liveExam),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start draws a fresh question set and begins a timed attempt for userID.
// Any attempt the user still has running is abandoned.
func (s *ExamSessionService) Start(ctx context.Context, userID int) (*ExamView, error) {
	pool, err := s.questions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if !exam.CanStart(pool, exam.QuestionCount) {
		return nil, fmt.Errorf("%w: bank has %d questions", exam.ErrInsufficientQuestions, len(pool))
	}

	rng, err := exam.NewRand()
	if err != nil {
		return nil, err
	}
	set, err := exam.SelectQuestionSet(pool, exam.QuestionCount, rng)
	if err != nil {
		return nil, err
	}

	le := &liveExam{
		events: make(chan exam.Event, eventBuffer),
		subs:   make(map[chan exam.Event]struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	session, err := exam.Start(s.baseCtx, exam.Options{
		UserID:    userID,
		Questions: set,
		Store:     s.results,
		OnEvent:   s.eventSink(le),
		Budget:    s.budget,
		NewTicker: s.newTicker,
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	le.session = session
	prev := s.live[userID]
	s.live[userID] = le
	s.mu.Unlock()

	go s.dispatch(userID, le)

	if prev != nil {
		prev.session.Abandon()
		s.log.Info().
			Int("user_id", userID).
			Str("attempt_id", prev.session.ID().String()).
			Msg("Previous attempt abandoned")
	}

	s.log.Info().
		Int("user_id", userID).
		Str("attempt_id", session.ID().String()).
		Msg("Exam started")

	return s.view(ctx, session)
}

// State returns the running attempt of userID.
func (s *ExamSessionService) State(ctx context.Context, userID int) (*ExamView, error) {
	le, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, le.session)
}

// Answer records an option for one question and returns the updated state.
func (s *ExamSessionService) Answer(ctx context.Context, userID, index, optionID int) (exam.Snapshot, error) {
	le, err := s.get(userID)
	if err != nil {
		return exam.Snapshot{}, err
	}
	if err := le.session.SelectAnswer(ctx, index, optionID); err != nil {
		return exam.Snapshot{}, closedAsInactive(err)
	}
	return le.session.Snapshot(ctx)
}

// Navigate moves the current question pointer.
func (s *ExamSessionService) Navigate(ctx context.Context, userID int, dir exam.Direction) (exam.Snapshot, error) {
	le, err := s.get(userID)
	if err != nil {
		return exam.Snapshot{}, err
	}
	if _, err := le.session.Navigate(ctx, dir); err != nil {
		return exam.Snapshot{}, closedAsInactive(err)
	}
	return le.session.Snapshot(ctx)
}

// Submit grades and persists the running attempt. When persisting fails the
// attempt stays registered so that a later Submit can retry.
func (s *ExamSessionService) Submit(ctx context.Context, userID int) (*model.ExamResult, error) {
	le, err := s.get(userID)
	if err != nil {
		return nil, err
	}
	result, err := le.session.Submit(ctx)
	if err != nil {
		if errors.Is(err, exam.ErrPersistFailed) {
			s.log.Error().Err(err).
				Int("user_id", userID).
				Str("attempt_id", le.session.ID().String()).
				Msg("Exam result could not be stored")
		}
		return nil, err
	}
	return result, nil
}

// Abandon discards the running attempt of userID without writing a result.
func (s *ExamSessionService) Abandon(userID int) error {
	s.mu.Lock()
	le, ok := s.live[userID]
	if ok {
		delete(s.live, userID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNoActiveExam
	}

	le.session.Abandon()
	return nil
}

// Subscribe streams the events of userID's running attempt. The channel is
// closed when the attempt ends or cancel is called. Slow subscribers miss
// events rather than stall the session.
func (s *ExamSessionService) Subscribe(userID int) (<-chan exam.Event, func(), error) {
	le, err := s.get(userID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan exam.Event, subscriberBuffer)
	le.mu.Lock()
	if le.closed {
		le.mu.Unlock()
		return nil, nil, ErrNoActiveExam
	}
	le.subs[ch] = struct{}{}
	le.mu.Unlock()

	cancel := func() {
		le.mu.Lock()
		defer le.mu.Unlock()
		if _, ok := le.subs[ch]; ok {
			delete(le.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// ActiveCount returns the number of registered attempts.
func (s *ExamSessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Shutdown abandons every live attempt and waits for their goroutines to
// exit or ctx to end. New attempts are refused afterwards.
func (s *ExamSessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*exam.Session, 0, len(s.live))
	for _, le := range s.live {
		sessions = append(sessions, le.session)
	}
	s.mu.Unlock()

	s.stop()
	for _, sess := range sessions {
		select {
		case <-sess.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.log.Info().Int("count", len(sessions)).Msg("Live exam attempts abandoned")
	return nil
}

func (s *ExamSessionService) get(userID int) (*liveExam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	le, ok := s.live[userID]
	if !ok {
		return nil, ErrNoActiveExam
	}
	return le, nil
}

func (s *ExamSessionService) view(ctx context.Context, session *exam.Session) (*ExamView, error) {
	snap, err := session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &ExamView{Snapshot: snap, Questions: session.Paper()}, nil
}

// eventSink runs on the session goroutine and must never block.
func (s *ExamSessionService) eventSink(le *liveExam) func(exam.Event) {
	return func(e exam.Event) {
		select {
		case le.events <- e:
		default:
			s.log.Warn().Err(errEventsDropped).
				Str("attempt_id", e.AttemptID.String()).
				Str("event", string(e.Type)).
				Msg("Exam event dropped")
		}
	}
}

func (s *ExamSessionService) dispatch(userID int, le *liveExam) {
	for {
		select {
		case e := <-le.events:
			s.handleEvent(le, e)
		case <-le.session.Done():
			s.drain(le)
			s.finish(userID, le)
			return
		}
	}
}

func (s *ExamSessionService) drain(le *liveExam) {
	for {
		select {
		case e := <-le.events:
			s.handleEvent(le, e)
		default:
			return
		}
	}
}

func (s *ExamSessionService) handleEvent(le *liveExam, e exam.Event) {
	le.mu.Lock()
	for ch := range le.subs {
		select {
		case ch <- e:
		default:
		}
	}
	le.mu.Unlock()

	switch e.Type {
	case exam.EventAnswer:
		s.enqueueAnswer(e)
	case exam.EventSubmitted:
		if e.Result != nil {
			s.log.Info().
				Int("user_id", e.UserID).
				Str("attempt_id", e.AttemptID.String()).
				Int("score", e.Result.Score).
				Int("percentage", e.Result.Percentage).
				Bool("passed", e.Result.Passed).
				Bool("auto_submitted", e.Result.AutoSubmitted).
				Msg("Exam submitted")
		}
	case exam.EventSubmitFailed:
		s.log.Warn().
			Int("user_id", e.UserID).
			Str("attempt_id", e.AttemptID.String()).
			Str("error", e.Error).
			Msg("Exam submission failed")
	}
}

func (s *ExamSessionService) enqueueAnswer(e exam.Event) {
	if s.answers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	err := s.answers.Enqueue(ctx, model.AttemptAnswer{
		AttemptID:     e.AttemptID,
		UserID:        e.UserID,
		QuestionIndex: e.QuestionIndex,
		QuestionID:    e.QuestionID,
		OptionID:      e.OptionID,
		UpdatedAt:     time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", e.AttemptID.String()).Msg("Failed to queue answer")
	}
}

func (s *ExamSessionService) finish(userID int, le *liveExam) {
	le.mu.Lock()
	le.closed = true
	for ch := range le.subs {
		delete(le.subs, ch)
		close(ch)
	}
	le.mu.Unlock()

	s.mu.Lock()
	if s.live[userID] == le {
		delete(s.live, userID)
	}
	s.mu.Unlock()
}

func closedAsInactive(err error) error {
	if errors.Is(err, exam.ErrSessionClosed) {
		return ErrNoActiveExam
	}
	return err
}
