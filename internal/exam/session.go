package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

const defaultWriteTimeout = 10 * time.Second

// EventType enumerates what a session reports to its listener.
type EventType string

const (
	EventTick         EventType = "tick"
	EventAnswer       EventType = "answer"
	EventSubmitting   EventType = "submitting"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submit_failed"
	EventAbandoned    EventType = "abandoned"
)

// Event is emitted from the session goroutine.
type Event struct {
	Type             EventType         `json:"type"`
	AttemptID        uuid.UUID         `json:"attempt_id"`
	UserID           int               `json:"user_id"`
	RemainingSeconds int               `json:"remaining_seconds"`
	QuestionIndex    int               `json:"question_index,omitempty"`
	QuestionID       uuid.UUID         `json:"question_id,omitempty"`
	OptionID         int               `json:"option_id,omitempty"`
	AutoSubmitted    bool              `json:"auto_submitted,omitempty"`
	Result           *model.ExamResult `json:"result,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// Options configures a new session.
type Options struct {
	// AttemptID is generated when zero.
	AttemptID uuid.UUID
	UserID    int
	Questions []model.Question
	Store     ResultStore

	// OnEvent runs on the session goroutine. It must not block and must not
	// call back into the session.
	OnEvent func(Event)

	// Budget defaults to TimeBudget.
	Budget time.Duration
	// NewTicker defaults to a one-second time.Ticker.
	NewTicker    TickerFactory
	Now          func() time.Time
	WriteTimeout time.Duration
}

// QuestionView is a question as shown during the exam, without its answer.
type QuestionView struct {
	ID       uuid.UUID      `json:"id"`
	Text     string         `json:"text"`
	Category string         `json:"category"`
	Image    string         `json:"image,omitempty"`
	Options  []model.Option `json:"options"`
}

// Snapshot is a point-in-time copy of the attempt state.
type Snapshot struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	UserID           int               `json:"user_id"`
	Status           Status            `json:"status"`
	CurrentIndex     int               `json:"current_index"`
	TotalQuestions   int               `json:"total_questions"`
	AnsweredCount    int               `json:"answered_count"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Clock            string            `json:"clock"`
	Answers          []int             `json:"answers"`
	StartedAt        time.Time         `json:"started_at"`
	Result           *model.ExamResult `json:"result,omitempty"`
	LastError        string            `json:"last_error,omitempty"`
}

// Session is one timed exam attempt.
type Session struct {
	id           uuid.UUID
	userID       int
	questions    []model.Question
	startedAt    time.Time
	store        ResultStore
	onEvent      func(Event)
	now          func() time.Time
	writeTimeout time.Duration

	cmds   chan func(*attempt)
	writes chan writeOutcome

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// final is written by the session goroutine before done is closed.
	final Snapshot
}

type attempt struct {
	status    Status
	answers   []int
	current   int
	remaining int
	ticker    Ticker

	result  *model.ExamResult
	stored  *model.ExamResult
	lastErr error
	waiters []chan submitOutcome
}

type submitOutcome struct {
	result *model.ExamResult
	err    error
}

type writeOutcome struct {
	stored *model.ExamResult
	err    error
}

// Start begins an attempt over an already selected question set and starts
// its countdown. The session lives until it is submitted, abandoned, or ctx
// ends; ctx should therefore outlive the request that created the session.
func Start(ctx context.Context, opts Options) (*Session, error) {
	if len(opts.Questions) == 0 {
		return nil, ErrInsufficientQuestions
	}
	if opts.Store == nil {
		return nil, errors.New("exam: result store is required")
	}
	if opts.Budget <= 0 {
		opts.Budget = TimeBudget
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.AttemptID == uuid.Nil {
		opts.AttemptID = uuid.New()
	}

	seconds := int(opts.Budget / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	s := &Session{
		id:           opts.AttemptID,
		userID:       opts.UserID,
		questions:    append([]model.Question(nil), opts.Questions...),
		startedAt:    opts.Now(),
		store:        opts.Store,
		onEvent:      opts.OnEvent,
		now:          opts.Now,
		writeTimeout: opts.WriteTimeout,
		cmds:         make(chan func(*attempt)),
		writes:       make(chan writeOutcome, 1),
		done:         make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	a := &attempt{
		status:    StatusActive,
		answers:   make([]int, len(s.questions)),
		remaining: seconds,
		ticker:    opts.NewTicker(time.Second),
	}
	for i := range a.answers {
		a.answers[i] = Unanswered
	}

	go s.run(a)
	return s, nil
}

// ID returns the attempt id.
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the owner of the attempt.
func (s *Session) UserID() int { return s.userID }

// Done is closed once the attempt is submitted or abandoned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Paper returns the question set without correct answers.
func (s *Session) Paper() []QuestionView {
	views := make([]QuestionView, len(s.questions))
	for i := range s.questions {
		views[i] = ViewOf(&s.questions[i])
	}
	return views
}

// ViewOf strips the correct answer from q.
func ViewOf(q *model.Question) QuestionView {
	return QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Category: q.Category,
		Image:    q.Image,
		Options:  append([]model.Option(nil), q.Options...),
	}
}

// Snapshot returns the current attempt state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	err := s.send(ctx, func(a *attempt) { reply <- s.snapshot(a) })
	if errors.Is(err, ErrSessionClosed) {
		return s.final, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return <-reply, nil
}

// SelectAnswer records optionID for the question at index. Out-of-range
// indices are ignored.
func (s *Session) SelectAnswer(ctx context.Context, index, optionID int) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, func(a *attempt) { reply <- s.selectAnswer(a, index, optionID) }); err != nil {
		return err
	}
	return <-reply
}

// Navigate moves the current question pointer and returns the new index. It
// fails with ErrNotActive once the attempt has left the active state.
// Moving past either end is a no-op.
func (s *Session) Navigate(ctx context.Context, dir Direction) (int, error) {
	type navigated struct {
		index int
		err   error
	}
	reply := make(chan navigated, 1)
	if err := s.send(ctx, func(a *attempt) {
		idx, err := s.navigate(a, dir)
		reply <- navigated{idx, err}
	}); err != nil {
		return 0, err
	}
	r := <-reply
	return r.index, r.err
}

// Submit grades the attempt and persists the result. The first submission,
// manual or automatic, wins: later calls join the in-flight write or return
// the stored result without writing again. After a failed write, Submit
// retries with the result computed the first time.
func (s *Session) Submit(ctx context.Context) (*model.ExamResult, error) {
	reply := make(chan submitOutcome, 1)
	err := s.send(ctx, func(a *attempt) { s.beginSubmit(a, false, reply) })
	if errors.Is(err, ErrSessionClosed) {
		if s.final.Status == StatusSubmitted && s.final.Result != nil {
			return s.final.Result.Clone(), nil
		}
		return nil, ErrAbandoned
	}
	if err != nil {
		return nil, err
	}

	select {
	case out := <-reply:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Abandon stops the countdown, cancels any in-flight write and discards the
// attempt. It returns once the session goroutine has exited.
func (s *Session) Abandon() {
	_ = s.send(context.Background(), func(a *attempt) { s.abandon(a) })
	<-s.done
}

// Result returns the persisted result once the session has been submitted.
func (s *Session) Result() (*model.ExamResult, bool) {
	select {
	case <-s.done:
	default:
		return nil, false
	}
	if s.final.Status != StatusSubmitted || s.final.Result == nil {
		return nil, false
	}
	return s.final.Result.Clone(), true
}

func (s *Session) send(ctx context.Context, fn func(*attempt)) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.cmds <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(a *attempt) {
	defer close(s.done)
	defer s.cancel()

	for {
		var tick <-chan time.Time
		if a.ticker != nil {
			tick = a.ticker.C()
		}

		select {
		case <-tick:
			s.onTick(a)
		case fn := <-s.cmds:
			fn(a)
		case out := <-s.writes:
			s.onWriteDone(a, out)
		case <-s.ctx.Done():
			s.abandon(a)
		}

		if a.status == StatusSubmitted || a.status == StatusAbandoned {
			s.final = s.snapshot(a)
			return
		}
	}
}

func (s *Session) onTick(a *attempt) {
	if a.status != StatusActive {
		return
	}
	a.remaining--
	if a.remaining < 0 {
		a.remaining = 0
	}
	s.emit(Event{Type: EventTick, RemainingSeconds: a.remaining})
	if a.remaining == 0 {
		s.beginSubmit(a, true, nil)
	}
}

func (s *Session) selectAnswer(a *attempt, index, optionID int) error {
	if a.status != StatusActive {
		return ErrNotActive
	}
	if index < 0 || index >= len(s.questions) {
		return nil
	}
	q := &s.questions[index]
	if !q.HasOption(optionID) {
		return ErrUnknownOption
	}
	if a.answers[index] == optionID {
		return nil
	}
	a.answers[index] = optionID
	s.emit(Event{
		Type:             EventAnswer,
		RemainingSeconds: a.remaining,
		QuestionIndex:    index,
		QuestionID:       q.ID,
		OptionID:         optionID,
	})
	return nil
}

func (s *Session) navigate(a *attempt, dir Direction) (int, error) {
	if a.status != StatusActive {
		return a.current, ErrNotActive
	}
	switch dir {
	case DirectionPrevious:
		if a.current > 0 {
			a.current--
		}
	case DirectionNext:
		if a.current < len(s.questions)-1 {
			a.current++
		}
	}
	return a.current, nil
}

func (s *Session) beginSubmit(a *attempt, auto bool, waiter chan submitOutcome) {
	switch a.status {
	case StatusActive:
		a.stopTimer()
		a.result = Grade(s.id, s.userID, s.questions, a.answers, s.now())
		a.result.AutoSubmitted = auto
		a.status = StatusSubmitting
		a.addWaiter(waiter)
		s.emit(Event{Type: EventSubmitting, RemainingSeconds: a.remaining, AutoSubmitted: auto})
		s.write(a)
	case StatusSubmitting:
		a.addWaiter(waiter)
	case StatusSubmitFailed:
		a.status = StatusSubmitting
		a.lastErr = nil
		a.addWaiter(waiter)
		s.emit(Event{Type: EventSubmitting, RemainingSeconds: a.remaining, AutoSubmitted: a.result.AutoSubmitted})
		s.write(a)
	case StatusSubmitted:
		if waiter != nil {
			waiter <- submitOutcome{result: a.stored.Clone()}
		}
	default:
		if waiter != nil {
			waiter <- submitOutcome{err: ErrAbandoned}
		}
	}
}

func (s *Session) write(a *attempt) {
	result := a.result.Clone()
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
		defer cancel()
		stored, err := s.store.Append(ctx, result)
		s.writes <- writeOutcome{stored: stored, err: err}
	}()
}

func (s *Session) onWriteDone(a *attempt, out writeOutcome) {
	if a.status != StatusSubmitting {
		return
	}
	if out.err != nil {
		a.status = StatusSubmitFailed
		a.lastErr = out.err
		a.notify(submitOutcome{err: fmt.Errorf("%w: %w", ErrPersistFailed, out.err)})
		s.emit(Event{Type: EventSubmitFailed, RemainingSeconds: a.remaining, Error: out.err.Error()})
		return
	}

	stored := out.stored
	if stored == nil {
		stored = a.result.Clone()
	}
	a.stored = stored
	a.status = StatusSubmitted
	a.notify(submitOutcome{result: stored.Clone()})
	s.emit(Event{Type: EventSubmitted, RemainingSeconds: a.remaining, Result: stored.Clone()})
}

func (s *Session) abandon(a *attempt) {
	if a.status == StatusSubmitted || a.status == StatusAbandoned {
		return
	}
	a.stopTimer()
	a.status = StatusAbandoned
	s.cancel()
	a.notify(submitOutcome{err: ErrAbandoned})
	s.emit(Event{Type: EventAbandoned, RemainingSeconds: a.remaining})
}

func (s *Session) snapshot(a *attempt) Snapshot {
	answered := 0
	for _, v := range a.answers {
		if v != Unanswered {
			answered++
		}
	}
	snap := Snapshot{
		AttemptID:        s.id,
		UserID:           s.userID,
		Status:           a.status,
		CurrentIndex:     a.current,
		TotalQuestions:   len(s.questions),
		AnsweredCount:    answered,
		RemainingSeconds: a.remaining,
		Clock:            FormatClock(a.remaining),
		Answers:          append([]int(nil), a.answers...),
		StartedAt:        s.startedAt,
	}
	switch {
	case a.stored != nil:
		snap.Result = a.stored.Clone()
	case a.result != nil:
		snap.Result = a.result.Clone()
	}
	if a.lastErr != nil {
		snap.LastError = a.lastErr.Error()
	}
	return snap
}

func (s *Session) emit(e Event) {
	if s.onEvent == nil {
		return
	}
	e.AttemptID = s.id
	e.UserID = s.userID
	s.onEvent(e)
}

func (a *attempt) stopTimer() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
}

func (a *attempt) addWaiter(w chan submitOutcome) {
	if w != nil {
		a.waiters = append(a.waiters, w)
	}
}

func (a *attempt) notify(out submitOutcome) {
	for _, w := range a.waiters {
		w <- out
	}
	a.waiters = nil
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
