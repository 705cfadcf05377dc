package app

import (
	"context"
	"log"
	"sync"
	"time"

	"ecoquest-service/internal/domain"
)

// PointsPerCorrectAnswer is the fixed score increment for a correct answer.
const PointsPerCorrectAnswer = 10

// SessionState is the quiz session lifecycle state.
type SessionState int

const (
	StateNotStarted SessionState = iota
	StateInProgress
	StateShowingResult
	StateCompleted
)

func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "notStarted"
	case StateInProgress:
		return "inProgress"
	case StateShowingResult:
		return "showingResult"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ProgressDispatcher receives profile updates triggered by quiz play.
// *ProfileService satisfies it.
type ProgressDispatcher interface {
	ApplyDelta(ctx context.Context, id string, delta domain.ProgressDelta) error
	FinalizeQuiz(ctx context.Context, id string, scoreIncrement int) error
}

// TimerFactory schedules fn after d and returns a cancel function. Injected
// so tests can fire timers deterministically.
type TimerFactory func(d time.Duration, fn func()) func()

func realTimer(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// SessionEventType tags events emitted by a quiz session.
type SessionEventType string

const (
	EventQuestion     SessionEventType = "question"
	EventAnswerResult SessionEventType = "answerResult"
	EventCompleted    SessionEventType = "completed"
)

// SessionEvent is pushed to the session's event feed on every transition the
// caller needs to render.
type SessionEvent struct {
	Type          SessionEventType
	QuestionIndex int
	Question      *domain.Question
	Result        *domain.AnswerRecord
	Score         int
	Results       []domain.AnswerRecord
}

// SessionConfig carries per-session timing.
type SessionConfig struct {
	QuestionLimit time.Duration // countdown per question; expiry counts as a wrong answer
	ResultDelay   time.Duration // how long ShowingResult is displayed before advancing
	Timer         TimerFactory
}

const (
	defaultQuestionLimit = 20 * time.Second
	defaultResultDelay   = 2 * time.Second
)

func (c SessionConfig) withDefaults() SessionConfig {
	if c.QuestionLimit <= 0 {
		c.QuestionLimit = defaultQuestionLimit
	}
	if c.ResultDelay <= 0 {
		c.ResultDelay = defaultResultDelay
	}
	if c.Timer == nil {
		c.Timer = realTimer
	}
	return c
}

// QuizSession sequences a fixed question list, scores answers, and dispatches
// profile updates on each correct answer and on completion. All transitions
// happen under one mutex; the timer owned by the current state is canceled on
// every transition away from it.
type QuizSession struct {
	userID    string
	questions []domain.Question
	dispatch  ProgressDispatcher
	cfg       SessionConfig

	mu          sync.Mutex
	ctx         context.Context
	state       SessionState
	index       int
	score       int
	results     []domain.AnswerRecord
	finalized   bool
	cancelTimer func()
	events      chan SessionEvent
}

func NewQuizSession(userID string, set domain.QuestionSet, dispatch ProgressDispatcher, cfg SessionConfig) *QuizSession {
	return &QuizSession{
		userID:    userID,
		questions: set.Questions,
		dispatch:  dispatch,
		cfg:       cfg.withDefaults(),
		state:     StateNotStarted,
		events:    make(chan SessionEvent, 16),
	}
}

// Events is the session's transition feed. It is closed when the session
// completes.
func (s *QuizSession) Events() <-chan SessionEvent {
	return s.events
}

// Start moves NotStarted -> InProgress(0) and resets the score.
func (s *QuizSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCompleted {
		return domain.ErrSessionFinished
	}
	if s.state != StateNotStarted {
		return domain.ErrSessionNotActive
	}
	if len(s.questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}
	s.ctx = ctx
	s.index = 0
	s.score = 0
	s.results = nil
	s.enterQuestionLocked()
	return nil
}

// SelectAnswer records the user's choice for the current question. The first
// selection wins; anything arriving while the result is showing (including
// clicks racing an expired timer) is rejected with ErrSessionNotActive and
// has no effect on score or dispatch.
func (s *QuizSession) SelectAnswer(optionID string) (domain.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return domain.AnswerRecord{}, domain.ErrSessionNotActive
	}
	return s.resolveLocked(optionID), nil
}

// Abort tears the session down without finalizing: the pending timer is
// canceled and the event feed closed. Used when the owning connection goes
// away mid-quiz.
func (s *QuizSession) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCompleted {
		return
	}
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	s.state = StateCompleted
	close(s.events)
}

// State returns the current lifecycle state.
func (s *QuizSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Score returns the accumulated session score.
func (s *QuizSession) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Results returns the per-question outcomes recorded so far.
func (s *QuizSession) Results() []domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AnswerRecord(nil), s.results...)
}

// CurrentQuestion returns the question being shown, or nil outside
// InProgress/ShowingResult.
func (s *QuizSession) CurrentQuestion() *domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.questions) {
		return nil
	}
	q := s.questions[s.index]
	return &q
}

func (s *QuizSession) enterQuestionLocked() {
	s.state = StateInProgress
	index := s.index
	question := s.questions[index]
	s.emitLocked(SessionEvent{
		Type:          EventQuestion,
		QuestionIndex: index,
		Question:      &question,
		Score:         s.score,
	})
	s.cancelTimer = s.cfg.Timer(s.cfg.QuestionLimit, func() { s.expire(index) })
}

// expire is the question-countdown callback: treated as a null answer,
// identical to an explicit wrong selection. The index guard makes an expiry
// that raced a transition a no-op.
func (s *QuizSession) expire(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress || s.index != index {
		return
	}
	s.resolveLocked("")
}

func (s *QuizSession) resolveLocked(optionID string) domain.AnswerRecord {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	question := s.questions[s.index]
	correctID := ""
	if opt := question.CorrectOption(); opt != nil {
		correctID = opt.ID
	}
	record := domain.AnswerRecord{
		QuestionID:    question.ID,
		Prompt:        question.Prompt,
		GivenOption:   optionID,
		CorrectOption: correctID,
		Correct:       optionID != "" && optionID == correctID,
		Explanation:   question.Explanation,
	}
	s.results = append(s.results, record)

	if record.Correct {
		s.score += PointsPerCorrectAnswer
		if err := s.dispatch.ApplyDelta(s.ctx, s.userID, domain.ProgressDelta{
			EcoPoints:  PointsPerCorrectAnswer,
			Experience: PointsPerCorrectAnswer,
		}); err != nil {
			log.Printf("progress delta dropped for %s: %v", s.userID, err)
		}
	}

	s.state = StateShowingResult
	s.emitLocked(SessionEvent{
		Type:          EventAnswerResult,
		QuestionIndex: s.index,
		Result:        &record,
		Score:         s.score,
	})

	index := s.index
	s.cancelTimer = s.cfg.Timer(s.cfg.ResultDelay, func() { s.advance(index) })
	return record
}

func (s *QuizSession) advance(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateShowingResult || s.index != index {
		return
	}
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	if s.index == len(s.questions)-1 {
		s.completeLocked()
		return
	}
	s.index++
	s.enterQuestionLocked()
}

func (s *QuizSession) completeLocked() {
	s.state = StateCompleted
	if !s.finalized {
		s.finalized = true
		if err := s.dispatch.FinalizeQuiz(s.ctx, s.userID, s.score); err != nil {
			log.Printf("finalize quiz dropped for %s: %v", s.userID, err)
		}
	}
	s.emitLocked(SessionEvent{
		Type:    EventCompleted,
		Score:   s.score,
		Results: append([]domain.AnswerRecord(nil), s.results...),
	})
	close(s.events)
}

func (s *QuizSession) emitLocked(event SessionEvent) {
	select {
	case s.events <- event:
	default:
		// Drop the oldest event rather than block a transition on a slow
		// consumer; the latest state is what the client renders.
		select {
		case <-s.events:
		default:
		}
		s.events <- event
	}
}
