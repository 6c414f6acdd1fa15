package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls round pacing for a tournament session.
type SessionConfig struct {
	RoundSeconds int
	AutoAdvance  bool
}

// Session sequences rounds over a tournament's question set. It owns the
// current Round exclusively and guarantees at most one round is Running at
// any time. When the last round finishes, the result is persisted back into
// the store.
type Session struct {
	mu           sync.Mutex
	tournamentID uuid.UUID
	store        store.Store
	publisher    events.Publisher
	clock        clockwork.Clock
	cfg          SessionConfig

	status       models.SessionStatus
	questions    []models.Question
	nextIndex    int
	current      *Round
	currentIndex int
	startedAt    time.Time
}

// NewSession creates a waiting session for one tournament.
func NewSession(tournamentID uuid.UUID, st store.Store, pub events.Publisher, clock clockwork.Clock, cfg SessionConfig) *Session {
	return &Session{
		tournamentID: tournamentID,
		store:        st,
		publisher:    pub,
		clock:        clock,
		cfg:          cfg,
		status:       models.SessionStatusWaiting,
		currentIndex: -1,
	}
}

// Start snapshots the question set and starts the first round.
func (s *Session) Start(ctx context.Context) error {
	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return common.NewValidationError("questions", "none available")
	}

	s.mu.Lock()
	if s.status != models.SessionStatusWaiting {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("start session from %s: %w", status, common.ErrInvalidStateTransition)
	}
	s.questions = questions
	s.status = models.SessionStatusInProgress
	s.startedAt = s.clock.Now()
	s.mu.Unlock()

	log.Info().
		Str("tournament_id", s.tournamentID.String()).
		Int("questions", len(questions)).
		Msg("session started")
	return s.StartNextRound(ctx)
}

// StartNextRound constructs and starts a round for the next question, or
// completes the session if the question set is exhausted. Rejected while a
// round is still Running.
func (s *Session) StartNextRound(ctx context.Context) error {
	s.mu.Lock()
	if s.status != models.SessionStatusInProgress {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("next round from session state %s: %w", status, common.ErrInvalidStateTransition)
	}
	// Anything short of Finished blocks the next round; a freshly created
	// round is claimed before it flips to Running, so checking for Running
	// alone would leave a window for a second concurrent start.
	if s.current != nil && s.current.Status() != models.RoundStatusFinished {
		s.mu.Unlock()
		return fmt.Errorf("a round is already in flight: %w", common.ErrInvalidStateTransition)
	}
	if s.nextIndex >= len(s.questions) {
		s.mu.Unlock()
		s.complete(ctx)
		return nil
	}

	idx := s.nextIndex
	question := s.questions[idx]
	total := len(s.questions)
	s.nextIndex++
	prevRound := s.current
	prevIndex := s.currentIndex

	r := NewRound(s.clock, Hooks{
		OnTick: func(remaining int, percent float64) {
			s.publishTick(question, remaining, percent)
		},
		OnComplete: func(outcome Outcome) {
			s.handleRoundComplete(outcome, idx)
		},
	})
	s.current = r
	s.currentIndex = idx
	seconds := s.cfg.RoundSeconds
	s.mu.Unlock()

	if err := r.Start(question, seconds); err != nil {
		s.mu.Lock()
		s.current = prevRound
		s.currentIndex = prevIndex
		s.nextIndex = idx
		s.mu.Unlock()
		return err
	}

	startedAt := s.clock.Now()
	s.publish(events.EventTypeRoundStarted, events.RoundStartedPayload{
		QuestionID:     question.ID.String(),
		Category:       question.Category,
		Text:           question.Text,
		Choices:        question.Choices,
		Points:         question.Points,
		RoundIndex:     idx,
		TotalQuestions: total,
		TotalSeconds:   seconds,
		StartedAt:      startedAt,
		DeadlineAt:     startedAt.Add(time.Duration(seconds) * time.Second),
	})
	return nil
}

// ForceFinishRound ends the running round with the manual flag.
func (s *Session) ForceFinishRound() error {
	s.mu.Lock()
	current := s.current
	status := s.status
	s.mu.Unlock()

	if status != models.SessionStatusInProgress || current == nil {
		return fmt.Errorf("no running round: %w", common.ErrInvalidStateTransition)
	}
	return current.ForceFinish()
}

// handleRoundComplete runs on every round completion, natural or manual.
func (s *Session) handleRoundComplete(outcome Outcome, idx int) {
	s.publish(events.EventTypeRoundFinished, events.RoundFinishedPayload{
		QuestionID: outcome.Question.ID.String(),
		RoundIndex: idx,
		Reason:     outcome.Reason,
		Answer:     outcome.Question.Answer,
		FinishedAt: outcome.FinishedAt,
	})

	s.mu.Lock()
	if s.status != models.SessionStatusInProgress {
		s.mu.Unlock()
		return
	}
	exhausted := s.nextIndex >= len(s.questions)
	auto := s.cfg.AutoAdvance
	s.mu.Unlock()

	ctx := context.Background()
	if exhausted {
		s.complete(ctx)
		return
	}
	if auto {
		if err := s.StartNextRound(ctx); err != nil {
			log.Error().Err(err).
				Str("tournament_id", s.tournamentID.String()).
				Msg("failed to auto-advance to next round")
		}
	}
}

// complete finalizes the session and persists the result.
func (s *Session) complete(ctx context.Context) {
	s.mu.Lock()
	if s.status != models.SessionStatusInProgress {
		s.mu.Unlock()
		return
	}
	s.status = models.SessionStatusCompleted
	result := models.SessionResult{
		TournamentID:    s.tournamentID,
		QuestionsPlayed: s.nextIndex,
		StartedAt:       s.startedAt,
		CompletedAt:     s.clock.Now(),
	}
	s.mu.Unlock()

	if err := s.store.SaveSessionResult(ctx, result); err != nil {
		log.Error().Err(err).
			Str("tournament_id", s.tournamentID.String()).
			Msg("failed to persist session result")
	}
	s.publish(events.EventTypeSessionCompleted, events.SessionCompletedPayload{
		QuestionsPlayed: result.QuestionsPlayed,
		StartedAt:       result.StartedAt,
		CompletedAt:     result.CompletedAt,
	})

	log.Info().
		Str("tournament_id", s.tournamentID.String()).
		Int("questions_played", result.QuestionsPlayed).
		Msg("session completed")
}

// Status returns the session's lifecycle state.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// QuestionView is a client-safe projection of a question: no answer.
type QuestionView struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Choices  []string `json:"choices"`
	Points   int      `json:"points"`
}

// SessionState is a point-in-time snapshot for state synchronization.
type SessionState struct {
	TournamentID     string               `json:"tournament_id"`
	Status           models.SessionStatus `json:"status"`
	RoundStatus      models.RoundStatus   `json:"round_status"`
	RoundIndex       int                  `json:"round_index"`
	TotalQuestions   int                  `json:"total_questions"`
	CurrentQuestion  *QuestionView        `json:"current_question,omitempty"`
	RemainingSec     int                  `json:"remaining_sec"`
	PercentRemaining float64              `json:"percent_remaining"`
}

// State snapshots the session for a reconnecting or polling client.
func (s *Session) State() SessionState {
	s.mu.Lock()
	current := s.current
	state := SessionState{
		TournamentID:   s.tournamentID.String(),
		Status:         s.status,
		RoundStatus:    models.RoundStatusIdle,
		RoundIndex:     s.currentIndex,
		TotalQuestions: len(s.questions),
	}
	s.mu.Unlock()

	if current == nil {
		return state
	}

	state.RoundStatus = current.Status()
	question := current.Question()
	if state.RoundStatus == models.RoundStatusRunning {
		state.CurrentQuestion = &QuestionView{
			ID:       question.ID.String(),
			Category: question.Category,
			Text:     question.Text,
			Choices:  question.Choices,
			Points:   question.Points,
		}
		if cd := current.Countdown(); cd != nil {
			state.RemainingSec = cd.Remaining()
			state.PercentRemaining = cd.PercentRemaining()
		}
	}
	return state
}

func (s *Session) publishTick(question models.Question, remaining int, percent float64) {
	s.publish(events.EventTypeTimerTick, events.TimerTickPayload{
		QuestionID:       question.ID.String(),
		RemainingSec:     remaining,
		PercentRemaining: percent,
		TickedAt:         s.clock.Now(),
	})
}

func (s *Session) publish(typ events.EventType, payload any) {
	event, err := events.New(s.tournamentID, typ, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to build event")
		return
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to publish event")
	}
}
