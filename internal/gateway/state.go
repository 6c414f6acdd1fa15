package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/models"
)

// TournamentState is the gateway's view of one tournament session, rebuilt
// from the event stream and served to late joiners.
type TournamentState struct {
	TournamentID   string               `json:"tournament_id"`
	Status         models.SessionStatus `json:"status"`
	CurrentRound   *RoundState          `json:"current_round,omitempty"`
	TotalQuestions int                  `json:"total_questions"`
	PlayedRounds   int                  `json:"played_rounds"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

// RoundState describes the question currently on the clock.
type RoundState struct {
	QuestionID       string    `json:"question_id"`
	Category         string    `json:"category"`
	Text             string    `json:"text"`
	Choices          []string  `json:"choices"`
	Points           int       `json:"points"`
	RoundIndex       int       `json:"round_index"`
	StartedAt        time.Time `json:"started_at"`
	DeadlineAt       time.Time `json:"deadline_at"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
	PercentRemaining float64   `json:"percent_remaining"`
}

// CalculateTimeRemaining derives remaining seconds from the deadline,
// clamped at zero.
func (r *RoundState) CalculateTimeRemaining(serverTime time.Time) int {
	if r.DeadlineAt.IsZero() {
		return 0
	}
	remaining := int(r.DeadlineAt.Sub(serverTime).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StateManager keeps the current TournamentState per tournament in memory.
type StateManager struct {
	mu     sync.RWMutex
	states map[uuid.UUID]*TournamentState
}

// NewStateManager creates an empty state manager.
func NewStateManager() *StateManager {
	return &StateManager{
		states: make(map[uuid.UUID]*TournamentState),
	}
}

// GetState returns a copy of the tournament's state, or nil if none exists.
func (sm *StateManager) GetState(tournamentID uuid.UUID) *TournamentState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state, ok := sm.states[tournamentID]
	if !ok {
		return nil
	}
	out := *state
	if state.CurrentRound != nil {
		round := *state.CurrentRound
		out.CurrentRound = &round
	}
	return &out
}

// RemoveState drops the tournament's state, e.g. after completion.
func (sm *StateManager) RemoveState(tournamentID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, tournamentID)
}

// ProcessEvent folds one event into the tournament's state.
func (sm *StateManager) ProcessEvent(event events.Event) error {
	tournamentID, err := uuid.Parse(event.TournamentID)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	state, ok := sm.states[tournamentID]
	if !ok {
		state = &TournamentState{
			TournamentID: event.TournamentID,
			Status:       models.SessionStatusWaiting,
		}
	}

	switch event.Type {
	case events.EventTypeRoundStarted:
		payload, err := events.ParsePayload(event)
		if err != nil {
			return err
		}
		p := payload.(events.RoundStartedPayload)
		state.Status = models.SessionStatusInProgress
		state.TotalQuestions = p.TotalQuestions
		if state.StartedAt == nil {
			started := p.StartedAt
			state.StartedAt = &started
		}
		state.CurrentRound = &RoundState{
			QuestionID:       p.QuestionID,
			Category:         p.Category,
			Text:             p.Text,
			Choices:          p.Choices,
			Points:           p.Points,
			RoundIndex:       p.RoundIndex,
			StartedAt:        p.StartedAt,
			DeadlineAt:       p.DeadlineAt,
			TimeRemainingSec: p.TotalSeconds,
			PercentRemaining: 100,
		}

	case events.EventTypeTimerTick:
		payload, err := events.ParsePayload(event)
		if err != nil {
			return err
		}
		p := payload.(events.TimerTickPayload)
		if state.CurrentRound != nil && state.CurrentRound.QuestionID == p.QuestionID {
			state.CurrentRound.TimeRemainingSec = p.RemainingSec
			state.CurrentRound.PercentRemaining = p.PercentRemaining
		}

	case events.EventTypeRoundFinished:
		state.PlayedRounds++
		state.CurrentRound = nil

	case events.EventTypeSessionCompleted:
		payload, err := events.ParsePayload(event)
		if err != nil {
			return err
		}
		p := payload.(events.SessionCompletedPayload)
		state.Status = models.SessionStatusCompleted
		completed := p.CompletedAt
		state.CompletedAt = &completed
		state.CurrentRound = nil
	}

	sm.states[tournamentID] = state
	return nil
}
