package round

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/rs/zerolog/log"
)

// Outcome describes how a round ended.
type Outcome struct {
	Question   models.Question
	Reason     models.FinishReason
	FinishedAt time.Time
}

// Hooks are the callbacks a round fires while running. OnComplete is invoked
// at most once, after the transition to Finished.
type Hooks struct {
	OnTick     func(remaining int, percent float64)
	OnComplete func(Outcome)
}

// Round is the per-question state machine: Idle → Running → Finished.
// Finished is terminal; a new Round is constructed for the next question.
type Round struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	status    models.RoundStatus
	reason    models.FinishReason
	question  models.Question
	countdown *Countdown
	hooks     Hooks
}

// NewRound creates an idle round.
func NewRound(clock clockwork.Clock, hooks Hooks) *Round {
	return &Round{
		clock:  clock,
		status: models.RoundStatusIdle,
		hooks:  hooks,
	}
}

// Start attaches a question and begins its countdown. Only valid from Idle;
// anything else is a caller ordering bug and is rejected, not reset.
func (r *Round) Start(question models.Question, totalSeconds int) error {
	r.mu.Lock()
	if r.status != models.RoundStatusIdle {
		status := r.status
		r.mu.Unlock()
		return invalidTransition("start", status)
	}

	r.question = question
	r.countdown = NewCountdown(r.clock)
	if r.hooks.OnTick != nil {
		cd := r.countdown
		r.countdown.OnTick(func(remaining int) {
			r.hooks.OnTick(remaining, cd.PercentRemaining())
		})
	}
	r.status = models.RoundStatusRunning
	countdown := r.countdown
	r.mu.Unlock()

	if err := countdown.Start(totalSeconds, r.expire); err != nil {
		r.mu.Lock()
		r.status = models.RoundStatusIdle
		r.mu.Unlock()
		return err
	}

	log.Debug().
		Str("question_id", question.ID.String()).
		Int("total_seconds", totalSeconds).
		Msg("round started")
	return nil
}

// ForceFinish ends a running round early. Only valid from Running.
func (r *Round) ForceFinish() error {
	r.mu.Lock()
	if r.status != models.RoundStatusRunning {
		status := r.status
		r.mu.Unlock()
		return invalidTransition("forceFinish", status)
	}
	r.countdown.Stop()
	outcome := r.finishLocked(models.FinishReasonManual)
	r.mu.Unlock()

	r.complete(outcome)
	return nil
}

// expire is the countdown's terminal callback.
func (r *Round) expire() {
	r.mu.Lock()
	if r.status != models.RoundStatusRunning {
		r.mu.Unlock()
		return
	}
	outcome := r.finishLocked(models.FinishReasonExpired)
	r.mu.Unlock()

	r.complete(outcome)
}

func (r *Round) finishLocked(reason models.FinishReason) Outcome {
	r.status = models.RoundStatusFinished
	r.reason = reason
	return Outcome{
		Question:   r.question,
		Reason:     reason,
		FinishedAt: r.clock.Now(),
	}
}

func (r *Round) complete(outcome Outcome) {
	log.Debug().
		Str("question_id", outcome.Question.ID.String()).
		Str("reason", string(outcome.Reason)).
		Msg("round finished")
	if r.hooks.OnComplete != nil {
		r.hooks.OnComplete(outcome)
	}
}

// Status returns the round's current state.
func (r *Round) Status() models.RoundStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Reason reports how the round finished. Only meaningful once Finished.
func (r *Round) Reason() models.FinishReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Question returns the attached question.
func (r *Round) Question() models.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.question
}

// Countdown exposes the owned timer for remaining-time reads. Nil until Start.
func (r *Round) Countdown() *Countdown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countdown
}

func invalidTransition(op string, from models.RoundStatus) error {
	return fmt.Errorf("%s from %s: %w", op, from, common.ErrInvalidStateTransition)
}
