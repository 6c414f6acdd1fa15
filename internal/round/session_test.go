package round

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records every event for later inspection.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(typ events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type sessionFixture struct {
	store      *store.Memory
	publisher  *capturePublisher
	clock      *clockwork.FakeClock
	tournament *models.Tournament
	questions  []*models.Question
}

func newSessionFixture(t *testing.T, questionCount int) *sessionFixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	owner, err := mem.CreateUser(ctx, "admin", "hash")
	require.NoError(t, err)
	tournament, err := mem.CreateTournament(ctx, "pub quiz night", owner.ID)
	require.NoError(t, err)

	var questions []*models.Question
	for i := 0; i < questionCount; i++ {
		q, err := mem.AddQuestion(ctx, store.AddQuestionRequest{
			Category: "history",
			Text:     "In which year did the event happen?",
			Answer:   "1969",
			Choices:  []string{"1969", "1972"},
			Points:   50,
		})
		require.NoError(t, err)
		questions = append(questions, q)
	}

	return &sessionFixture{
		store:      mem,
		publisher:  &capturePublisher{},
		clock:      clockwork.NewFakeClock(),
		tournament: tournament,
		questions:  questions,
	}
}

func (f *sessionFixture) manager(cfg SessionConfig) *Manager {
	return NewManager(f.store, f.publisher, f.clock, cfg)
}

func TestSessionSingleRunningRound(t *testing.T) {
	f := newSessionFixture(t, 2)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)
	require.Equal(t, models.SessionStatusInProgress, session.Status())

	err = session.StartNextRound(ctx)
	require.ErrorIs(t, err, common.ErrInvalidStateTransition)

	_, err = mgr.StartSession(ctx, f.tournament.ID)
	require.ErrorIs(t, err, common.ErrInvalidStateTransition)
}

func TestSessionSequencesQuestions(t *testing.T) {
	f := newSessionFixture(t, 2)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)

	state := session.State()
	require.Equal(t, 0, state.RoundIndex)
	require.Equal(t, models.RoundStatusRunning, state.RoundStatus)
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, f.questions[0].ID.String(), state.CurrentQuestion.ID)

	require.NoError(t, session.ForceFinishRound())
	require.NoError(t, session.StartNextRound(ctx))

	state = session.State()
	require.Equal(t, 1, state.RoundIndex)
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, f.questions[1].ID.String(), state.CurrentQuestion.ID)

	// Finishing the last round completes the session; there is nothing
	// left to advance to.
	require.NoError(t, session.ForceFinishRound())
	assert.Equal(t, models.SessionStatusCompleted, session.Status())
	require.ErrorIs(t, session.StartNextRound(ctx), common.ErrInvalidStateTransition)

	started := f.publisher.byType(events.EventTypeRoundStarted)
	require.Len(t, started, 2)
	finished := f.publisher.byType(events.EventTypeRoundFinished)
	require.Len(t, finished, 2)
	completed := f.publisher.byType(events.EventTypeSessionCompleted)
	require.Len(t, completed, 1)

	result, err := f.store.GetSessionResult(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.QuestionsPlayed)
}

func TestSessionConcurrentNextRoundSingleWinner(t *testing.T) {
	f := newSessionFixture(t, 3)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)
	require.NoError(t, session.ForceFinishRound())

	const callers = 16
	errs := make(chan error, callers)
	var start sync.WaitGroup
	start.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			start.Done()
			start.Wait()
			errs <- session.StartNextRound(ctx)
		}()
	}

	var won, rejected int
	for i := 0; i < callers; i++ {
		err := <-errs
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, common.ErrInvalidStateTransition)
		rejected++
	}
	assert.Equal(t, 1, won, "exactly one caller may start the next round")
	assert.Equal(t, callers-1, rejected)

	state := session.State()
	assert.Equal(t, 1, state.RoundIndex)
	assert.Equal(t, models.RoundStatusRunning, state.RoundStatus)
	assert.Len(t, f.publisher.byType(events.EventTypeRoundStarted), 2)
}

func TestSessionRoundFinishedRevealsAnswer(t *testing.T) {
	f := newSessionFixture(t, 1)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)

	started := f.publisher.byType(events.EventTypeRoundStarted)
	require.Len(t, started, 1)
	startedPayload, err := events.ParsePayload(started[0])
	require.NoError(t, err)
	assert.NotContains(t, string(started[0].Data), `"answer"`)

	require.NoError(t, session.ForceFinishRound())

	finished := f.publisher.byType(events.EventTypeRoundFinished)
	require.Len(t, finished, 1)
	finishedPayload, err := events.ParsePayload(finished[0])
	require.NoError(t, err)
	payload, ok := finishedPayload.(events.RoundFinishedPayload)
	require.True(t, ok)
	assert.Equal(t, models.FinishReasonManual, payload.Reason)
	assert.Equal(t, f.questions[0].Answer, payload.Answer)

	_, ok = startedPayload.(events.RoundStartedPayload)
	assert.True(t, ok)
}

func TestSessionAutoAdvance(t *testing.T) {
	f := newSessionFixture(t, 2)
	mgr := f.manager(SessionConfig{RoundSeconds: 30, AutoAdvance: true})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)

	// Manual finish triggers the advance synchronously.
	require.NoError(t, session.ForceFinishRound())
	state := session.State()
	assert.Equal(t, 1, state.RoundIndex)
	assert.Equal(t, models.RoundStatusRunning, state.RoundStatus)

	require.NoError(t, session.ForceFinishRound())
	assert.Equal(t, models.SessionStatusCompleted, session.Status())
}

func TestSessionRoundExpiresNaturally(t *testing.T) {
	f := newSessionFixture(t, 1)
	mgr := f.manager(SessionConfig{RoundSeconds: 2})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)

	f.clock.BlockUntil(1)
	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return len(f.publisher.byType(events.EventTypeTimerTick)) >= 1
	}, time.Second, 10*time.Millisecond)

	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return session.Status() == models.SessionStatusCompleted
	}, time.Second, 10*time.Millisecond)

	finished := f.publisher.byType(events.EventTypeRoundFinished)
	require.Len(t, finished, 1)
	payload, err := events.ParsePayload(finished[0])
	require.NoError(t, err)
	assert.Equal(t, models.FinishReasonExpired, payload.(events.RoundFinishedPayload).Reason)

	result, err := f.store.GetSessionResult(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.QuestionsPlayed)
}

func TestSessionStartWithoutQuestions(t *testing.T) {
	f := newSessionFixture(t, 0)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})

	_, err := mgr.StartSession(context.Background(), f.tournament.ID)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = mgr.Get(f.tournament.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestManagerUnknownTournament(t *testing.T) {
	f := newSessionFixture(t, 1)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})

	_, err := mgr.StartSession(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = mgr.Get(uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSessionRestartAfterCompletion(t *testing.T) {
	f := newSessionFixture(t, 1)
	mgr := f.manager(SessionConfig{RoundSeconds: 30})
	ctx := context.Background()

	session, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)
	require.NoError(t, session.ForceFinishRound())
	require.Equal(t, models.SessionStatusCompleted, session.Status())

	replacement, err := mgr.StartSession(ctx, f.tournament.ID)
	require.NoError(t, err)
	assert.NotSame(t, session, replacement)
	assert.Equal(t, models.SessionStatusInProgress, replacement.Status())
}

func TestSessionStateOmitsAnswer(t *testing.T) {
	f := newSessionFixture(t, 1)
	mgr := f.manager(SessionConfig{RoundSeconds: 10})

	session, err := mgr.StartSession(context.Background(), f.tournament.ID)
	require.NoError(t, err)

	state := session.State()
	require.NotNil(t, state.CurrentQuestion)
	assert.Equal(t, f.questions[0].Choices, state.CurrentQuestion.Choices)
	assert.Equal(t, 10, state.RemainingSec)
	assert.InDelta(t, 100.0, state.PercentRemaining, 0.001)
}
