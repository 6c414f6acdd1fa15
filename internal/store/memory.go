package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/rs/zerolog/log"
)

// Memory is the in-process implementation of Store. A single RWMutex guards
// every table so each check-then-insert sequence is atomic.
type Memory struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*models.User
	usersByName map[string]uuid.UUID

	tournaments     map[uuid.UUID]*models.Tournament
	tournamentOrder []uuid.UUID

	questions     map[uuid.UUID]*models.Question
	questionOrder []uuid.UUID

	results map[uuid.UUID]*models.SessionResult

	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[uuid.UUID]*models.User),
		usersByName: make(map[string]uuid.UUID),
		tournaments: make(map[uuid.UUID]*models.Tournament),
		questions:   make(map[uuid.UUID]*models.Question),
		results:     make(map[uuid.UUID]*models.SessionResult),
		now:         time.Now,
	}
}

var _ Store = (*Memory)(nil)

// CreateUser inserts a new user. Usernames are unique, matched exactly.
func (m *Memory) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.usersByName[username]; taken {
		return nil, fmt.Errorf("username %q: %w", username, common.ErrDuplicateKey)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	m.users[user.ID] = user
	m.usersByName[username] = user.ID

	log.Info().Str("user_id", user.ID.String()).Str("username", username).Msg("created user")
	return copyUser(user), nil
}

// GetUserByUsername looks a user up by exact username.
func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("username %q: %w", username, common.ErrNotFound)
	}
	user, ok := m.users[id]
	if !ok {
		// Index and table disagree: unrecoverable internal state.
		return nil, fmt.Errorf("username index points at missing user %s: %w", id, common.ErrInternal)
	}
	return copyUser(user), nil
}

// GetUserByID looks a user up by id.
func (m *Memory) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	return copyUser(user), nil
}

// CreateTournament inserts a tournament owned by an existing user.
func (m *Memory) CreateTournament(ctx context.Context, name string, ownerUserID uuid.UUID) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[ownerUserID]; !ok {
		return nil, fmt.Errorf("owner %s: %w", ownerUserID, common.ErrNotFound)
	}

	t := &models.Tournament{
		ID:          uuid.New(),
		Name:        name,
		OwnerUserID: ownerUserID,
		CreatedAt:   m.now(),
	}
	m.tournaments[t.ID] = t
	m.tournamentOrder = append(m.tournamentOrder, t.ID)

	log.Info().
		Str("tournament_id", t.ID.String()).
		Str("owner_user_id", ownerUserID.String()).
		Str("name", name).
		Msg("created tournament")
	return copyTournament(t), nil
}

// GetTournament returns one tournament by id.
func (m *Memory) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
	}
	return copyTournament(t), nil
}

// ListTournaments returns all tournaments in insertion order.
func (m *Memory) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Tournament, 0, len(m.tournamentOrder))
	for _, id := range m.tournamentOrder {
		out = append(out, *copyTournament(m.tournaments[id]))
	}
	return out, nil
}

// AddQuestion validates and inserts a new question.
func (m *Memory) AddQuestion(ctx context.Context, req AddQuestionRequest) (*models.Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	q := &models.Question{
		ID:       uuid.New(),
		Category: req.Category,
		Text:     req.Text,
		Answer:   req.Answer,
		Choices:  append([]string(nil), req.Choices...),
		Points:   req.Points,
	}
	m.questions[q.ID] = q
	m.questionOrder = append(m.questionOrder, q.ID)

	log.Info().
		Str("question_id", q.ID.String()).
		Str("category", q.Category).
		Int("points", q.Points).
		Msg("added question")
	return copyQuestion(q), nil
}

// GetQuestion returns one question by id.
func (m *Memory) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
	}
	return copyQuestion(q), nil
}

// ListQuestions returns all questions in insertion order.
func (m *Memory) ListQuestions(ctx context.Context) ([]models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Question, 0, len(m.questionOrder))
	for _, id := range m.questionOrder {
		out = append(out, *copyQuestion(m.questions[id]))
	}
	return out, nil
}

// DeleteQuestion removes a question. Deleting an unknown id is a no-op.
func (m *Memory) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.questions[id]; !ok {
		return nil
	}
	delete(m.questions, id)
	for i, qid := range m.questionOrder {
		if qid == id {
			m.questionOrder = append(m.questionOrder[:i], m.questionOrder[i+1:]...)
			break
		}
	}

	log.Info().Str("question_id", id.String()).Msg("deleted question")
	return nil
}

// SaveSessionResult records the outcome of a tournament session, replacing any
// earlier result for the same tournament.
func (m *Memory) SaveSessionResult(ctx context.Context, result models.SessionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tournaments[result.TournamentID]; !ok {
		return fmt.Errorf("tournament %s: %w", result.TournamentID, common.ErrNotFound)
	}
	r := result
	m.results[result.TournamentID] = &r

	log.Info().
		Str("tournament_id", result.TournamentID.String()).
		Int("questions_played", result.QuestionsPlayed).
		Msg("saved session result")
	return nil
}

// GetSessionResult returns the stored result for a tournament.
func (m *Memory) GetSessionResult(ctx context.Context, tournamentID uuid.UUID) (*models.SessionResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[tournamentID]
	if !ok {
		return nil, fmt.Errorf("session result for tournament %s: %w", tournamentID, common.ErrNotFound)
	}
	out := *r
	return &out, nil
}

// Seed ensures the administrative user exists. Repeated calls are no-ops.
func (m *Memory) Seed(ctx context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usersByName[username]; ok {
		return nil
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	m.users[user.ID] = user
	m.usersByName[username] = user.ID

	log.Info().Str("username", username).Msg("seeded admin user")
	return nil
}

func copyUser(u *models.User) *models.User {
	out := *u
	return &out
}

func copyTournament(t *models.Tournament) *models.Tournament {
	out := *t
	return &out
}

func copyQuestion(q *models.Question) *models.Question {
	out := *q
	out.Choices = append([]string(nil), q.Choices...)
	return &out
}
