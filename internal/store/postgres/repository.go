// Package postgres provides a Postgres-backed implementation of store.Store
// over database/sql and lib/pq, for deployments that want entities to survive
// a restart. Semantics match the in-memory store: uniqueness and foreign-key
// checks are enforced by the database constraints instead of a process lock.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Repository implements store.Store on top of Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ store.Store = (*Repository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tournaments (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	owner_user_id UUID NOT NULL REFERENCES users(id),
	created_at    TIMESTAMPTZ NOT NULL,
	seq           BIGSERIAL
);

CREATE TABLE IF NOT EXISTS questions (
	id       UUID PRIMARY KEY,
	category TEXT NOT NULL,
	text     TEXT NOT NULL,
	answer   TEXT NOT NULL,
	choices  TEXT[] NOT NULL,
	points   INT NOT NULL,
	seq      BIGSERIAL
);

CREATE TABLE IF NOT EXISTS session_results (
	tournament_id    UUID PRIMARY KEY REFERENCES tournaments(id),
	questions_played INT NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Msg("applied database schema")
	return nil
}

// CreateUser inserts a new user; a username collision maps to ErrDuplicateKey.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}

	query := `INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, fmt.Errorf("username %q: %w", username, common.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetUserByUsername fetches a user by exact username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash FROM users WHERE username = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("username %q: %w", username, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetUserByID fetches a user by id.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, password_hash FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// CreateTournament inserts a tournament; an unknown owner maps to ErrNotFound.
func (r *Repository) CreateTournament(ctx context.Context, name string, ownerUserID uuid.UUID) (*models.Tournament, error) {
	t := &models.Tournament{
		ID:          uuid.New(),
		Name:        name,
		OwnerUserID: ownerUserID,
		CreatedAt:   time.Now().UTC(),
	}

	query := `INSERT INTO tournaments (id, name, owner_user_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.OwnerUserID, t.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, fmt.Errorf("owner %s: %w", ownerUserID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// GetTournament fetches one tournament by id.
func (r *Repository) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT id, name, owner_user_id, created_at FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.OwnerUserID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tournament %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// ListTournaments returns all tournaments in insertion order.
func (r *Repository) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	query := `SELECT id, name, owner_user_id, created_at FROM tournaments ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Tournament{}
	for rows.Next() {
		var t models.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerUserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// AddQuestion validates and inserts a question.
func (r *Repository) AddQuestion(ctx context.Context, req store.AddQuestionRequest) (*models.Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := &models.Question{
		ID:       uuid.New(),
		Category: req.Category,
		Text:     req.Text,
		Answer:   req.Answer,
		Choices:  append([]string(nil), req.Choices...),
		Points:   req.Points,
	}

	query := `INSERT INTO questions (id, category, text, answer, choices, points) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, q.ID, q.Category, q.Text, q.Answer, pq.Array(q.Choices), q.Points); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

// GetQuestion fetches one question by id.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	query := `SELECT id, category, text, answer, choices, points FROM questions WHERE id = $1`

	q := &models.Question{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Category, &q.Text, &q.Answer, pq.Array(&q.Choices), &q.Points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

// ListQuestions returns all questions in insertion order.
func (r *Repository) ListQuestions(ctx context.Context) ([]models.Question, error) {
	query := `SELECT id, category, text, answer, choices, points FROM questions ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Text, &q.Answer, pq.Array(&q.Choices), &q.Points); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// DeleteQuestion removes a question; deleting an unknown id is a no-op.
func (r *Repository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM questions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SaveSessionResult upserts the result for a tournament.
func (r *Repository) SaveSessionResult(ctx context.Context, result models.SessionResult) error {
	query := `INSERT INTO session_results (tournament_id, questions_played, started_at, completed_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (tournament_id) DO UPDATE
	          SET questions_played = EXCLUDED.questions_played,
	              started_at = EXCLUDED.started_at,
	              completed_at = EXCLUDED.completed_at`

	_, err := r.db.ExecContext(ctx, query,
		result.TournamentID, result.QuestionsPlayed, result.StartedAt, result.CompletedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return fmt.Errorf("tournament %s: %w", result.TournamentID, common.ErrNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetSessionResult fetches the stored result for a tournament.
func (r *Repository) GetSessionResult(ctx context.Context, tournamentID uuid.UUID) (*models.SessionResult, error) {
	query := `SELECT tournament_id, questions_played, started_at, completed_at FROM session_results WHERE tournament_id = $1`

	res := &models.SessionResult{}
	err := r.db.QueryRowContext(ctx, query, tournamentID).
		Scan(&res.TournamentID, &res.QuestionsPlayed, &res.StartedAt, &res.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session result for tournament %s: %w", tournamentID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

// Seed inserts the admin user if it is not there yet.
func (r *Repository) Seed(ctx context.Context, username, passwordHash string) error {
	query := `INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)
	          ON CONFLICT (username) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), username, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	log.Info().Str("username", username).Msg("ensured admin user")
	return nil
}
