package round

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/store"
)

// Manager tracks live sessions keyed by tournament ID and enforces one
// session per tournament.
type Manager struct {
	mu        sync.Mutex
	store     store.Store
	publisher events.Publisher
	clock     clockwork.Clock
	cfg       SessionConfig
	sessions  map[uuid.UUID]*Session
}

// NewManager creates a session manager backed by the given store and publisher.
func NewManager(st store.Store, pub events.Publisher, clock clockwork.Clock, cfg SessionConfig) *Manager {
	return &Manager{
		store:     st,
		publisher: pub,
		clock:     clock,
		cfg:       cfg,
		sessions:  map[uuid.UUID]*Session{},
	}
}

// StartSession creates and starts a session for the tournament. A completed
// session is replaced; an in-progress one is rejected.
func (m *Manager) StartSession(ctx context.Context, tournamentID uuid.UUID) (*Session, error) {
	if _, err := m.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[tournamentID]; ok {
		if existing.Status() != models.SessionStatusCompleted {
			m.mu.Unlock()
			return nil, fmt.Errorf("session already active for tournament %s: %w", tournamentID, common.ErrInvalidStateTransition)
		}
	}
	session := NewSession(tournamentID, m.store, m.publisher, m.clock, m.cfg)
	m.sessions[tournamentID] = session
	m.mu.Unlock()

	if err := session.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, tournamentID)
		m.mu.Unlock()
		return nil, err
	}
	return session, nil
}

// Get returns the session for a tournament, if one exists.
func (m *Manager) Get(tournamentID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[tournamentID]
	if !ok {
		return nil, fmt.Errorf("no session for tournament %s: %w", tournamentID, common.ErrNotFound)
	}
	return session, nil
}
