package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/auth"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/gateway"
	"github.com/mcdev12/quizrally/internal/httpapi"
	"github.com/mcdev12/quizrally/internal/round"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/mcdev12/quizrally/internal/store/postgres"
	"github.com/rs/zerolog/log"
)

// Services holds every wired component of the server.
type Services struct {
	Store             store.Store
	Auth              *auth.Service
	Sessions          *round.Manager
	Bus               *events.Bus
	NATS              *events.NATSPublisher
	ConnectionManager *gateway.ConnectionManager
	StateManager      *gateway.StateManager
	API               *httpapi.API
	WebSocket         *gateway.WebSocketHandler
}

// setupServices wires the dependency chain: store, auth, event publishers,
// round engine, gateway, HTTP API.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	st, err := setupStore(ctx)
	if err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(config.Admin.Password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	if err := st.Seed(ctx, config.Admin.Username, passwordHash); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}

	secret := getEnv("JWT_SECRET", "quizrally-dev-secret")
	tokenTTL := time.Duration(config.Auth.TokenTTLMinutes) * time.Minute
	authService := auth.NewService(st, secret, tokenTTL)

	bus := events.NewBus()
	publisher := events.Multi{bus}

	var natsPublisher *events.NATSPublisher
	if natsURL := getEnv("NATS_URL", ""); natsURL != "" {
		natsPublisher, err = events.NewNATSPublisher(natsURL, getEnv("NATS_SUBJECT_PREFIX", "quizrally.rounds"))
		if err != nil {
			return nil, fmt.Errorf("connect NATS publisher: %w", err)
		}
		publisher = append(publisher, natsPublisher)
	}

	sessions := round.NewManager(st, publisher, clockwork.NewRealClock(), round.SessionConfig{
		RoundSeconds: config.Session.RoundSeconds,
		AutoAdvance:  config.Session.AutoAdvance,
	})

	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	stateManager := gateway.NewStateManager()
	bus.Subscribe(gateway.NewConsumer(connectionManager, stateManager).Handle)

	return &Services{
		Store:             st,
		Auth:              authService,
		Sessions:          sessions,
		Bus:               bus,
		NATS:              natsPublisher,
		ConnectionManager: connectionManager,
		StateManager:      stateManager,
		API:               httpapi.NewAPI(st, authService, sessions),
		WebSocket:         gateway.NewWebSocketHandler(connectionManager, stateManager),
	}, nil
}

// setupStore selects the backend: postgres when STORE_BACKEND=postgres,
// in-memory otherwise.
func setupStore(ctx context.Context) (store.Store, error) {
	if getEnv("STORE_BACKEND", "memory") != "postgres" {
		log.Info().Msg("using in-memory store")
		return store.NewMemory(), nil
	}

	database, err := setupDatabase()
	if err != nil {
		return nil, err
	}
	repo := postgres.NewRepository(database)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("using postgres store")
	return repo, nil
}

// Close releases external connections.
func (s *Services) Close() {
	if s.NATS != nil {
		s.NATS.Close()
	}
}
