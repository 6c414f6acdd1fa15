package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Consumer folds round events into the state manager and fans them out to
// the WebSocket pools.
type Consumer struct {
	connectionManager *ConnectionManager
	stateManager      *StateManager
}

// NewConsumer creates a consumer feeding the given manager pair.
func NewConsumer(cm *ConnectionManager, sm *StateManager) *Consumer {
	return &Consumer{
		connectionManager: cm,
		stateManager:      sm,
	}
}

// Handle processes one event. Registered as an events.Bus subscriber.
func (c *Consumer) Handle(event events.Event) {
	if err := c.stateManager.ProcessEvent(event); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Msg("failed to apply event to tournament state")
	}

	tournamentID, err := uuid.Parse(event.TournamentID)
	if err != nil {
		log.Error().
			Err(err).
			Str("tournament_id", event.TournamentID).
			Msg("event carries an invalid tournament id")
		return
	}
	c.connectionManager.Broadcast(tournamentID, event)
}

// NATSConsumerConfig holds settings for consuming events off NATS.
type NATSConsumerConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConsumerConfig returns the default consumer settings.
func DefaultNATSConsumerConfig() NATSConsumerConfig {
	return NATSConsumerConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "quizrally.rounds",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSConsumer subscribes to round events on NATS and forwards them into a
// Consumer. Used when the gateway runs separately from the round engine.
type NATSConsumer struct {
	consumer *Consumer
	nc       *nats.Conn
	sub      *nats.Subscription
	config   NATSConsumerConfig
}

// NewNATSConsumer connects and subscribes to "<prefix>.>".
func NewNATSConsumer(consumer *Consumer, config NATSConsumerConfig) (*NATSConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	nsc := &NATSConsumer{
		consumer: consumer,
		nc:       nc,
		config:   config,
	}

	subject := config.SubjectPrefix + ".>"
	sub, err := nc.Subscribe(subject, nsc.handleMessage)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	nsc.sub = sub

	log.Info().Str("subject", subject).Msg("NATS consumer subscribed")
	return nsc, nil
}

func (nsc *NATSConsumer) handleMessage(msg *nats.Msg) {
	var event events.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().
			Err(err).
			Str("subject", msg.Subject).
			Msg("failed to decode round event")
		return
	}
	nsc.consumer.Handle(event)
}

// Close drains the subscription and closes the connection.
func (nsc *NATSConsumer) Close() {
	if nsc.sub != nil {
		if err := nsc.sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Msg("failed to unsubscribe NATS consumer")
		}
	}
	nsc.nc.Close()
}
