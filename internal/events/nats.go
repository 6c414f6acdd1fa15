package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSPublisher mirrors round events onto a NATS subject tree so displays in
// other processes can follow along. The in-process bus stays authoritative.
type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewNATSPublisher connects to NATS and returns a publisher rooted at the
// given subject prefix, e.g. "round.events".
func NewNATSPublisher(url, subjectPrefix string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", url).Str("subject_prefix", subjectPrefix).Msg("NATS publisher connected")
	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix}, nil
}

// Publish sends the event to "<prefix>.<tournament_id>.<type>".
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, event.TournamentID, event.Type)
	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
