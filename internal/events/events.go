// Package events defines the typed round events the engine emits and the
// publishers that carry them to the gateway and to external subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of round event.
type EventType string

const (
	EventTypeRoundStarted     EventType = "RoundStarted"
	EventTypeTimerTick        EventType = "TimerTick"
	EventTypeRoundFinished    EventType = "RoundFinished"
	EventTypeSessionCompleted EventType = "SessionCompleted"
)

// Event is the envelope shared by every round event.
type Event struct {
	ID           string          `json:"id"`
	TournamentID string          `json:"tournament_id"`
	Type         EventType       `json:"type"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
}

// New wraps a payload into an envelope for the given tournament.
func New(tournamentID uuid.UUID, typ EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:           uuid.New().String(),
		TournamentID: tournamentID.String(),
		Type:         typ,
		Timestamp:    time.Now(),
		Data:         data,
	}, nil
}

// ParsePayload decodes an event's data into its typed payload.
func ParsePayload(event Event) (any, error) {
	switch event.Type {
	case EventTypeRoundStarted:
		var payload RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeTimerTick:
		var payload TimerTickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundFinished:
		var payload RoundFinishedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionCompleted:
		var payload SessionCompletedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
