// README: Domain event envelope and publisher port for trip lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

const (
	TripBooked    = "trip.booked"
	TripCompleted = "trip.completed"
	TripCancelled = "trip.cancelled"
)

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the standard logger. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	log.Printf("event %s at %s: %s", e.Type, e.OccurredAt.Format(time.RFC3339), body)
	return nil
}

// Emit publishes e and logs failures; events never fail the calling operation.
func Emit(ctx context.Context, p Publisher, typ string, payload any, at time.Time) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, Event{Type: typ, OccurredAt: at.UTC(), Payload: payload}); err != nil {
		log.Printf("publish %s: %v", typ, err)
	}
}
