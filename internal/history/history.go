package history

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// EventType defines the kind of lifecycle transition.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event is a supervisor state transition exported to external systems.
// Only transitions are recorded; failed operations are not.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Command    string    `json:"command"`
}

// NewEvent stamps a new event with a random ID and the current UTC time.
func NewEvent(t EventType, name string, pid int, command string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Name:       name,
		PID:        pid,
		Command:    command,
	}
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Reader is implemented by sinks that can list what they stored, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// CloseAll closes every sink that implements io.Closer.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
