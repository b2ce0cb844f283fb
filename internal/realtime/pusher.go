// internal/realtime/pusher.go
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic addresses the live channel of one recipient.
type Topic struct {
	Role   string
	UserID uuid.UUID
}

// Key is the routing key form, notifications.<role>.<user_id>.
func (t Topic) Key() string {
	return fmt.Sprintf("notifications.%s.%s", t.Role, t.UserID)
}

// Message is the payload pushed to live listeners.
type Message struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Pusher delivers a message to a topic without waiting for the recipient.
type Pusher interface {
	Push(ctx context.Context, topic Topic, msg Message) error
}

// MultiPusher pushes to every backend and joins their errors.
type MultiPusher []Pusher

func (m MultiPusher) Push(ctx context.Context, topic Topic, msg Message) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Push(ctx, topic, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPusher discards every message.
type NopPusher struct{}

func (NopPusher) Push(context.Context, Topic, Message) error { return nil }
