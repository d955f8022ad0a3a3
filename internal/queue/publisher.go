package queue

import (
	"context"

	"github.com/google/uuid"
)

// Publisher emits session-lifecycle events for downstream consumers
// (welcome mail, analytics). Login must never fail because the broker is
// down, so callers treat publish errors as log-and-continue.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
)

type UserRegistered struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Provider string    `json:"provider"`
}

type UserLoggedIn struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Provider string    `json:"provider"`
}

// NoopPublisher is used when AMQP_URL is not configured.
type NoopPublisher struct{}

func NewNoop() Publisher { return NoopPublisher{} }

func (NoopPublisher) Publish(ctx context.Context, key string, event any) error { return nil }
func (NoopPublisher) Close() error                                             { return nil }
