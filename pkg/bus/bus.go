// Package bus fans snaplist lifecycle events out to other processes.
// Submissions and session transitions recorded in storage are republished
// as JSON on subjects under a configurable prefix. NATS carries them in
// production; the in-memory bus serves tests and single-process setups.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/snaplist/pkg/observability"
)

var (
	// ErrClosed is returned when operating on a closed bus or subscription.
	ErrClosed = errors.New("bus or subscription closed")

	// ErrInvalidSubject is returned when publishing to an empty or wildcard subject.
	ErrInvalidSubject = errors.New("invalid subject")
)

// MessageBus is the publish/subscribe transport for lifecycle events.
// Implementations must be safe for concurrent use.
type MessageBus interface {
	// Publish sends a message to all subscribers of the given subject.
	// Returns immediately; does not wait for message delivery.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// Supports wildcards: "snaplist.session.*" matches "snaplist.session.closed".
	// The subscription ends when ctx is cancelled or Unsubscribe is called.
	Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(msg *Message)

// Message is an event delivered to a subscriber.
type Message struct {
	Subject string
	Data    []byte
}

// Subscription represents an active subscription that can be cancelled.
type Subscription interface {
	Unsubscribe() error
	Subject() string
}

// Config holds configuration for creating a MessageBus.
type Config struct {
	// Driver selects the implementation: "memory" or "nats".
	Driver string

	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	// Ignored for in-memory bus.
	URL string

	// Name is a client identifier for debugging/monitoring.
	Name string

	// Timeout bounds the initial NATS connect.
	Timeout time.Duration

	// Logger receives connection state changes. Optional.
	Logger *observability.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:  "memory",
		URL:     "nats://localhost:4222",
		Name:    "snaplist",
		Timeout: 10 * time.Second,
	}
}

// Open builds the bus named by cfg.Driver.
func Open(cfg Config) (MessageBus, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryBus(), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("bus: unknown driver %q", cfg.Driver)
	}
}

// checkPublishSubject rejects subjects a publisher must not use: empty
// tokens, whitespace and wildcards.
func checkPublishSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSubject)
	}
	for _, token := range strings.Split(subject, ".") {
		if token == "" || token == "*" || token == ">" || strings.ContainsAny(token, " \t\r\n") {
			return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
		}
	}
	return nil
}
