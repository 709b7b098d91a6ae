package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/odvcencio/snaplist/pkg/observability"
	"github.com/odvcencio/snaplist/pkg/storage"
)

// DefaultSubjectPrefix roots every subject published by a Relay.
const DefaultSubjectPrefix = "snaplist"

// Relay republishes storage events on a MessageBus. It implements
// storage.Observer.
type Relay struct {
	bus     MessageBus
	prefix  string
	timeout time.Duration
	logger  *observability.Logger
}

// NewRelay creates a relay publishing under prefix.
func NewRelay(b MessageBus, prefix string, logger *observability.Logger) *Relay {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = observability.Discard()
	}
	return &Relay{bus: b, prefix: prefix, timeout: 5 * time.Second, logger: logger}
}

// Subject returns the subject an event is published on:
// <prefix>.submission.recorded or <prefix>.session.<event>.
func (r *Relay) Subject(e storage.Event) string {
	switch e.Type {
	case storage.EventSessionRecorded:
		if ev, ok := e.Data.(storage.SessionEvent); ok && ev.Event != "" {
			return r.prefix + ".session." + subjectToken(ev.Event)
		}
		return r.prefix + ".session.unknown"
	default:
		return r.prefix + "." + string(e.Type)
	}
}

// HandleStorageEvent implements storage.Observer.
func (r *Relay) HandleStorageEvent(e storage.Event) {
	if r == nil || r.bus == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		r.logger.Warn("encode bus event", slog.String("type", string(e.Type)), slog.String("error", err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	subject := r.Subject(e)
	if err := r.bus.Publish(ctx, subject, data); err != nil {
		r.logger.Warn("publish bus event",
			slog.String("subject", subject),
			slog.String("session_id", e.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

// subjectToken keeps a value from introducing extra subject levels or wildcards.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '_'
		}
		return r
	}, s)
}

var _ storage.Observer = (*Relay)(nil)
