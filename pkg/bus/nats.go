package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/odvcencio/snaplist/pkg/observability"
)

// NATSBus publishes lifecycle events on core NATS subjects. Delivery is
// at-most-once; consumers that need history read the audit store.
type NATSBus struct {
	conn   *nats.Conn
	logger *observability.Logger
	closed atomic.Bool
}

// NewNATSBus connects to cfg.URL. The connection reconnects forever once
// established; the initial connect fails fast.
func NewNATSBus(cfg Config) (*NATSBus, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.Discard()
	}

	conn, err := nats.Connect(cfg.URL, natsOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}
	logger.Info("connected to nats", slog.String("url", conn.ConnectedUrlRedacted()))
	return &NATSBus{conn: conn, logger: logger}, nil
}

func natsOptions(cfg Config, logger *observability.Logger) []nats.Option {
	name := cfg.Name
	if name == "" {
		name = "snaplist"
	}
	return []nats.Option{
		nats.Name(name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Warn("nats async error", slog.String("subject", subject), slog.String("error", err.Error()))
		}),
	}
}

func (b *NATSBus) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPublishSubject(subject); err != nil {
		return err
	}
	return b.conn.Publish(subject, data)
}

// Subscribe delivers matching messages to handler on the client's dispatch
// goroutine. Cancelling ctx unsubscribes.
func (b *NATSBus) Subscribe(ctx context.Context, subject string, handler MessageHandler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(fromNATS(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	s := &natsSubscription{sub: sub}
	context.AfterFunc(ctx, func() { _ = s.Unsubscribe() })
	return s, nil
}

func (b *NATSBus) Close() error {
	if b.closed.Swap(true) {
		return ErrClosed
	}
	// Drain flushes pending publishes before closing.
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}

func fromNATS(msg *nats.Msg) *Message {
	return &Message{Subject: msg.Subject, Data: msg.Data}
}

type natsSubscription struct {
	sub  *nats.Subscription
	done atomic.Bool
}

func (s *natsSubscription) Unsubscribe() error {
	if s.done.Swap(true) {
		return nil
	}
	return s.sub.Unsubscribe()
}

func (s *natsSubscription) Subject() string {
	return s.sub.Subject
}
