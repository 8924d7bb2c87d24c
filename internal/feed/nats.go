// Package feed wraps a NATS subscription that forwards external messages
// into the gossip engine's SendData, grounded on the lineage repo's
// kafka.Consumer: a thin client wrapper exposing Connect/Close and a callback
// invoked per message, now built on nats.go instead of franz-go since there
// is no ordered-partition or consumer-group semantics to preserve — gossip
// dissemination replaces the broker's fan-out role entirely.
package feed

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SendFunc is called, from the NATS client's own dispatch goroutine, with
// the payload of each message received on the subscribed subject. Engine
// is not reentrant (spec §5), so callers must not wire this directly to
// Engine.SendData; hand the payload off to whatever single goroutine drives
// the engine instead (cmd/kxgossipd does this with a buffered channel).
type SendFunc func(payload []byte) error

// Subscriber wraps a single NATS subscription.
type Subscriber struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	logger zerolog.Logger
}

// Config configures a Subscriber.
type Config struct {
	URL     string
	Subject string
	Logger  zerolog.Logger
	Send    SendFunc
}

// Connect dials the NATS server and subscribes to cfg.Subject, invoking
// cfg.Send for every message received.
func Connect(cfg Config) (*Subscriber, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if cfg.Send == nil {
		return nil, fmt.Errorf("send func is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	s := &Subscriber{conn: conn, logger: cfg.Logger}
	sub, err := conn.Subscribe(cfg.Subject, func(msg *nats.Msg) {
		if err := cfg.Send(msg.Data); err != nil {
			s.logger.Warn().Err(err).Str("subject", cfg.Subject).Msg("failed to forward message into gossip engine")
		}
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", cfg.Subject, err)
	}
	s.sub = sub
	return s, nil
}

// Close unsubscribes and closes the underlying NATS connection.
func (s *Subscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			return err
		}
	}
	s.conn.Close()
	return nil
}
