package eventbus

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// NATSPublisher publishes messages on core NATS subjects below a base
// subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSPublisher connects to url. timeout bounds the connection attempt
// and every flush.
func NewNATSPublisher(url, subject string, timeout time.Duration) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("docsite"),
		nats.Timeout(timeout),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}

	slog.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, timeout: timeout}, nil
}

// Subject returns the subject a message of kind is published on.
func (p *NATSPublisher) Subject(kind Kind) string {
	return p.subject + "." + string(kind)
}

// Publish sends msg and waits until the server has received it. The wait is
// bounded by ctx and the configured timeout.
func (p *NATSPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to marshal event").Build()
	}
	subject := p.Subject(msg.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to publish event").
			WithContext("subject", subject).
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to flush event").
			WithContext("subject", subject).
			Retryable().
			Build()
	}

	slog.Debug("Published build event", logfields.BuildID(msg.BuildID), slog.String("subject", subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return errors.WrapError(err, errors.CategoryEvents, "failed to drain NATS connection").Build()
	}
	return nil
}
