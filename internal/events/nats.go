package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vinayprograms/codeaudit/internal/logging"
	"github.com/vinayprograms/codeaudit/internal/session"
)

// DefaultSubject is the subject prefix when none is configured.
const DefaultSubject = "codeaudit"

// Publisher sends events to NATS as JSON.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *logging.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithSubject sets the subject prefix.
func WithSubject(subject string) PublisherOption {
	return func(p *Publisher) {
		if subject != "" {
			p.subject = subject
		}
	}
}

// WithPublisherLogger sets the logger for publish failures.
func WithPublisherLogger(l *logging.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l.WithComponent("nats") }
}

// Connect dials url and returns a publisher.
func Connect(url string, opts ...PublisherOption) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("codeaudit"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return newPublisher(conn, opts...), nil
}

func newPublisher(conn *nats.Conn, opts ...PublisherOption) *Publisher {
	p := &Publisher{conn: conn, subject: DefaultSubject, logger: logging.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject returns the subject an event is published on:
// <prefix>.<audit>.<event type>.
func Subject(prefix string, event session.Event) string {
	audit := sanitizeToken(event.Audit)
	if audit == "" {
		audit = "unknown"
	}
	return prefix + "." + audit + "." + sanitizeToken(event.Type)
}

// NATS subject tokens cannot contain whitespace, dots or wildcards.
func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// Emit publishes the event. Failures are logged and dropped.
func (p *Publisher) Emit(event session.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("event_marshal_failed", map[string]interface{}{"error": err.Error()})
		return
	}
	subject := Subject(p.subject, event)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("event_publish_failed", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	}
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
