// Package events publishes documentation lifecycle events to NATS.
//
// Publishing is best-effort: a Publisher constructed without a NATS
// connection silently drops events so that rendering keeps working
// when no broker is deployed.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectGenerated is the subject suffix for document generation events.
// The full subject is "<prefix>.doc.generated".
const SubjectGenerated = "doc.generated"

// DocumentGenerated is emitted after an artifact has been rendered and
// delivered to the caller.
type DocumentGenerated struct {
	RequestID   string    `json:"request_id"`
	Macro       string    `json:"macro"`
	Format      string    `json:"format"`
	Bytes       int       `json:"bytes"`
	DurationMS  int64     `json:"duration_ms"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Publisher sends events to NATS under a configurable subject prefix.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewPublisher wraps an existing NATS connection. A nil connection is
// allowed and turns every publish into a no-op.
func NewPublisher(conn *nats.Conn, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "sasdoc"
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

// Connect dials NATS and returns a publisher bound to the connection.
func Connect(url, prefix string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewPublisher(conn, prefix, logger), nil
}

// DocumentGenerated publishes a generation event. Skips publishing when
// no NATS connection is configured.
func (p *Publisher) DocumentGenerated(ev DocumentGenerated) error {
	if p == nil || p.conn == nil {
		return nil
	}

	if ev.GeneratedAt.IsZero() {
		ev.GeneratedAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal generation event: %w", err)
	}

	subject := p.prefix + "." + SubjectGenerated
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish generation event: %w", err)
	}

	p.logger.Debug("published generation event",
		"subject", subject,
		"macro", ev.Macro,
		"format", ev.Format,
		"bytes", ev.Bytes)

	return nil
}

// Close drains the underlying connection. Safe on a nil publisher.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
