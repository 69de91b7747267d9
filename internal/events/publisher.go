// Package events publishes build completion events so downstream packaging
// steps can react without polling the target directory.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/pipeline"
)

// Publisher emits build completion events.
type Publisher interface {
	Publish(report *pipeline.BuildReport) error
	Close()
}

// NoopPublisher discards events (default when NATS is not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(*pipeline.BuildReport) error { return nil }
func (NoopPublisher) Close()                              {}

// NATSPublisher publishes build reports as JSON to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized", "url", cfg.URL, "subject", cfg.Subject)
	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish sends the report to the configured subject. Flush is not awaited;
// a build result is advisory and must not slow the pipeline down.
func (p *NATSPublisher) Publish(report *pipeline.BuildReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish build report: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
