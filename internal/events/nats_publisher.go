package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/torn-open/docsmith/internal/config"
	"github.com/torn-open/docsmith/internal/logfields"
)

// NATSPublisher forwards build events to a JetStream subject so external
// consumers (deploy hooks, dashboards) can react to builds.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("nats_url is required")
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("docsmith"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	slog.Info("NATS publisher connected",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", cfg.Subject))

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

// PublishBuildFinished publishes one build result as JSON.
func (p *NATSPublisher) PublishBuildFinished(ctx context.Context, evt BuildFinished) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if _, err := p.js.Publish(ctx, p.subject, payload); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}
