package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/config"
)

// NATSPublisher publishes events to NATS core subjects under a
// configurable prefix:
//
//	{prefix}.documents.ingested
//	{prefix}.documents.deleted
//	{prefix}.queries.answered
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher connects to the configured NATS server. The
// connection retries in the background, so a broker that is down at
// startup delays events instead of failing the process.
func NewNATSPublisher(cfg *config.EventsConfig, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.URL, err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "docqd"
	}

	logger.Info("event publisher connected",
		zap.String("url", cfg.URL),
		zap.String("subject_prefix", prefix))

	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

func (p *NATSPublisher) DocumentIngested(ctx context.Context, event DocumentIngested) {
	p.publish(p.prefix+".documents.ingested", event)
}

func (p *NATSPublisher) DocumentDeleted(ctx context.Context, event DocumentDeleted) {
	p.publish(p.prefix+".documents.deleted", event)
}

func (p *NATSPublisher) QueryAnswered(ctx context.Context, event QueryAnswered) {
	p.publish(p.prefix+".queries.answered", event)
}

// Close drains the connection so buffered events flush before shutdown.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

func (p *NATSPublisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("failed to marshal event",
			zap.String("subject", subject),
			zap.Error(err))
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
