// Package events publishes session notices to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
)

// Envelope is the published message body.
type Envelope struct {
	ID string `json:"id"`
	interview.Notice
}

// Publisher implements interview.Notifier over a NATS connection.
//
// Notices are published to:
//
//	{prefix}.{session_id}.{kind}
type Publisher struct {
	nc     *nats.Conn
	prefix string
	log    *logging.Logger
	owned  bool
}

var _ interview.Notifier = (*Publisher)(nil)

// Connect dials url and returns a Publisher that closes the connection on Close.
func Connect(url, prefix string, logger *logging.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("interviewd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	p := NewPublisher(nc, prefix, logger)
	p.owned = true
	return p, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if prefix == "" {
		prefix = "interview"
	}
	return &Publisher{nc: nc, prefix: prefix, log: logger.Named("events")}
}

// Subject returns the subject a notice is published on.
func (p *Publisher) Subject(n interview.Notice) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, token(n.SessionID), n.Kind)
}

// Notify implements interview.Notifier.
func (p *Publisher) Notify(ctx context.Context, n interview.Notice) error {
	env := Envelope{ID: uuid.NewString(), Notice: n}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	msg := nats.NewMsg(p.Subject(n))
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	msg.Data = data

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s notice: %w", n.Kind, err)
	}

	p.log.Debug(ctx, "published notice", zap.String("subject", msg.Subject), zap.String("id", env.ID))
	return nil
}

// Close drains the connection if the Publisher opened it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

// token makes s safe for use as a single subject token.
func token(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

// Nop discards notices.
type Nop struct{}

func (Nop) Notify(context.Context, interview.Notice) error { return nil }

func (Nop) Close() error { return nil }
