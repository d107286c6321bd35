package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// natsConn is the subset of *nats.Conn used by NATSNotifier.
type natsConn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSNotifier publishes alerts as JSON to a NATS subject.
type NATSNotifier struct {
	conn    natsConn
	subject string
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, subject string, opts ...nats.Option) (*NATSNotifier, error) {
	if subject == "" {
		return nil, errors.New("nats subject is required")
	}
	opts = append([]nats.Option{nats.Name("fee-guardian")}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return newNATSNotifier(nc, subject), nil
}

func newNATSNotifier(conn natsConn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

func (n *NATSNotifier) Name() string { return "nats" }

func (n *NATSNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(newEnvelope(alert))
	if err != nil {
		return fmt.Errorf("marshal nats payload: %w", err)
	}
	if err := n.conn.Publish(n.subject, body); err != nil {
		return fmt.Errorf("publish nats alert: %w", err)
	}

	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats alert: %w", err)
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	return n.conn.Drain()
}
