package execution

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used to ship orders.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSRouter publishes every order as JSON on a subject for a downstream execution service.
type NATSRouter struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
}

// NewNATSRouter wraps an existing publisher.
func NewNATSRouter(pub Publisher, subject string) *NATSRouter {
	return &NATSRouter{pub: pub, subject: subject}
}

// DialNATS connects to url and returns a router owning the connection.
func DialNATS(url, subject string, opts ...nats.Option) (*NATSRouter, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSRouter{pub: nc, conn: nc, subject: subject}, nil
}

// Route implements Router.
func (r *NATSRouter) Route(order Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return r.pub.Publish(r.subject, data)
}

// Close drains the owned connection, if any.
func (r *NATSRouter) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}
