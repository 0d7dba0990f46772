package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes JSON-encoded gate events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

// Close flushes buffered publishes and closes the connection. The gate calls
// this right before halting so outcome events are not lost with the process.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	p.conn.Close()
	return nil
}

// Connector lazily connects a NATSPublisher. It satisfies Publisher from
// construction, writing through a noop until Connect succeeds, so the gate
// can be wired before the events service has started.
type Connector struct {
	url string

	mu  sync.Mutex
	pub Publisher
}

func NewConnector(url string) *Connector {
	return &Connector{url: url}
}

// Connect dials NATS. It reports fresh=true on a new connection and
// fresh=false when already connected.
func (c *Connector) Connect(ctx context.Context) (fresh bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub != nil {
		return false, nil
	}
	pub, err := NewNATSPublisher(c.url)
	if err != nil {
		return false, err
	}
	c.pub = pub
	return true, nil
}

func (c *Connector) Publish(ctx context.Context, topic string, event any) error {
	c.mu.Lock()
	pub := c.pub
	c.mu.Unlock()
	if pub == nil {
		return nil
	}
	return pub.Publish(ctx, topic, event)
}

func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pub == nil {
		return nil
	}
	err := c.pub.Close()
	c.pub = nil
	return err
}
