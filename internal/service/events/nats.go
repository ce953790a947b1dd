package events

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Conn is the slice of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes session events as JSON on NATS subjects.
type NATSPublisher struct {
	conn   Conn
	closer func()
	prefix string
}

// Dial connects to NATS and returns a publisher rooted at prefix.
func Dial(url, token, prefix string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("ruffie"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[events] nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("[events] nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	p := NewNATSPublisher(nc, prefix)
	p.closer = nc.Close
	return p, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: strings.TrimSuffix(prefix, ".")}
}

// RiskQualified publishes on <prefix>.risk.qualified.
func (p *NATSPublisher) RiskQualified(event RiskQualified) error {
	return p.publish(SubjectRiskQualified, event)
}

// SessionCleared publishes on <prefix>.session.cleared.
func (p *NATSPublisher) SessionCleared(event SessionCleared) error {
	return p.publish(SubjectSessionCleared, event)
}

// Subject returns the full subject for suffix.
func (p *NATSPublisher) Subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

func (p *NATSPublisher) publish(suffix string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	subject := p.Subject(suffix)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close closes the connection opened by Dial, if any.
func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}
