package notify

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
)

// Publisher pushes learned-flow events to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.NotifierConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Notify serializes a flow event to JSON and publishes it.
func (p *Publisher) Notify(ev *model.FlowEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
