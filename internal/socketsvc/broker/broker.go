package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker relays client messages to the table service over NATS.
type Broker struct {
	Conn *nats.Conn
}

func NewBroker(conn *nats.Conn) *Broker {
	return &Broker{Conn: conn}
}

// Forward sends msg as a request on its subject and decodes the reply.
func (b *Broker) Forward(ctx context.Context, msg *comm.WSMessage) (*comm.WSMessage, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	topic := subjectFor(msg.Type)
	if topic == "" {
		return nil, fmt.Errorf("no route for message type %q", msg.Type)
	}
	res, err := b.Conn.RequestWithContext(ctx, topic, payload)
	if err != nil {
		log.Errorf("Error requesting %s: %s", topic, err)
		return nil, err
	}
	reply := &comm.WSMessage{}
	if err := json.Unmarshal(res.Data, reply); err != nil {
		return nil, fmt.Errorf("decode reply from %s: %w", topic, err)
	}
	return reply, nil
}

// Subscribe listens to table events and hands each one to fn.
func (b *Broker) Subscribe(topic string, fn func(*comm.WSMessage)) (*nats.Subscription, error) {
	return b.Conn.Subscribe(topic, func(m *nats.Msg) {
		msg := &comm.WSMessage{}
		if err := json.Unmarshal(m.Data, msg); err != nil {
			log.Errorf("Error %s", err)
			return
		}
		fn(msg)
	})
}

func subjectFor(typ string) string {
	switch typ {
	case comm.TypeAction:
		return comm.SubjectAction
	default:
		return ""
	}
}
