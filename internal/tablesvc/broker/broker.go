package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker serves action requests forwarded by the socket service and
// publishes table events for downstream consumers.
type Broker struct {
	Conn         *nats.Conn
	TableService *service.TableService
	timeout      time.Duration
}

func NewBroker(nc *nats.Conn, tableService *service.TableService) *Broker {
	return &Broker{
		Conn:         nc,
		TableService: tableService,
		timeout:      tableService.Settings().RequestTimeout,
	}
}

// QueueSubscribe consumes action requests. Every table service instance
// joins the same queue group so each request is handled once.
func (b *Broker) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case comm.TypeAction:
		req := comm.ActionRequest{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Errorf("Error decoding action: %s", err)
			b.reply(msgNat, comm.ActionReply{Error: "malformed action"}, msg.SocketId)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		b.reply(msgNat, b.HandleAction(ctx, req), msg.SocketId)
	default:
		log.Errorf("Unknown message type %q", msg.Type)
	}
}

// HandleAction applies req and describes the outcome.
func (b *Broker) HandleAction(ctx context.Context, req comm.ActionRequest) comm.ActionReply {
	action, err := b.TableService.Act(ctx, req.TableID, req.UserID, req.Kind, req.Amount)
	if err == nil {
		return comm.ActionReply{OK: true, Action: &action}
	}
	if r, ok := poker.AsRejection(err); ok {
		return comm.ActionReply{Rejection: string(r)}
	}
	fields := log.Fields{"table": req.TableID, "user": req.UserID, "kind": req.Kind}
	switch {
	case errors.Is(err, service.ErrNotSeated), errors.Is(err, service.ErrTableClosed), errors.Is(err, service.ErrHandVoided):
		log.WithFields(fields).Infof("action refused: %v", err)
		return comm.ActionReply{Error: err.Error()}
	default:
		log.WithFields(fields).Errorf("Error [TableService.Act] %s", err)
		return comm.ActionReply{Error: "internal error"}
	}
}

func (b *Broker) reply(msgNat *nats.Msg, r comm.ActionReply, socketId string) {
	if msgNat.Reply == "" {
		return
	}
	msg, err := comm.NewMessage(comm.TypeActionResult, r, socketId)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error responding to %s: %s", msgNat.Reply, err)
	}
}

// Publisher implements service.Publisher on top of NATS.
type Publisher struct {
	Conn *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{Conn: nc}
}

func (p *Publisher) PublishHandCompleted(ev comm.HandCompleted) error {
	return p.publish(comm.TypeHandCompleted, ev)
}

func (p *Publisher) PublishTableClosed(ev comm.TableClosedEvent) error {
	return p.publish(comm.TypeTableClosedEvent, ev)
}

func (p *Publisher) publish(typ string, data any) error {
	msg, err := comm.NewMessage(typ, data, "")
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.Conn.Publish(comm.SubjectEvents, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", comm.SubjectEvents, err)
		return err
	}
	return nil
}
