package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Forwarder delivers a client request to the table service and returns
// its reply.
type Forwarder interface {
	Forward(ctx context.Context, msg *comm.WSMessage) (*comm.WSMessage, error)
}

// Client is one websocket viewer. Writes are serialized because the
// broadcaster and action replies share the connection.
type Client struct {
	SocketId string
	UserID   int64
	TableID  int64

	conn   *websocket.Conn
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewClient(socketId string, conn *websocket.Conn, userID, tableID int64, cancel context.CancelFunc) *Client {
	return &Client{SocketId: socketId, conn: conn, UserID: userID, TableID: tableID, cancel: cancel}
}

func (c *Client) Send(msg *comm.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

type Ws struct {
	connMap sync.Map // socketId -> *Client
	Broker  Forwarder
	timeout time.Duration
}

func NewWs(broker Forwarder, timeout time.Duration) *Ws {
	return &Ws{Broker: broker, timeout: timeout}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	c, ok := s.GetConnection(socketId)
	if !ok {
		return
	}
	switch message.Type {
	case comm.TypeAction:
		s.handleAction(c, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// handleAction forwards a client action for the connection's table and
// user. Identity comes from the connection, never the payload.
func (s *Ws) handleAction(c *Client, msg *comm.WSMessage) {
	var payload struct {
		Kind   poker.ActionKind `json:"kind"`
		Amount int64            `json:"amount"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		s.reply(c, comm.ActionReply{Error: "malformed action"})
		return
	}
	if c.UserID == 0 {
		s.reply(c, comm.ActionReply{Error: "spectators cannot act"})
		return
	}

	req := comm.ActionRequest{TableID: c.TableID, UserID: c.UserID, Kind: payload.Kind, Amount: payload.Amount}
	fwd, err := comm.NewMessage(comm.TypeAction, req, c.SocketId)
	if err != nil {
		log.Errorf("Failed to build action for socket %s: %v", c.SocketId, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.Broker.Forward(ctx, fwd)
	if err != nil {
		s.reply(c, comm.ActionReply{Error: "table service unavailable"})
		return
	}
	res.SocketId = c.SocketId
	if err := c.Send(res); err != nil {
		log.Errorf("Failed to send action result to %s: %v", c.SocketId, err)
	}
}

func (s *Ws) reply(c *Client, r comm.ActionReply) {
	msg, err := comm.NewMessage(comm.TypeActionResult, r, c.SocketId)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}
	if err := c.Send(msg); err != nil {
		log.Errorf("Failed to send action result to %s: %v", c.SocketId, err)
	}
}

func (s *Ws) StoreConnection(c *Client) {
	s.connMap.Store(c.SocketId, c)
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

// HandleDisconnect stops the viewer's stream and forgets the socket.
func (s *Ws) HandleDisconnect(socketId string) {
	if c, ok := s.GetConnection(socketId); ok {
		c.cancel()
	}
	s.connMap.Delete(socketId)
}

// TableSockets lists the sockets watching tableID.
func (s *Ws) TableSockets(tableID int64) []*Client {
	var clients []*Client
	s.connMap.Range(func(key, value interface{}) bool {
		if c := value.(*Client); c.TableID == tableID {
			clients = append(clients, c)
		}
		return true
	})
	return clients
}

// HandleEvent reacts to table events published by the table service. A
// closed table ends every stream watching it right away.
func (s *Ws) HandleEvent(msg *comm.WSMessage) {
	if msg.Type != comm.TypeTableClosedEvent {
		return
	}
	ev := comm.TableClosedEvent{}
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Errorf("Error decoding %s: %s", msg.Type, err)
		return
	}
	for _, c := range s.TableSockets(ev.TableID) {
		out, err := comm.NewMessage(comm.TypeTableClosed, comm.TableClosed{Reason: ev.Reason}, c.SocketId)
		if err == nil {
			c.cancel()
			c.Send(out)
		}
	}
}
