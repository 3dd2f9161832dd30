package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/socketsvc/ws"
	"github.com/avvvet/poker-services/internal/tablesvc/broadcast"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	upgrader    websocket.Upgrader
	ws          *ws.Ws
	broadcaster *broadcast.Broadcaster
	port        string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func NewHandler(s *ws.Ws, b *broadcast.Broadcaster, port string) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:          s,
		broadcaster: b,
		port:        port,
	}
	return h
}

// HandleStream upgrades the request and streams the table in the path to
// the caller until either side goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.ParseInt(chi.URLParam(r, "tableID"), 10, 64)
	if err != nil || tableID <= 0 {
		h.CreateResponse(w, Response{Message: "bad request", Code: http.StatusBadRequest, Error: "invalid table id"})
		return
	}
	userID, _ := auth.UserID(r.Context()) // service tokens watch as spectators

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	c := ws.NewClient(socketId, conn, userID, tableID, cancel)
	h.ws.StoreConnection(c)
	log.WithFields(log.Fields{"socket": socketId, "table": tableID, "user": userID}).Info("New WebSocket connection established")

	go h.stream(ctx, c)
	go h.handleConnection(conn, c)
}

func (h *Handler) stream(ctx context.Context, c *ws.Client) {
	viewer := broadcast.Viewer{UserID: c.UserID, SocketId: c.SocketId}
	if err := h.broadcaster.Run(ctx, c.TableID, viewer, c.Send); err != nil {
		log.Infof("stream for socket %s ended: %v", c.SocketId, err)
	}
}

func (h *Handler) handleConnection(conn *websocket.Conn, c *ws.Client) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", c.SocketId)
		h.ws.HandleDisconnect(c.SocketId)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", c.SocketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", c.SocketId)
			}
			break
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", c.SocketId, err)
			h.sendErrorToClient(c, "Invalid message format")
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", c.SocketId, message.Type)
		h.ws.SocketMessage(c.SocketId, message)
	}
}

func (h *Handler) sendErrorToClient(c *ws.Client, errorMsg string) {
	msg, err := comm.NewMessage(comm.TypeError, comm.ErrorEvent{Message: errorMsg}, c.SocketId)
	if err != nil {
		return
	}
	if err := c.Send(msg); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "socket service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}
