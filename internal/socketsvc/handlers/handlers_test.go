package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/socketsvc/handlers"
	"github.com/avvvet/poker-services/internal/socketsvc/routes"
	"github.com/avvvet/poker-services/internal/socketsvc/ws"
	"github.com/avvvet/poker-services/internal/tablesvc/broadcast"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// direct forwards actions straight into the service, standing in for the
// NATS round trip.
type direct struct {
	svc *service.TableService
}

func (d direct) Forward(ctx context.Context, msg *comm.WSMessage) (*comm.WSMessage, error) {
	req := comm.ActionRequest{}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return nil, err
	}
	reply := comm.ActionReply{OK: true}
	a, err := d.svc.Act(ctx, req.TableID, req.UserID, req.Kind, req.Amount)
	if r, ok := poker.AsRejection(err); ok {
		reply = comm.ActionReply{Rejection: string(r)}
	} else if err != nil {
		reply = comm.ActionReply{Error: err.Error()}
	} else {
		reply.Action = &a
	}
	return comm.NewMessage(comm.TypeActionResult, reply, msg.SocketId)
}

type server struct {
	t       *testing.T
	svc     *service.TableService
	url     string
	tableID int64
}

func newServer(t *testing.T) *server {
	settings := config.Defaults()
	settings.PollFast = 10 * time.Millisecond
	settings.PollSlow = 10 * time.Millisecond
	svc := service.NewTableService(store.NewMemory(), settings)

	ja := auth.New("socket-secret")
	h := handlers.NewHandler(ws.NewWs(direct{svc: svc}, time.Second), broadcast.NewBroadcaster(svc, settings), "0")
	r := chi.NewRouter()
	routes.SetRoutes(r, h, ja)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	tbl, err := svc.CreateTable(ctx, "ws", 2, 5, 10)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svc.SitDown(ctx, tbl.ID, int64(i+1), i, 1000)
		require.NoError(t, err)
	}
	return &server{t: t, svc: svc, url: "ws" + strings.TrimPrefix(srv.URL, "http"), tableID: tbl.ID}
}

func (s *server) dial(userID int64) *websocket.Conn {
	s.t.Helper()
	token, err := auth.Token(auth.New("socket-secret"), userID, time.Hour)
	require.NoError(s.t, err)
	u := s.url + "/v1/tables/" + strconv.FormatInt(s.tableID, 10) + "/stream?jwt=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	return conn
}

// next reads until a message of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) *comm.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		msg := &comm.WSMessage{}
		require.NoError(t, conn.ReadJSON(msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestStreamAndAct(t *testing.T) {
	s := newServer(t)
	conn := s.dial(1)

	connected := comm.Connected{}
	require.NoError(t, json.Unmarshal(next(t, conn, comm.TypeConnected).Data, &connected))
	assert.Equal(t, int64(1), connected.UserID)
	assert.NotEmpty(t, connected.SocketId)

	gs := comm.GameState{}
	require.NoError(t, json.Unmarshal(next(t, conn, comm.TypeGameState).Data, &gs))
	require.NotNil(t, gs.Hand, "the stream starts the hand")
	assert.Len(t, gs.Seats[0].HoleCards, 2)
	assert.Empty(t, gs.Seats[1].HoleCards)

	action, err := comm.NewMessage(comm.TypeAction, map[string]any{"kind": "call"}, "")
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(action))

	reply := comm.ActionReply{}
	require.NoError(t, json.Unmarshal(next(t, conn, comm.TypeActionResult).Data, &reply))
	assert.True(t, reply.OK, reply.Rejection+reply.Error)

	require.NoError(t, conn.WriteJSON(action))
	require.NoError(t, json.Unmarshal(next(t, conn, comm.TypeActionResult).Data, &reply))
	assert.False(t, reply.OK)
	assert.Equal(t, string(poker.RejectNotYourTurn), reply.Rejection)
}

func TestStreamRejectsMissingToken(t *testing.T) {
	s := newServer(t)
	u := s.url + "/v1/tables/" + strconv.FormatInt(s.tableID, 10) + "/stream"
	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 401, res.StatusCode)
}

func TestTableClosedEventEndsStream(t *testing.T) {
	settings := config.Defaults()
	svc := service.NewTableService(store.NewMemory(), settings)
	sockets := ws.NewWs(direct{svc: svc}, time.Second)
	h := handlers.NewHandler(sockets, broadcast.NewBroadcaster(svc, settings), "0")
	r := chi.NewRouter()
	ja := auth.New("k")
	routes.SetRoutes(r, h, ja)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tbl, err := svc.CreateTable(context.Background(), "empty", 2, 1, 2)
	require.NoError(t, err)
	token, err := auth.Token(ja, 5, time.Hour)
	require.NoError(t, err)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/tables/" + strconv.FormatInt(tbl.ID, 10) + "/stream?jwt=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()
	next(t, conn, comm.TypeGameState)

	ev, err := comm.NewMessage(comm.TypeTableClosedEvent, comm.TableClosedEvent{TableID: tbl.ID, Reason: "inactivity"}, "")
	require.NoError(t, err)
	sockets.HandleEvent(ev)

	closed := comm.TableClosed{}
	require.NoError(t, json.Unmarshal(next(t, conn, comm.TypeTableClosed).Data, &closed))
	assert.Equal(t, "inactivity", closed.Reason)
}
