package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type api struct {
	t   *testing.T
	svc *service.TableService
	srv *httptest.Server
}

func newAPI(t *testing.T) *api {
	svc := service.NewTableService(store.NewMemory(), config.Defaults())
	h := NewHandler(svc, "0")
	h.InitAuth(secret)
	r := chi.NewRouter()
	h.SetRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &api{t: t, svc: svc, srv: srv}
}

func (a *api) do(method, path string, userID int64, body any) (int, Response) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(a.t, err)
	if userID != 0 {
		token, err := auth.Token(auth.New(secret), userID, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()

	rsp := Response{}
	require.NoError(a.t, json.NewDecoder(res.Body).Decode(&rsp))
	return res.StatusCode, rsp
}

func (a *api) tableID(rsp Response) int64 {
	a.t.Helper()
	data, ok := rsp.Data.(map[string]interface{})
	require.True(a.t, ok, "data is %T", rsp.Data)
	id, ok := data["id"].(float64)
	require.True(a.t, ok)
	return int64(id)
}

func tablePath(id int64) string {
	return "/v1/tables/" + strconv.FormatInt(id, 10)
}

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t)
	code, rsp := a.do(http.MethodGet, "/v1/health", 0, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, rsp.Message, "table service")
}

func TestRequiresToken(t *testing.T) {
	a := newAPI(t)
	res, err := http.Get(a.srv.URL + "/v1/tables")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestTableFlow(t *testing.T) {
	a := newAPI(t)

	code, rsp := a.do(http.MethodPost, "/v1/tables", 1, createTableRequest{Name: "main", Capacity: 6, SmallBlind: 5, BigBlind: 10})
	require.Equal(t, http.StatusCreated, code, rsp.Error)
	tableID := a.tableID(rsp)
	base := tablePath(tableID)

	code, rsp = a.do(http.MethodPost, base+"/seats", 1, sitDownRequest{Seat: 0, BuyIn: 1000})
	require.Equal(t, http.StatusCreated, code, rsp.Error)
	code, _ = a.do(http.MethodPost, base+"/seats", 2, sitDownRequest{Seat: 0, BuyIn: 1000})
	assert.Equal(t, http.StatusConflict, code, "seat taken")
	code, _ = a.do(http.MethodPost, base+"/seats", 2, sitDownRequest{Seat: 3, BuyIn: 5})
	assert.Equal(t, http.StatusBadRequest, code, "buy-in below the big blind")
	code, _ = a.do(http.MethodPost, base+"/seats", 2, sitDownRequest{Seat: 3, BuyIn: 1000})
	require.Equal(t, http.StatusCreated, code)

	code, rsp = a.do(http.MethodPost, base+"/actions", 1, actionRequest{Kind: "check"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "no active hand", rsp.Error)

	require.NoError(t, a.svc.Maintain(context.Background(), tableID))

	// heads-up: seat 0 is the dealer and acts first
	code, rsp = a.do(http.MethodPost, base+"/actions", 2, actionRequest{Kind: "check"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "not your turn", rsp.Error)
	code, rsp = a.do(http.MethodPost, base+"/actions", 1, actionRequest{Kind: "call"})
	require.Equal(t, http.StatusOK, code, rsp.Error)

	code, rsp = a.do(http.MethodGet, base, 2, nil)
	require.Equal(t, http.StatusOK, code)
	state := rsp.Data.(map[string]interface{})
	hand := state["hand"].(map[string]interface{})
	assert.Equal(t, "flop", hand["street"])
	assert.Equal(t, float64(3), state["viewer_seat"])

	code, _ = a.do(http.MethodDelete, base+"/seats/me", 1, nil)
	assert.Equal(t, http.StatusConflict, code, "cannot leave mid-hand")

	code, _ = a.do(http.MethodGet, "/v1/tables/abc", 1, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/v1/tables/999", 1, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReplayRequiresCompletedHand(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	code, rsp := a.do(http.MethodPost, "/v1/tables", 1, createTableRequest{Name: "r", Capacity: 2, SmallBlind: 1, BigBlind: 2})
	require.Equal(t, http.StatusCreated, code)
	tableID := a.tableID(rsp)
	for u := int64(1); u <= 2; u++ {
		code, _ := a.do(http.MethodPost, tablePath(tableID)+"/seats", u, sitDownRequest{Seat: int(u - 1), BuyIn: 100})
		require.Equal(t, http.StatusCreated, code)
	}
	require.NoError(t, a.svc.Maintain(ctx, tableID))

	snap, err := a.svc.Snapshot(ctx, tableID)
	require.NoError(t, err)
	handPath := "/v1/hands/" + strconv.FormatInt(snap.Hand.ID, 10) + "/replay"

	code, _ = a.do(http.MethodGet, handPath, 1, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPost, tablePath(tableID)+"/actions", 1, actionRequest{Kind: "fold"})
	require.Equal(t, http.StatusOK, code)

	code, rsp = a.do(http.MethodGet, handPath, 1, nil)
	require.Equal(t, http.StatusOK, code, rsp.Error)
	replay := rsp.Data.(map[string]interface{})
	assert.Len(t, replay["frames"], 3)
}
