package handlers

import (
	"net/http"

	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/broadcast"
)

type createTableRequest struct {
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	req := createTableRequest{}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.tableService.CreateTable(r.Context(), req.Name, req.Capacity, req.SmallBlind, req.BigBlind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "table created", Code: http.StatusCreated, Data: t})
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.tableService.ListTables(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: tables})
}

// GetTable renders the table the way the stream does for the caller.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	tableID, err := idParam(r, "tableID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	userID, _ := auth.UserID(r.Context()) // spectators have no user id
	snap, err := h.tableService.Snapshot(r.Context(), tableID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	remaining := h.tableService.TurnRemaining(broadcast.CurrentHand(snap))
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: broadcast.BuildGameState(snap, userID, remaining)})
}

type sitDownRequest struct {
	Seat  int   `json:"seat"`
	BuyIn int64 `json:"buy_in"`
}

func (h *Handler) SitDown(w http.ResponseWriter, r *http.Request) {
	tableID, userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	req := sitDownRequest{}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	seat, err := h.tableService.SitDown(r.Context(), tableID, userID, req.Seat, req.BuyIn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "seated", Code: http.StatusCreated, Data: seat})
}

func (h *Handler) StandUp(w http.ResponseWriter, r *http.Request) {
	tableID, userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	cashOut, err := h.tableService.StandUp(r.Context(), tableID, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "left the table", Code: http.StatusOK, Data: map[string]int64{"cash_out": cashOut}})
}

func (h *Handler) SitOut(w http.ResponseWriter, r *http.Request) {
	tableID, userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		SittingOut bool `json:"sitting_out"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.tableService.SetSittingOut(r.Context(), tableID, userID, req.SittingOut); err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: req})
}

type actionRequest struct {
	Kind   poker.ActionKind `json:"kind"`
	Amount int64            `json:"amount"`
}

func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	tableID, userID, ok := h.actor(w, r)
	if !ok {
		return
	}
	req := actionRequest{}
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	action, err := h.tableService.Act(r.Context(), tableID, userID, req.Kind, req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "accepted", Code: http.StatusOK, Data: action})
}

func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	handID, err := idParam(r, "handID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	replay, err := h.tableService.Replay(r.Context(), handID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.CreateResponse(w, Response{Message: "ok", Code: http.StatusOK, Data: replay})
}

// actor resolves the table in the path and the user in the token.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	tableID, err := idParam(r, "tableID")
	if err != nil {
		h.fail(w, r, err)
		return 0, 0, false
	}
	userID, err := auth.UserID(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return 0, 0, false
	}
	return tableID, userID, true
}
