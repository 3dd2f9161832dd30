package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/poker-services/internal/auth"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	tokenAuth    *jwtauth.JWTAuth
	tableService *service.TableService
	port         string
}

func NewHandler(tableService *service.TableService, port string) *Handler {
	return &Handler{tableService: tableService, port: port}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	json.NewEncoder(w).Encode(rsp)
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "table service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	if rej, ok := poker.AsRejection(err); ok {
		code, msg = http.StatusConflict, string(rej)
	} else {
		switch {
		case errors.Is(err, store.ErrNotFound):
			code, msg = http.StatusNotFound, err.Error()
		case errors.Is(err, auth.ErrNoUser):
			code, msg = http.StatusUnauthorized, err.Error()
		case errors.Is(err, service.ErrInvalidSeat), errors.Is(err, service.ErrInvalidBuyIn),
			errors.Is(err, service.ErrInvalidTable), errors.Is(err, errBadRequest):
			code, msg = http.StatusBadRequest, err.Error()
		case errors.Is(err, service.ErrTableClosed), errors.Is(err, service.ErrNotSeated),
			errors.Is(err, service.ErrInHand), errors.Is(err, service.ErrHandVoided),
			errors.Is(err, service.ErrHandInProgress), errors.Is(err, store.ErrSeatTaken),
			errors.Is(err, store.ErrAlreadySeated):
			code, msg = http.StatusConflict, err.Error()
		}
	}
	if code == http.StatusInternalServerError {
		log.WithField("path", r.URL.Path).Errorf("request failed: %v", err)
	}
	h.CreateResponse(w, Response{Message: "request failed", Code: code, Error: msg})
}

var errBadRequest = errors.New("bad request")

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
