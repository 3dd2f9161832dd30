package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrTableClosed  = errors.New("table is closed")
	ErrNotSeated    = errors.New("user is not seated at this table")
	ErrInHand       = errors.New("seat is in the current hand")
	ErrHandVoided   = errors.New("hand was voided")
	ErrInvalidSeat  = errors.New("invalid seat number")
	ErrInvalidBuyIn = errors.New("buy-in must be at least one big blind")
	ErrInvalidTable = errors.New("invalid table parameters")

	ErrHandInProgress = errors.New("hand is still in progress")

	// errInvariant marks state that no longer matches its action log.
	errInvariant = errors.New("hand invariant violated")
)

// Publisher delivers events to downstream consumers after commit.
type Publisher interface {
	PublishHandCompleted(ev comm.HandCompleted) error
	PublishTableClosed(ev comm.TableClosedEvent) error
}

type NopPublisher struct{}

func (NopPublisher) PublishHandCompleted(comm.HandCompleted) error  { return nil }
func (NopPublisher) PublishTableClosed(comm.TableClosedEvent) error { return nil }

// TableService owns every mutation of table state. Mutations of one table
// are serialized by an in-process lock and by the store's row lock.
type TableService struct {
	store     store.Store
	settings  config.Settings
	publisher Publisher
	now       func() time.Time
	shuffle   poker.Shuffler

	locks  sync.Map // tableID -> *sync.Mutex
	flight singleflight.Group
}

type Option func(*TableService)

func WithClock(now func() time.Time) Option {
	return func(s *TableService) { s.now = now }
}

func WithShuffler(shuffle poker.Shuffler) Option {
	return func(s *TableService) { s.shuffle = shuffle }
}

func WithPublisher(p Publisher) Option {
	return func(s *TableService) { s.publisher = p }
}

func NewTableService(st store.Store, settings config.Settings, opts ...Option) *TableService {
	s := &TableService{
		store:     st,
		settings:  settings,
		publisher: NopPublisher{},
		now:       time.Now,
		shuffle:   poker.NewShuffler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TableService) Settings() config.Settings { return s.settings }

// Now is the service clock.
func (s *TableService) Now() time.Time { return s.now() }

// outbox collects what happened inside a transaction so it can be
// published once the transaction commits.
type outbox struct {
	completed []comm.HandCompleted
	closed    []comm.TableClosedEvent
	voided    bool
}

func (s *TableService) tableLock(tableID int64) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(tableID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// mutate runs fn as the single writer of the table.
func (s *TableService) mutate(ctx context.Context, tableID int64, fn func(tx store.Tx, out *outbox) error) (outbox, error) {
	mu := s.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()

	var out outbox
	err := s.store.InTx(ctx, tableID, func(tx store.Tx) error {
		out = outbox{}
		return fn(tx, &out)
	})
	if err != nil {
		return outbox{}, err
	}
	s.publish(out)
	return out, nil
}

func (s *TableService) publish(out outbox) {
	for _, ev := range out.completed {
		if err := s.publisher.PublishHandCompleted(ev); err != nil {
			log.WithFields(log.Fields{"table": ev.TableID, "hand": ev.HandID}).Errorf("publish hand-completed: %v", err)
		}
	}
	for _, ev := range out.closed {
		if err := s.publisher.PublishTableClosed(ev); err != nil {
			log.WithField("table", ev.TableID).Errorf("publish table-closed: %v", err)
		}
	}
}

func seatOf(seats []*models.Seat, userID int64) *models.Seat {
	for _, seat := range seats {
		if seat.UserID.Valid && seat.UserID.Int64 == userID {
			return seat
		}
	}
	return nil
}

func seatNo(seats []*models.Seat, no int) *models.Seat {
	for _, seat := range seats {
		if seat.SeatNo == no {
			return seat
		}
	}
	return nil
}
