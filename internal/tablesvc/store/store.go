package store

import (
	"context"
	"errors"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrSeatTaken     = errors.New("seat already taken")
	ErrAlreadySeated = errors.New("user already seated at this table")
	ErrHandOpen      = errors.New("table already has an open hand")
)

// Store is the persisted table state. Reads outside InTx are unlocked and
// may be stale by the time they return.
type Store interface {
	CreateTable(ctx context.Context, t *models.Table) error
	ListTables(ctx context.Context, includeClosed bool) ([]*models.Table, error)
	OpenTableIDs(ctx context.Context) ([]int64, error)
	Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error)
	HandLog(ctx context.Context, handID int64) (*models.Hand, []models.Action, []models.Result, error)

	// InTx runs fn with the table row locked. Writes made through tx are
	// committed only when fn returns nil.
	InTx(ctx context.Context, tableID int64, fn func(tx Tx) error) error
	Close()
}

// Tx is the write side of one locked table.
type Tx interface {
	Table(ctx context.Context) (*models.Table, error)
	Seats(ctx context.Context) ([]*models.Seat, error)
	Hand(ctx context.Context, handID int64) (*models.Hand, error)
	Actions(ctx context.Context, handID int64) ([]models.Action, error)

	// UpdateTable writes t and bumps its version.
	UpdateTable(ctx context.Context, t *models.Table) error
	UpdateSeat(ctx context.Context, s *models.Seat) error
	InsertHand(ctx context.Context, h *models.Hand) error
	UpdateHand(ctx context.Context, h *models.Hand) error
	AppendActions(ctx context.Context, actions ...models.Action) error
	InsertResults(ctx context.Context, results []models.Result) error
}
