package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
)

// Memory keeps everything in process. Writes inside InTx are staged and
// only become visible on commit.
type Memory struct {
	mu         sync.RWMutex
	nextTable  int64
	nextHand   int64
	tables     map[int64]*models.Table
	seats      map[int64][]*models.Seat
	hands      map[int64]*models.Hand
	tableHands map[int64][]int64
	actions    map[int64][]models.Action
	results    map[int64][]models.Result

	locks sync.Map // tableID -> *sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		tables:     make(map[int64]*models.Table),
		seats:      make(map[int64][]*models.Seat),
		hands:      make(map[int64]*models.Hand),
		tableHands: make(map[int64][]int64),
		actions:    make(map[int64][]models.Action),
		results:    make(map[int64][]models.Result),
	}
}

func (m *Memory) Close() {}

func (m *Memory) CreateTable(ctx context.Context, t *models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTable++
	t.ID = m.nextTable
	t.Status = models.TableWaiting
	t.DealerSeat = -1
	t.Version = 1
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.LastActivityAt
	}
	m.tables[t.ID] = t.Clone()

	seats := make([]*models.Seat, t.Capacity)
	for i := range seats {
		seats[i] = &models.Seat{TableID: t.ID, SeatNo: i, UpdatedAt: t.CreatedAt}
	}
	m.seats[t.ID] = seats
	return nil
}

func (m *Memory) ListTables(ctx context.Context, includeClosed bool) ([]*models.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Table
	for _, t := range m.tables {
		if includeClosed || !t.Closed() {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) OpenTableIDs(ctx context.Context) ([]int64, error) {
	tables, err := m.ListTables(ctx, false)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(tables))
	for i, t := range tables {
		ids[i] = t.ID
	}
	return ids, nil
}

func (m *Memory) Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	snap := &models.Snapshot{Table: t.Clone(), Seats: cloneSeats(m.seats[tableID])}
	if ids := m.tableHands[tableID]; len(ids) > 0 {
		h := m.hands[ids[len(ids)-1]]
		snap.Hand = h.Clone()
		snap.Actions = append([]models.Action(nil), m.actions[h.ID]...)
		if h.Complete() {
			snap.Results = append([]models.Result(nil), m.results[h.ID]...)
		}
	}
	return snap, nil
}

func (m *Memory) HandLog(ctx context.Context, handID int64) (*models.Hand, []models.Action, []models.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hands[handID]
	if !ok {
		return nil, nil, nil, ErrNotFound
	}
	return h.Clone(),
		append([]models.Action(nil), m.actions[handID]...),
		append([]models.Result(nil), m.results[handID]...),
		nil
}

func (m *Memory) InTx(ctx context.Context, tableID int64, fn func(tx Tx) error) error {
	lock, _ := m.locks.LoadOrStore(tableID, &sync.Mutex{})
	lock.(*sync.Mutex).Lock()
	defer lock.(*sync.Mutex).Unlock()

	m.mu.RLock()
	_, ok := m.tables[tableID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	tx := &memTx{
		m:       m,
		tableID: tableID,
		seats:   make(map[int]*models.Seat),
		hands:   make(map[int64]*models.Hand),
		actions: make(map[int64][]models.Action),
		results: make(map[int64][]models.Result),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	m       *Memory
	tableID int64

	table    *models.Table
	seats    map[int]*models.Seat
	hands    map[int64]*models.Hand
	newHands []int64
	actions  map[int64][]models.Action
	results  map[int64][]models.Result
}

func (t *memTx) Table(ctx context.Context) (*models.Table, error) {
	if t.table != nil {
		return t.table.Clone(), nil
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	return t.m.tables[t.tableID].Clone(), nil
}

func (t *memTx) Seats(ctx context.Context) ([]*models.Seat, error) {
	t.m.mu.RLock()
	seats := cloneSeats(t.m.seats[t.tableID])
	t.m.mu.RUnlock()
	for i, s := range seats {
		if staged, ok := t.seats[s.SeatNo]; ok {
			seats[i] = staged.Clone()
		}
	}
	return seats, nil
}

func (t *memTx) Hand(ctx context.Context, handID int64) (*models.Hand, error) {
	if h, ok := t.hands[handID]; ok {
		return h.Clone(), nil
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	h, ok := t.m.hands[handID]
	if !ok || h.TableID != t.tableID {
		return nil, ErrNotFound
	}
	return h.Clone(), nil
}

func (t *memTx) Actions(ctx context.Context, handID int64) ([]models.Action, error) {
	t.m.mu.RLock()
	out := append([]models.Action(nil), t.m.actions[handID]...)
	t.m.mu.RUnlock()
	return append(out, t.actions[handID]...), nil
}

func (t *memTx) UpdateTable(ctx context.Context, tbl *models.Table) error {
	if tbl.ID != t.tableID {
		return ErrNotFound
	}
	current, _ := t.Table(ctx)
	tbl.Version = current.Version + 1
	t.table = tbl.Clone()
	return nil
}

func (t *memTx) UpdateSeat(ctx context.Context, s *models.Seat) error {
	seats, _ := t.Seats(ctx)
	found := false
	for _, other := range seats {
		if other.SeatNo == s.SeatNo {
			found = true
			continue
		}
		if s.UserID.Valid && other.UserID == s.UserID {
			return ErrAlreadySeated
		}
	}
	if !found || s.TableID != t.tableID {
		return ErrNotFound
	}
	t.seats[s.SeatNo] = s.Clone()
	return nil
}

func (t *memTx) InsertHand(ctx context.Context, h *models.Hand) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	for _, id := range t.m.tableHands[t.tableID] {
		if !t.m.hands[id].Complete() {
			if staged, ok := t.hands[id]; !ok || !staged.Complete() {
				return ErrHandOpen
			}
		}
	}
	for _, id := range t.newHands {
		if !t.hands[id].Complete() {
			return ErrHandOpen
		}
	}
	t.m.nextHand++
	h.ID = t.m.nextHand
	h.TableID = t.tableID
	t.hands[h.ID] = h.Clone()
	t.newHands = append(t.newHands, h.ID)
	return nil
}

func (t *memTx) UpdateHand(ctx context.Context, h *models.Hand) error {
	if _, err := t.Hand(ctx, h.ID); err != nil {
		return err
	}
	t.hands[h.ID] = h.Clone()
	return nil
}

func (t *memTx) AppendActions(ctx context.Context, actions ...models.Action) error {
	for _, a := range actions {
		existing, _ := t.Actions(ctx, a.HandID)
		if a.Seq != len(existing)+1 {
			return fmt.Errorf("failed to append action %d of hand %d: next sequence is %d", a.Seq, a.HandID, len(existing)+1)
		}
		t.actions[a.HandID] = append(t.actions[a.HandID], a)
	}
	return nil
}

func (t *memTx) InsertResults(ctx context.Context, results []models.Result) error {
	for _, r := range results {
		t.results[r.HandID] = append(t.results[r.HandID], r)
	}
	return nil
}

func (t *memTx) commit() {
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.table != nil {
		m.tables[t.tableID] = t.table
	}
	for _, s := range m.seats[t.tableID] {
		if staged, ok := t.seats[s.SeatNo]; ok {
			*s = *staged
		}
	}
	for id, h := range t.hands {
		m.hands[id] = h
	}
	for _, id := range t.newHands {
		m.tableHands[t.tableID] = append(m.tableHands[t.tableID], id)
	}
	for id, rows := range t.actions {
		m.actions[id] = append(m.actions[id], rows...)
	}
	for id, rows := range t.results {
		m.results[id] = append(m.results[id], rows...)
	}
}

func cloneSeats(seats []*models.Seat) []*models.Seat {
	out := make([]*models.Seat, len(seats))
	for i, s := range seats {
		out[i] = s.Clone()
	}
	return out
}
