package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu        sync.Mutex
	completed []comm.HandCompleted
	closed    []comm.TableClosedEvent
}

func (r *recorder) PublishHandCompleted(ev comm.HandCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, ev)
	return nil
}

func (r *recorder) PublishTableClosed(ev comm.TableClosedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, ev)
	return nil
}

// stacked returns a shuffler that puts the given cards on top of the deck
// in order.
func stacked(top ...string) poker.Shuffler {
	return func(n int, swap func(i, j int)) {
		cur := poker.NewDeck()
		for i, want := range top {
			for j := i; j < len(cur); j++ {
				if cur[j] == want {
					swap(i, j)
					cur[i], cur[j] = cur[j], cur[i]
					break
				}
			}
		}
	}
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *TableService
	store *store.Memory
	clock *fakeClock
	pub   *recorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: store.NewMemory(),
		clock: &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		pub:   &recorder{},
	}
	settings := config.Defaults()
	settings.StoreMode = config.StoreMemory
	opts = append([]Option{WithClock(h.clock.Now), WithPublisher(h.pub), WithShuffler(stacked())}, opts...)
	h.svc = NewTableService(h.store, settings, opts...)
	return h
}

// table creates a table and seats one user per stack, user ids 1..n on
// seats 0..n-1.
func (h *harness) table(sb, bb int64, stacks ...int64) *models.Table {
	h.t.Helper()
	capacity := len(stacks)
	if capacity < 2 {
		capacity = 2
	}
	tbl, err := h.svc.CreateTable(h.ctx, "test", capacity, sb, bb)
	require.NoError(h.t, err)
	for i, stack := range stacks {
		_, err := h.svc.SitDown(h.ctx, tbl.ID, int64(i+1), i, stack)
		require.NoError(h.t, err)
	}
	return tbl
}

func (h *harness) snap(tableID int64) *models.Snapshot {
	h.t.Helper()
	snap, err := h.svc.Snapshot(h.ctx, tableID)
	require.NoError(h.t, err)
	return snap
}

func (h *harness) act(tableID, userID int64, kind poker.ActionKind, amount int64) poker.Action {
	h.t.Helper()
	a, err := h.svc.Act(h.ctx, tableID, userID, kind, amount)
	require.NoError(h.t, err, "user %d %s %d", userID, kind, amount)
	return a
}

func (h *harness) maintain(tableID int64) {
	h.t.Helper()
	require.NoError(h.t, h.svc.Maintain(h.ctx, tableID))
}

func stacks(snap *models.Snapshot) []int64 {
	var out []int64
	for _, s := range snap.Seats {
		if s.Occupied() {
			out = append(out, s.Stack)
		}
	}
	return out
}
