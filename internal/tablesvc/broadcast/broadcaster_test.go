package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/service"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sink struct {
	mu   sync.Mutex
	msgs []*comm.WSMessage
}

func (s *sink) emit(msg *comm.WSMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (s *sink) last(t *testing.T, v any) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.msgs)
	m := s.msgs[len(s.msgs)-1]
	if v != nil {
		require.NoError(t, json.Unmarshal(m.Data, v))
	}
	return m.Type
}

type fixture struct {
	ctx   context.Context
	svc   *service.TableService
	clock *clock
	b     *Broadcaster
	table *models.Table
}

func newFixture(t *testing.T, stacks ...int64) *fixture {
	t.Helper()
	settings := config.Defaults()
	settings.StoreMode = config.StoreMemory
	f := &fixture{ctx: context.Background(), clock: &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}}
	f.svc = service.NewTableService(store.NewMemory(), settings, service.WithClock(f.clock.Now))
	f.b = NewBroadcaster(f.svc, settings)

	tbl, err := f.svc.CreateTable(f.ctx, "stream", 4, 5, 10)
	require.NoError(t, err)
	for i, stack := range stacks {
		_, err := f.svc.SitDown(f.ctx, tbl.ID, int64(i+1), i, stack)
		require.NoError(t, err)
	}
	f.table = tbl
	return f
}

func (f *fixture) poll(t *testing.T, s *session, out *sink) (time.Duration, bool) {
	t.Helper()
	next, done, err := f.b.poll(f.ctx, s, out.emit)
	require.NoError(t, err)
	return next, done
}

func TestStateOnChangeHeartbeatOtherwise(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	out := &sink{}
	s := &session{tableID: f.table.ID, viewer: Viewer{UserID: 1}}

	next, done := f.poll(t, s, out)
	assert.False(t, done)
	assert.Equal(t, time.Second, next, "a hand was started by the first poll")

	var gs comm.GameState
	require.Equal(t, comm.TypeGameState, out.last(t, &gs))
	require.NotNil(t, gs.Hand)
	assert.Equal(t, int64(15), gs.Hand.Pot)
	assert.Equal(t, "1.50", gs.Hand.PotBB)
	assert.Equal(t, int64(5), gs.Hand.ToCall)
	assert.Equal(t, int64(30000), gs.Hand.TurnRemainingMs)

	f.clock.Advance(4 * time.Second)
	f.poll(t, s, out)
	var hb comm.Heartbeat
	require.Equal(t, comm.TypeHeartbeat, out.last(t, &hb))
	assert.Equal(t, int64(26000), hb.TurnRemainingMs)

	_, err := f.svc.Act(f.ctx, f.table.ID, 1, poker.ActionCall, 0)
	require.NoError(t, err)
	f.poll(t, s, out)
	require.Equal(t, comm.TypeGameState, out.last(t, &gs))
	assert.Equal(t, poker.StreetFlop, gs.Hand.Street)
	assert.Len(t, gs.Hand.Board, 3)
}

func TestHoleCardVisibility(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	require.NoError(t, f.svc.Maintain(f.ctx, f.table.ID))
	snap, err := f.svc.Snapshot(f.ctx, f.table.ID)
	require.NoError(t, err)

	own := BuildGameState(snap, 1, 0)
	assert.Len(t, own.Seats[0].HoleCards, 2)
	assert.Empty(t, own.Seats[1].HoleCards)
	assert.True(t, own.Seats[0].IsViewer)
	require.NotNil(t, own.ViewerSeat)
	assert.Equal(t, 0, *own.ViewerSeat)
	assert.Nil(t, own.Seats[2], "empty seats render as null")

	spectator := BuildGameState(snap, 0, 0)
	assert.Empty(t, spectator.Seats[0].HoleCards)
	assert.Empty(t, spectator.Seats[1].HoleCards)
	assert.Nil(t, spectator.ViewerSeat)

	// play to showdown
	_, err = f.svc.Act(f.ctx, f.table.ID, 1, poker.ActionCall, 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.svc.Act(f.ctx, f.table.ID, 2, poker.ActionCheck, 0)
		require.NoError(t, err)
		_, err = f.svc.Act(f.ctx, f.table.ID, 1, poker.ActionCheck, 0)
		require.NoError(t, err)
	}
	snap, err = f.svc.Snapshot(f.ctx, f.table.ID)
	require.NoError(t, err)
	require.True(t, snap.Hand.Complete())

	spectator = BuildGameState(snap, 0, 0)
	assert.Len(t, spectator.Seats[0].HoleCards, 2)
	assert.Len(t, spectator.Seats[1].HoleCards, 2)
	assert.NotEmpty(t, spectator.Hand.Winnings)
}

func TestFoldedCardsStayHidden(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000)
	require.NoError(t, f.svc.Maintain(f.ctx, f.table.ID))
	_, err := f.svc.Act(f.ctx, f.table.ID, 1, poker.ActionFold, 0)
	require.NoError(t, err)
	_, err = f.svc.Act(f.ctx, f.table.ID, 2, poker.ActionFold, 0)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(f.ctx, f.table.ID)
	require.NoError(t, err)
	gs := BuildGameState(snap, 3, 0)
	assert.Empty(t, gs.Seats[0].HoleCards)
	assert.Empty(t, gs.Seats[1].HoleCards)
	assert.Len(t, gs.Seats[2].HoleCards, 2)
}

func TestClosedTableEndsStream(t *testing.T) {
	f := newFixture(t)
	out := &sink{}
	s := &session{tableID: f.table.ID}

	next, done := f.poll(t, s, out)
	assert.False(t, done)
	assert.Equal(t, 3*time.Second, next)

	f.clock.Advance(10 * time.Minute)
	_, done = f.poll(t, s, out)
	assert.True(t, done)
	var closed comm.TableClosed
	assert.Equal(t, comm.TypeTableClosed, out.last(t, &closed))
	assert.Equal(t, "inactivity", closed.Reason)
	assert.Equal(t, []string{comm.TypeGameState, comm.TypeTableClosed}, out.types())
}

func TestMissingTableIsFatal(t *testing.T) {
	f := newFixture(t)
	out := &sink{}
	_, done := f.poll(t, &session{tableID: 999}, out)
	assert.True(t, done)
	var ev comm.ErrorEvent
	require.Equal(t, comm.TypeError, out.last(t, &ev))
	assert.True(t, ev.Fatal)
}

type flaky struct {
	Source
	fail bool
}

func (f *flaky) Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return f.Source.Snapshot(ctx, tableID)
}

func TestTransientErrorBacksOff(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	src := &flaky{Source: f.svc, fail: true}
	b := NewBroadcaster(src, f.svc.Settings())
	out := &sink{}
	s := &session{tableID: f.table.ID, viewer: Viewer{UserID: 2}}

	next, done, err := b.poll(f.ctx, s, out.emit)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 2*time.Second, next)
	var ev comm.ErrorEvent
	require.Equal(t, comm.TypeError, out.last(t, &ev))
	assert.False(t, ev.Fatal)

	src.fail = false
	_, done, err = b.poll(f.ctx, s, out.emit)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, comm.TypeGameState, out.last(t, nil))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, 1000, 1000)
	settings := f.svc.Settings()
	settings.PollFast = time.Millisecond
	settings.PollSlow = time.Millisecond
	b := NewBroadcaster(f.svc, settings)

	ctx, cancel := context.WithCancel(context.Background())
	out := &sink{}
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, f.table.ID, Viewer{UserID: 1, SocketId: "s1"}, out.emit) }()

	require.Eventually(t, func() bool { return len(out.types()) >= 4 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}

	types := out.types()
	assert.Equal(t, comm.TypeConnected, types[0])
	assert.Equal(t, comm.TypeGameState, types[1])
	assert.Equal(t, comm.TypeHeartbeat, types[2])
}
