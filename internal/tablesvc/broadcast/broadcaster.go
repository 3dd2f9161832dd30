package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

// Source is the table engine as seen by a viewer.
type Source interface {
	Maintain(ctx context.Context, tableID int64) error
	Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error)
	TurnRemaining(h *models.Hand) time.Duration
}

// Emit delivers one event to the viewer. An error ends the loop.
type Emit func(msg *comm.WSMessage) error

type Viewer struct {
	UserID   int64 // 0 for spectators
	SocketId string
}

type Broadcaster struct {
	src      Source
	settings config.Settings
}

func NewBroadcaster(src Source, settings config.Settings) *Broadcaster {
	return &Broadcaster{src: src, settings: settings}
}

// session is the per-viewer loop state.
type session struct {
	tableID int64
	viewer  Viewer
	last    Fingerprint
	sent    bool
}

// Run streams tableID to the viewer until ctx is cancelled, the table is
// closed or missing, or emit fails.
func (b *Broadcaster) Run(ctx context.Context, tableID int64, viewer Viewer, emit Emit) error {
	s := &session{tableID: tableID, viewer: viewer}
	logger := log.WithFields(log.Fields{"table": tableID, "user": viewer.UserID, "socket": viewer.SocketId})

	connected := comm.Connected{TableID: tableID, UserID: viewer.UserID, SocketId: viewer.SocketId}
	if err := b.send(emit, viewer, comm.TypeConnected, connected); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		next, done, err := b.poll(ctx, s, emit)
		if err != nil {
			return err
		}
		if done {
			logger.Info("stream finished")
			return nil
		}
		timer.Reset(next)
	}
}

// poll runs one tick and returns the delay before the next one.
func (b *Broadcaster) poll(ctx context.Context, s *session, emit Emit) (time.Duration, bool, error) {
	err := b.src.Maintain(ctx, s.tableID)
	var snap *models.Snapshot
	if err == nil {
		snap, err = b.src.Snapshot(ctx, s.tableID)
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, true, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return 0, true, b.send(emit, s.viewer, comm.TypeError, comm.ErrorEvent{Message: "table not found", Fatal: true})
		}
		log.WithField("table", s.tableID).Warnf("broadcast poll: %v", err)
		if err := b.send(emit, s.viewer, comm.TypeError, comm.ErrorEvent{Message: "temporarily unavailable"}); err != nil {
			return 0, true, err
		}
		return b.settings.ErrorBackoff, false, nil
	}

	if snap.Table.Closed() {
		return 0, true, b.send(emit, s.viewer, comm.TypeTableClosed, comm.TableClosed{Reason: "inactivity"})
	}

	remaining := b.src.TurnRemaining(CurrentHand(snap))
	fp := FingerprintOf(snap)
	if !s.sent || fp != s.last {
		if err := b.send(emit, s.viewer, comm.TypeGameState, BuildGameState(snap, s.viewer.UserID, remaining)); err != nil {
			return 0, true, err
		}
		s.last, s.sent = fp, true
	} else if err := b.send(emit, s.viewer, comm.TypeHeartbeat, comm.Heartbeat{TurnRemainingMs: remaining.Milliseconds()}); err != nil {
		return 0, true, err
	}

	if snap.Table.CurrentHandID.Valid {
		return b.settings.PollFast, false, nil
	}
	return b.settings.PollSlow, false, nil
}

// CurrentHand is the hand in progress at the table, if any.
func CurrentHand(snap *models.Snapshot) *models.Hand {
	if snap.Hand == nil || !snap.Table.CurrentHandID.Valid || snap.Table.CurrentHandID.Int64 != snap.Hand.ID {
		return nil
	}
	return snap.Hand
}

func (b *Broadcaster) send(emit Emit, viewer Viewer, typ string, data any) error {
	msg, err := comm.NewMessage(typ, data, viewer.SocketId)
	if err != nil {
		return err
	}
	return emit(msg)
}
