package service

import (
	"context"
	"fmt"

	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
)

// HandReplay is a hand's full history with the state after every action.
type HandReplay struct {
	Hand    *models.Hand    `json:"hand"`
	Actions []poker.Action  `json:"actions"`
	Frames  []poker.Frame   `json:"frames"`
	Results []models.Result `json:"results"`
}

// Replay rebuilds a completed hand from its log.
func (s *TableService) Replay(ctx context.Context, handID int64) (*HandReplay, error) {
	h, rows, results, err := s.store.HandLog(ctx, handID)
	if err != nil {
		return nil, err
	}
	if !h.Complete() {
		return nil, fmt.Errorf("hand %d: %w", handID, ErrHandInProgress)
	}
	actions := models.LogActions(rows)
	frames, err := poker.ReplaySteps(h.Start(), actions)
	if err != nil {
		return nil, fmt.Errorf("replay hand %d: %w", handID, err)
	}
	return &HandReplay{Hand: h, Actions: actions, Frames: frames, Results: results}, nil
}
