package store

import (
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

// HistoryRecorder is a jobs.Listener that persists every run: the row is
// inserted when the run starts and finalised with its products when it finishes.
type HistoryRecorder struct {
	store *Store
}

// NewHistoryRecorder creates a listener writing to s.
func NewHistoryRecorder(s *Store) *HistoryRecorder {
	return &HistoryRecorder{store: s}
}

// OnEvent implements jobs.Listener.
func (h *HistoryRecorder) OnEvent(ev jobs.Event) {
	switch ev.Type {
	case jobs.EventStarted:
		run := &models.ScrapeRun{
			ID:         ev.RunID,
			StoreType:  ev.Request.StoreType,
			URL:        ev.Request.URL,
			MaxPages:   ev.Request.MaxPages,
			Categories: ev.Request.Categories,
			Source:     ev.Request.Source,
			State:      ev.State,
			StartedAt:  ev.StartedAt,
		}
		if err := h.store.CreateRun(run); err != nil {
			log.Error().Err(err).Str("run_id", ev.RunID).Msg("Failed to record run start")
		}
	case jobs.EventFinished:
		var outputFile *string
		if ev.OutputFile != "" {
			name := ev.OutputFile
			outputFile = &name
		}
		err := h.store.FinishRun(ev.RunID, ev.State, outputFile, ev.Error, ev.FinishedAt, ev.Products)
		if err != nil {
			log.Error().Err(err).Str("run_id", ev.RunID).Msg("Failed to record run result")
		}
	}
}
