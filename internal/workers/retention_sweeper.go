package workers

import (
	"context"
	"time"

	"finwiz/internal/domain/knowledge"
	"finwiz/internal/events"
	"finwiz/internal/metrics"
	"finwiz/pkg/logger"
)

// RetentionSweeper periodically soft-deletes knowledge entries past their
// category's retention window.
type RetentionSweeper struct {
	know     *knowledge.Service
	events   *events.Publisher
	interval time.Duration
	log      *logger.Logger
}

// NewRetentionSweeper creates the sweep worker. events may be nil.
func NewRetentionSweeper(know *knowledge.Service, publisher *events.Publisher, interval time.Duration) *RetentionSweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionSweeper{
		know:     know,
		events:   publisher,
		interval: interval,
		log:      logger.Get().With("worker", "retention_sweeper"),
	}
}

func (w *RetentionSweeper) Name() string            { return "retention_sweeper" }
func (w *RetentionSweeper) Interval() time.Duration { return w.interval }
func (w *RetentionSweeper) Enabled() bool           { return w.know != nil }

// Run performs one retention sweep.
func (w *RetentionSweeper) Run(ctx context.Context) error {
	pruned, err := w.know.Prune(ctx, time.Now())
	if err != nil {
		return err
	}

	if pruned > 0 {
		w.log.Infof("Pruned %d expired knowledge entries", pruned)
		metrics.KnowledgePruned.Add(float64(pruned))
		if w.events != nil {
			w.events.KnowledgePruned(ctx, pruned)
		}
	}
	return nil
}
