package events

import (
	"context"
	"time"

	"finwiz/internal/adapters/kafka"
	"finwiz/internal/crew"
	"finwiz/pkg/logger"
)

// RunStartedEvent announces that a crew run has been kicked off.
type RunStartedEvent struct {
	RunID   string    `json:"run_id"`
	Crew    string    `json:"crew"`
	Batches int       `json:"batches"`
	Tasks   int       `json:"tasks"`
	At      time.Time `json:"at"`
}

// TaskFinishedEvent reports one task reaching a terminal state.
type TaskFinishedEvent struct {
	RunID      string    `json:"run_id"`
	Crew       string    `json:"crew"`
	TaskID     string    `json:"task_id"`
	State      string    `json:"state"`
	Attempts   int       `json:"attempts"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// RunFinishedEvent reports the end-of-run summary.
type RunFinishedEvent struct {
	RunID     string    `json:"run_id"`
	Crew      string    `json:"crew"`
	Succeeded []string  `json:"succeeded"`
	Failed    []string  `json:"failed,omitempty"`
	Skipped   []string  `json:"skipped,omitempty"`
	At        time.Time `json:"at"`
}

// KnowledgePrunedEvent reports a retention sweep.
type KnowledgePrunedEvent struct {
	Pruned int64     `json:"pruned"`
	At     time.Time `json:"at"`
}

// Publisher publishes run lifecycle events to Kafka. It implements
// crew.RunObserver; publish failures are logged, never propagated into the
// run.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// RunStarted publishes a run kickoff event.
func (p *Publisher) RunStarted(ctx context.Context, run *crew.Run) {
	tasks := 0
	for _, batch := range run.Batches {
		tasks += len(batch)
	}

	p.publish(ctx, kafka.TopicRunStarted, run.ID.String(), RunStartedEvent{
		RunID:   run.ID.String(),
		Crew:    run.Crew,
		Batches: len(run.Batches),
		Tasks:   tasks,
		At:      time.Now().UTC(),
	})
}

// TaskFinished publishes a task terminal-state event.
func (p *Publisher) TaskFinished(ctx context.Context, run *crew.Run, result *crew.TaskResult) {
	event := TaskFinishedEvent{
		RunID:      run.ID.String(),
		Crew:       run.Crew,
		TaskID:     result.TaskID,
		State:      string(result.State),
		Attempts:   result.Attempts,
		DurationMs: result.Duration.Milliseconds(),
		At:         time.Now().UTC(),
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}

	p.publish(ctx, kafka.TopicTaskFinished, run.ID.String(), event)
}

// RunFinished publishes the end-of-run summary.
func (p *Publisher) RunFinished(ctx context.Context, run *crew.Run) {
	summary := run.Summarize()

	p.publish(ctx, kafka.TopicRunFinished, run.ID.String(), RunFinishedEvent{
		RunID:     run.ID.String(),
		Crew:      run.Crew,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		At:        time.Now().UTC(),
	})
}

// KnowledgePruned publishes a retention sweep result.
func (p *Publisher) KnowledgePruned(ctx context.Context, pruned int64) {
	p.publish(ctx, kafka.TopicKnowledgePruned, "sweep", KnowledgePrunedEvent{
		Pruned: pruned,
		At:     time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) {
	if p.producer == nil {
		return
	}
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Warnf("Failed to publish %s event: %v", topic, err)
	}
}
