package crew

import (
	"context"
	"sync"
	"time"

	"finwiz/internal/domain/knowledge"
	"finwiz/internal/metrics"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

// Invoker is the opaque worker/tool layer. The coordinator does not know how
// an invocation is fulfilled (search API, scraper, LLM).
type Invoker interface {
	Invoke(ctx context.Context, task TaskDescriptor, input Input) (string, error)
}

// Input is the context handed to a task invocation: the outputs of the tasks
// it declared dependencies on, keyed by task id.
type Input struct {
	RunID   string
	Crew    string
	Outputs map[string]string
}

// RunObserver receives task lifecycle notifications. Implementations include
// the audit log and the event publisher; a nil observer is skipped.
type RunObserver interface {
	RunStarted(ctx context.Context, run *Run)
	TaskFinished(ctx context.Context, run *Run, result *TaskResult)
	RunFinished(ctx context.Context, run *Run)
}

// Config bounds retries, backoff, timeouts, and intra-batch concurrency.
type Config struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	TaskTimeout    time.Duration
	MaxConcurrency int
}

// Coordinator executes crew runs batch by batch. Each batch is a
// synchronization barrier: no task of batch k+1 starts before every task of
// batch k reached a terminal state, which also makes knowledge writes from
// batch k visible to queries from batch k+1.
type Coordinator struct {
	invoker   Invoker
	know      *knowledge.Service
	cfg       Config
	observers []RunObserver
	log       *logger.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(invoker Invoker, know *knowledge.Service, cfg Config, observers ...RunObserver) *Coordinator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}

	return &Coordinator{
		invoker:   invoker,
		know:      know,
		cfg:       cfg,
		observers: observers,
		log:       logger.Get().With("component", "coordinator"),
	}
}

// Execute validates, schedules, and runs a crew. The returned Run is always
// non-nil once scheduling succeeds; the error is a PartialRunFailure when some
// tasks failed or were skipped, and a configuration error before any
// execution started.
func (c *Coordinator) Execute(ctx context.Context, def *Definition) (*Run, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	batches, err := Schedule(def)
	if err != nil {
		return nil, err
	}

	run := NewRun(def.Name, batches)
	log := c.log.With("crew", def.Name, "run", run.ID.String())
	log.Infof("Starting crew run: %d tasks in %d batches", len(def.Tasks), len(batches))

	for _, obs := range c.observers {
		obs.RunStarted(ctx, run)
	}

	cancelled := false
	for i, batch := range batches {
		if ctx.Err() != nil {
			cancelled = true
			c.skipBatch(ctx, run, def, batch, errors.ErrRunCancelled)
			continue
		}

		log.Debugf("Executing batch %d/%d: %v", i+1, len(batches), batch)
		c.executeBatch(ctx, run, def, batch)
	}

	run.Ended = time.Now()

	summary := run.Summarize()
	log.Infof("Crew run complete: %d succeeded, %d failed, %d skipped (duration: %v)",
		len(summary.Succeeded), len(summary.Failed), len(summary.Skipped), run.Ended.Sub(run.Started))

	for _, obs := range c.observers {
		obs.RunFinished(ctx, run)
	}

	if cancelled {
		return run, errors.Wrap(errors.ErrRunCancelled, "crew "+def.Name)
	}
	return run, run.Err()
}

// executeBatch runs every runnable task of a batch concurrently and waits for
// all of them. Tasks whose dependencies did not succeed are skipped without
// being launched.
func (c *Coordinator) executeBatch(ctx context.Context, run *Run, def *Definition, batch Batch) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.cfg.MaxConcurrency)

	for _, id := range batch {
		task := def.Task(id)

		if failedDep := c.failedDependency(run, task); failedDep != "" {
			c.recordSkip(ctx, run, task, errors.Wrapf(errors.ErrTaskSkipped, "dependency %s", failedDep))
			continue
		}

		wg.Add(1)
		go func(task *TaskDescriptor) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			result := c.runTask(ctx, run, def, task)
			run.Record(result)

			if result.State == TaskSucceeded {
				c.storeOutput(ctx, run, task, result)
			}

			for _, obs := range c.observers {
				obs.TaskFinished(ctx, run, result)
			}
		}(task)
	}

	// Batch barrier
	wg.Wait()
}

// runTask invokes a task with bounded retry, exponential backoff, and a
// wall-clock timeout per attempt. A timeout counts as a tool failure.
func (c *Coordinator) runTask(ctx context.Context, run *Run, def *Definition, task *TaskDescriptor) *TaskResult {
	input := Input{
		RunID:   run.ID.String(),
		Crew:    def.Name,
		Outputs: make(map[string]string, len(task.DependsOn)),
	}
	for _, dep := range task.DependsOn {
		if out, ok := run.Output(dep); ok {
			input.Outputs[dep] = out
		}
	}

	start := time.Now()
	backoff := c.cfg.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
		output, err := c.invoker.Invoke(attemptCtx, *task, input)
		cancel()

		if err == nil {
			metrics.TaskExecutions.WithLabelValues(def.Name, string(TaskSucceeded)).Inc()
			metrics.TaskDuration.WithLabelValues(def.Name).Observe(time.Since(start).Seconds())
			return &TaskResult{
				TaskID:   task.ID,
				State:    TaskSucceeded,
				Output:   output,
				Attempts: attempt,
				Duration: time.Since(start),
			}
		}

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Wrapf(errors.ErrTimeout, "task %s attempt %d", task.ID, attempt)
		}
		lastErr = err

		// The parent context going away ends the run; retrying is pointless.
		if ctx.Err() != nil {
			break
		}

		c.log.Warnf("Task %s attempt %d/%d failed: %v", task.ID, attempt, c.cfg.MaxRetries, err)
		metrics.TaskRetries.WithLabelValues(def.Name).Inc()

		if attempt < c.cfg.MaxRetries {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	metrics.TaskExecutions.WithLabelValues(def.Name, string(TaskFailed)).Inc()
	return &TaskResult{
		TaskID:   task.ID,
		State:    TaskFailed,
		Err:      errors.Wrapf(lastErr, "task %s exhausted %d attempts", task.ID, c.cfg.MaxRetries),
		Attempts: c.cfg.MaxRetries,
		Duration: time.Since(start),
	}
}

// storeOutput writes a succeeded task's output to the knowledge store, tagged
// with the task's category and the current timestamp. A rejected entry does
// not fail the task.
func (c *Coordinator) storeOutput(ctx context.Context, run *Run, task *TaskDescriptor, result *TaskResult) {
	if c.know == nil || task.Category == "" {
		return
	}

	_, err := c.know.Put(ctx, &knowledge.Entry{
		Asset:      task.Asset,
		Source:     run.Crew + "/" + task.ID,
		Category:   task.Category,
		Content:    result.Output,
		Confidence: taskOutputConfidence,
		Timestamp:  time.Now(),
	})
	if err != nil {
		c.log.Warnf("Knowledge write for task %s rejected: %v", task.ID, err)
		return
	}
	metrics.KnowledgeWrites.WithLabelValues(string(task.Category)).Inc()
}

// taskOutputConfidence is the default confidence for entries produced by task
// outputs, below manually curated evergreen facts.
const taskOutputConfidence = 0.8

// failedDependency returns the id of a dependency that did not succeed, or "".
func (c *Coordinator) failedDependency(run *Run, task *TaskDescriptor) string {
	for _, dep := range task.DependsOn {
		res := run.Result(dep)
		if res == nil || res.State != TaskSucceeded {
			return dep
		}
	}
	return ""
}

// recordSkip marks a task skipped and notifies observers.
func (c *Coordinator) recordSkip(ctx context.Context, run *Run, task *TaskDescriptor, reason error) {
	result := &TaskResult{TaskID: task.ID, State: TaskSkipped, Err: reason}
	run.Record(result)
	metrics.TaskExecutions.WithLabelValues(run.Crew, string(TaskSkipped)).Inc()
	for _, obs := range c.observers {
		obs.TaskFinished(ctx, run, result)
	}
}

// skipBatch marks every task of a batch skipped, used after cancellation.
func (c *Coordinator) skipBatch(ctx context.Context, run *Run, def *Definition, batch Batch, reason error) {
	for _, id := range batch {
		c.recordSkip(ctx, run, def.Task(id), reason)
	}
}
