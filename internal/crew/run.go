package crew

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"finwiz/pkg/errors"
)

// TaskState is the lifecycle state of one task within a run.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskSkipped   TaskState = "skipped"
)

// TaskResult records the outcome of one task execution.
type TaskResult struct {
	TaskID   string
	State    TaskState
	Output   string
	Err      error
	Attempts int
	Duration time.Duration
}

// Run aggregates a crew's batches, task states, and outputs for one workflow
// execution. It is created at kickoff, mutated as batches complete, and
// finalized when the terminal batch finishes or the run fails.
type Run struct {
	ID      uuid.UUID
	Crew    string
	Batches []Batch

	Started time.Time
	Ended   time.Time

	mu      sync.Mutex
	results map[string]*TaskResult
}

// NewRun creates a run for the given crew and schedule.
func NewRun(crew string, batches []Batch) *Run {
	return &Run{
		ID:      uuid.New(),
		Crew:    crew,
		Batches: batches,
		Started: time.Now(),
		results: make(map[string]*TaskResult),
	}
}

// Record stores a task result.
func (r *Run) Record(res *TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[res.TaskID] = res
}

// Result returns the recorded result for a task id, or nil.
func (r *Run) Result(taskID string) *TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[taskID]
}

// Output returns the output of a succeeded task.
func (r *Run) Output(taskID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[taskID]
	if !ok || res.State != TaskSucceeded {
		return "", false
	}
	return res.Output, true
}

// FinalOutput returns the output of the terminal batch's last task.
func (r *Run) FinalOutput() (string, bool) {
	if len(r.Batches) == 0 {
		return "", false
	}
	last := r.Batches[len(r.Batches)-1]
	if len(last) == 0 {
		return "", false
	}
	return r.Output(last[len(last)-1])
}

// Summary partitions task ids by terminal state, in schedule order.
type Summary struct {
	Succeeded []string
	Failed    []string
	Skipped   []string
}

// Summarize builds the end-of-run summary.
func (r *Run) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s Summary
	for _, batch := range r.Batches {
		for _, id := range batch {
			res, ok := r.results[id]
			if !ok {
				s.Skipped = append(s.Skipped, id)
				continue
			}
			switch res.State {
			case TaskSucceeded:
				s.Succeeded = append(s.Succeeded, id)
			case TaskFailed:
				s.Failed = append(s.Failed, id)
			default:
				s.Skipped = append(s.Skipped, id)
			}
		}
	}
	return s
}

// Err returns nil for a fully successful run, or a PartialRunFailure listing
// failed tasks and the dependents skipped because of them.
func (r *Run) Err() error {
	s := r.Summarize()
	if len(s.Failed) == 0 && len(s.Skipped) == 0 {
		return nil
	}
	return &errors.PartialRunFailure{Crew: r.Crew, Failed: s.Failed, Skipped: s.Skipped}
}
