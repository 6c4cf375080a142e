package crew

import (
	"finwiz/internal/domain/knowledge"
)

// Process is the per-crew scheduling policy.
type Process string

const (
	// ProcessSequential runs tasks one per batch, in declared order.
	ProcessSequential Process = "sequential"

	// ProcessParallel layers the dependency DAG into batches, running
	// independent tasks concurrently.
	ProcessParallel Process = "parallel"
)

// Valid checks if the process is known
func (p Process) Valid() bool {
	return p == ProcessSequential || p == ProcessParallel
}

// AgentRef identifies the worker assigned to a task: a role-and-goal-bound
// agent constructed from crew configuration.
type AgentRef struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	Tools     []string
}

// TaskDescriptor is one unit of work within a crew.
type TaskDescriptor struct {
	ID             string
	Description    string
	ExpectedOutput string
	Worker         AgentRef

	// DependsOn lists task ids whose outputs feed this task. The graph over
	// all tasks of a crew must be acyclic.
	DependsOn []string

	// AllowConcurrent marks the task as safe to run while later work is
	// prepared. In a sequential crew the terminal task must be synchronous.
	AllowConcurrent bool

	// OutputTarget names the artifact the task output is written to.
	OutputTarget string

	// Asset and Category tag the knowledge entry written from this task's
	// output.
	Asset    string
	Category knowledge.Category
}

// Definition is a named crew: its scheduling policy and tasks in declared
// order. Declaration order is the stable tie-break within a batch.
type Definition struct {
	Name    string
	Process Process
	Tasks   []TaskDescriptor
}

// Task returns the descriptor with the given id, or nil.
func (d *Definition) Task(id string) *TaskDescriptor {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// TaskIDs returns the ids of all tasks in declaration order.
func (d *Definition) TaskIDs() []string {
	ids := make([]string, 0, len(d.Tasks))
	for i := range d.Tasks {
		ids = append(ids, d.Tasks[i].ID)
	}
	return ids
}
