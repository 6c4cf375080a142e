package crew

import (
	"finwiz/pkg/errors"
)

// Batch is an ordered set of task ids scheduled together. All dependencies of
// every task in a batch are satisfied by strictly earlier batches.
type Batch []string

// Schedule orders a crew's tasks into execution batches.
//
// Sequential crews emit one task per batch in declared order. Parallel crews
// are layered topologically: batch k holds every task whose dependencies are
// fully contained in batches 0..k-1, which yields the minimum number of
// batches and the maximum available parallelism. Ties within a batch keep
// declaration order.
//
// Schedule assumes Validate has passed; a dangling dependency still fails
// here rather than at execution time.
func Schedule(def *Definition) ([]Batch, error) {
	if def.Process == ProcessSequential {
		batches := make([]Batch, 0, len(def.Tasks))
		for i := range def.Tasks {
			batches = append(batches, Batch{def.Tasks[i].ID})
		}
		return batches, nil
	}

	known := make(map[string]struct{}, len(def.Tasks))
	for i := range def.Tasks {
		known[def.Tasks[i].ID] = struct{}{}
	}

	placed := make(map[string]int, len(def.Tasks)) // task id -> batch index
	remaining := len(def.Tasks)

	var batches []Batch
	for remaining > 0 {
		var batch Batch
		for i := range def.Tasks {
			t := &def.Tasks[i]
			if _, done := placed[t.ID]; done {
				continue
			}

			ready := true
			for _, dep := range t.DependsOn {
				if _, ok := known[dep]; !ok {
					return nil, errors.NewConfigError(def.Name, t.ID,
						"depends on unknown task "+dep, errors.ErrUnresolvedDependency)
				}
				idx, ok := placed[dep]
				if !ok || idx >= len(batches) {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, t.ID)
			}
		}

		if len(batch) == 0 {
			// No progress means a cycle survived validation.
			return nil, errors.NewConfigError(def.Name, "",
				"dependency graph contains a cycle", errors.ErrCyclicDependency)
		}

		for _, id := range batch {
			placed[id] = len(batches)
		}
		batches = append(batches, batch)
		remaining -= len(batch)
	}

	return batches, nil
}
