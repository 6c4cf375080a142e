package crew

import (
	"finwiz/pkg/errors"
)

// Validate checks a crew definition before anything is executed. Violations
// are fatal at configuration-load time so that no tool or LLM call is spent
// on a doomed run.
//
// Checks:
//   - task ids are unique and non-empty
//   - every dependency references a task in the same crew
//   - the dependency graph is acyclic
//   - under the sequential policy, declared order is a topological order
//     (no task depends on a later one) and the terminal task is synchronous
//     (AllowConcurrent = false)
func Validate(def *Definition) error {
	if def == nil || def.Name == "" {
		return errors.NewConfigError("", "", "crew definition missing a name", nil)
	}
	if !def.Process.Valid() {
		return errors.NewConfigError(def.Name, "", "unknown process policy: "+string(def.Process), nil)
	}
	if len(def.Tasks) == 0 {
		return errors.NewConfigError(def.Name, "", "crew has no tasks", nil)
	}

	byID := make(map[string]*TaskDescriptor, len(def.Tasks))
	for i := range def.Tasks {
		t := &def.Tasks[i]
		if t.ID == "" {
			return errors.NewConfigError(def.Name, "", "task with empty id", nil)
		}
		if _, dup := byID[t.ID]; dup {
			return errors.NewConfigError(def.Name, t.ID, "duplicate task id", nil)
		}
		if t.Worker.Name == "" {
			return errors.NewConfigError(def.Name, t.ID, "task has no worker", nil)
		}
		byID[t.ID] = t
	}

	for i := range def.Tasks {
		t := &def.Tasks[i]
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return errors.NewConfigError(def.Name, t.ID,
					"depends on unknown task "+dep, errors.ErrUnresolvedDependency)
			}
			if dep == t.ID {
				return errors.NewConfigError(def.Name, t.ID,
					"task depends on itself", errors.ErrCyclicDependency)
			}
		}
	}

	if cycle := findCycle(def); cycle != "" {
		return errors.NewConfigError(def.Name, cycle,
			"dependency graph contains a cycle", errors.ErrCyclicDependency)
	}

	if def.Process == ProcessSequential {
		// Sequential crews execute in declared order, so a dependency on a
		// later task could never be satisfied when its dependent runs.
		position := make(map[string]int, len(def.Tasks))
		for i := range def.Tasks {
			position[def.Tasks[i].ID] = i
		}
		for i := range def.Tasks {
			t := &def.Tasks[i]
			for _, dep := range t.DependsOn {
				if position[dep] > i {
					return errors.NewConfigError(def.Name, t.ID,
						"depends on later task "+dep+"; declared order must satisfy dependencies", nil)
				}
			}
		}

		terminal := &def.Tasks[len(def.Tasks)-1]
		if terminal.AllowConcurrent {
			return errors.NewConfigError(def.Name, terminal.ID,
				"terminal task of a sequential crew must be synchronous", nil)
		}
	}

	return nil
}

// findCycle runs a three-color DFS over the dependency graph and returns the
// id of a task on a cycle, or "".
func findCycle(def *Definition) string {
	const (
		white = 0 // unvisited
		gray  = 1 // on stack
		black = 2 // done
	)

	color := make(map[string]int, len(def.Tasks))
	deps := make(map[string][]string, len(def.Tasks))
	for i := range def.Tasks {
		deps[def.Tasks[i].ID] = def.Tasks[i].DependsOn
	}

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for i := range def.Tasks {
		id := def.Tasks[i].ID
		if color[id] == white {
			if hit := visit(id); hit != "" {
				return hit
			}
		}
	}

	return ""
}
