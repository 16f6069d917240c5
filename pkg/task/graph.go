package task

import (
	"errors"
	"fmt"
)

// Graph errors.
var (
	ErrDuplicateTask = errors.New("duplicate task name")
	ErrUnknownTask   = errors.New("task not found")
	ErrCycle         = errors.New("cycle detected")
	ErrFrozen        = errors.New("graph already started")
)

// Graph is a declarative DAG of tasks. Edges point from an upstream task to
// the task that waits for it.
type Graph struct {
	tasks  []*Task
	byName map[string]*Task
	frozen bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*Task)}
}

// Add registers a task.
func (g *Graph) Add(t *Task) error {
	if g.frozen {
		return ErrFrozen
	}
	if _, ok := g.byName[t.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.name)
	}
	g.byName[t.name] = t
	g.tasks = append(g.tasks, t)
	return nil
}

// AddEdge makes to wait for from.
func (g *Graph) AddEdge(from, to string) error {
	if g.frozen {
		return ErrFrozen
	}
	if from == to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", from, to)
	}
	up, ok := g.byName[from]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrUnknownTask, from)
	}
	down, ok := g.byName[to]
	if !ok {
		return fmt.Errorf("%w: destination %s", ErrUnknownTask, to)
	}
	for _, existing := range down.waitFor {
		if existing == up {
			return nil
		}
	}
	down.waitFor = append(down.waitFor, up)
	return nil
}

// Task looks a task up by name.
func (g *Graph) Task(name string) (*Task, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Tasks returns all tasks in insertion order.
func (g *Graph) Tasks() []*Task {
	out := make([]*Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.tasks) }

// DetectCycles returns an error naming a task on a cycle, if any.
func (g *Graph) DetectCycles() error {
	_, err := g.Order()
	return err
}

// Order returns the tasks in dependency order. Among tasks whose upstreams
// are all placed, insertion order decides.
func (g *Graph) Order() ([]*Task, error) {
	const (
		unvisited = iota
		visiting
		visited
	)
	mark := make(map[*Task]int, len(g.tasks))
	order := make([]*Task, 0, len(g.tasks))

	var visit func(t *Task) error
	visit = func(t *Task) error {
		switch mark[t] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w involving task '%s'", ErrCycle, t.name)
		}
		mark[t] = visiting
		for _, up := range t.waitFor {
			if err := visit(up); err != nil {
				return err
			}
		}
		mark[t] = visited
		order = append(order, t)
		return nil
	}

	for _, t := range g.tasks {
		if err := visit(t); err != nil {
			return nil, err
		}
	}
	return order, nil
}
