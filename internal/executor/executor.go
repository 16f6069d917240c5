// Package executor turns decode stages into a task graph and runs it,
// either to completion on the calling goroutine or as a pumped background
// run.
package executor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/decode"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// Mode selects how stages are executed.
type Mode int

const (
	// Sync runs every stage in dependency order on the calling goroutine.
	Sync Mode = iota
	// Async runs background phases on a bounded worker pool while the
	// caller pumps foreground phases.
	Async
)

func (m Mode) String() string {
	if m == Async {
		return "async"
	}
	return "sync"
}

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "sync":
		return Sync, nil
	case "async":
		return Async, nil
	default:
		return Sync, fmt.Errorf("unknown import mode %q", s)
	}
}

// Options configures an Executor.
type Options struct {
	Workers int

	// OnProgress receives the overall import fraction. Calls are made on
	// the goroutine driving the run and never decrease.
	OnProgress func(fraction float64)

	// OnStageProgress receives each stage's own fraction. Values per stage
	// never decrease and reach 1.0 exactly once, when the stage completes.
	OnStageProgress func(stage string, fraction float64)

	Logger *zap.Logger
}

// Executor owns the task graph of one import.
type Executor struct {
	graph   *task.Graph
	stages  *decode.Stages
	opts    Options
	log     *zap.Logger
	overall *Overall
}

// New builds the graph for stages.
func New(stages *decode.Stages, opts Options) (*Executor, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	defs := stages.Definitions()
	g := task.NewGraph()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if err := g.Add(task.New(d.Name, d.Background, d.Foreground)); err != nil {
			return nil, err
		}
		names = append(names, d.Name)
	}
	for _, d := range defs {
		for _, up := range d.Upstream {
			if err := g.AddEdge(up, d.Name); err != nil {
				return nil, fmt.Errorf("stage %s: %w", d.Name, err)
			}
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	return &Executor{
		graph:   g,
		stages:  stages,
		opts:    opts,
		log:     log,
		overall: NewOverall(names),
	}, nil
}

// Graph returns the underlying task graph.
func (e *Executor) Graph() *task.Graph { return e.graph }

// Stages returns the stage results.
func (e *Executor) Stages() *decode.Stages { return e.stages }

// Progress returns the current overall fraction.
func (e *Executor) Progress() float64 { return e.overall.Fraction() }

func (e *Executor) taskOptions() task.Options {
	return task.Options{
		Workers: e.opts.Workers,
		Logger:  e.log,
		OnProgress: func(stage string, f float64) {
			if e.opts.OnStageProgress != nil {
				e.opts.OnStageProgress(stage, f)
			}
			if v, changed := e.overall.Update(stage, f); changed && e.opts.OnProgress != nil {
				e.opts.OnProgress(v)
			}
		},
	}
}

// Run executes every stage on the calling goroutine.
func (e *Executor) Run(ctx context.Context) error {
	e.log.Debug("running stages", zap.Int("stages", e.graph.Len()), zap.Stringer("mode", Sync))
	return e.graph.RunSync(ctx, e.taskOptions())
}

// Start launches an asynchronous run. The caller drives it with Pump or
// Wait on the returned run.
func (e *Executor) Start(ctx context.Context) (*task.Run, error) {
	e.log.Debug("starting stages", zap.Int("stages", e.graph.Len()), zap.Stringer("mode", Async))
	return e.graph.Start(ctx, e.taskOptions())
}

// Overall folds per-stage progress into one fraction, the mean of all
// stage fractions.
type Overall struct {
	mu     sync.Mutex
	stages map[string]float64
	last   float64
}

// NewOverall tracks the named stages.
func NewOverall(stages []string) *Overall {
	o := &Overall{stages: make(map[string]float64, len(stages))}
	for _, s := range stages {
		o.stages[s] = 0
	}
	return o
}

// Update records a stage fraction and returns the new overall fraction and
// whether it increased. Unknown stages are ignored.
func (o *Overall) Update(stage string, f float64) (float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prev, ok := o.stages[stage]
	if !ok || f <= prev {
		return o.last, false
	}
	o.stages[stage] = min(f, 1)

	var sum float64
	for _, v := range o.stages {
		sum += v
	}
	v := sum / float64(len(o.stages))
	if v <= o.last {
		return o.last, false
	}
	o.last = v
	return v, true
}

// Fraction returns the last reported overall fraction.
func (o *Overall) Fraction() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}
