package task

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a run.
type Options struct {
	// Workers bounds concurrent background phases. Zero means GOMAXPROCS.
	Workers int

	// OnProgress, if set, is called on the driving goroutine with each
	// task's progress. Values per task never decrease and 1.0 is delivered
	// exactly once, when the task completes.
	OnProgress func(task string, fraction float64)

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) emit(t *Task, v float64) {
	if o.OnProgress != nil {
		o.OnProgress(t.name, v)
	}
}

// flush delivers any pending progress for t.
func (o Options) flush(t *Task) {
	if v, ok := t.progress.pending(); ok {
		o.emit(t, v)
	}
}

// RunSync runs every task to completion on the calling goroutine, strictly in
// dependency order. The first failure stops the run.
func (g *Graph) RunSync(ctx context.Context, opts Options) error {
	order, err := g.Order()
	if err != nil {
		return err
	}
	g.frozen = true
	log := opts.logger()

	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.transition(Ready); err != nil {
			return err
		}
		if err := t.transition(Running); err != nil {
			return err
		}
		log.Debug("stage started", zap.String("stage", t.name))

		report := func(f float64) {
			t.backgroundReport(f)
			opts.flush(t)
		}
		if t.background != nil {
			if err := t.background(ctx, report); err != nil {
				t.fail(err)
				return fmt.Errorf("%s: %w", t.name, err)
			}
		}
		if err := g.finalize(t, opts); err != nil {
			return err
		}
		log.Debug("stage completed",
			zap.String("stage", t.name),
			zap.Duration("elapsed", t.CompletedAt().Sub(t.StartedAt())))
	}
	return nil
}

// finalize runs the foreground phase and completes t.
func (g *Graph) finalize(t *Task, opts Options) error {
	if err := t.transition(Finalizing); err != nil {
		return err
	}
	report := func(f float64) {
		t.foregroundReport(f)
		opts.flush(t)
	}
	if t.foreground != nil {
		if err := t.foreground(primaryContext{stage: t.name}, report); err != nil {
			t.fail(err)
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	if err := t.transition(Completed); err != nil {
		return err
	}
	if t.progress.complete() {
		opts.emit(t, 1)
	}
	return nil
}

type finished struct {
	task *Task
	err  error
}

// Run is an asynchronous execution of a graph. Background phases run on a
// bounded worker pool; foreground phases run inside Pump or Wait, on the
// caller's goroutine.
type Run struct {
	graph *Graph
	opts  Options
	log   *zap.Logger
	order []*Task

	ctx    context.Context
	group  *errgroup.Group
	events chan finished

	launched  map[*Task]bool
	remaining int
	done      bool
	err       error
	drained   chan struct{}
}

// Start launches an asynchronous run. Nothing executes until Pump or Wait
// is called.
func (g *Graph) Start(ctx context.Context, opts Options) (*Run, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	g.frozen = true

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	return &Run{
		graph:     g,
		opts:      opts,
		log:       opts.logger(),
		order:     order,
		ctx:       gctx,
		group:     group,
		events:    make(chan finished, len(order)),
		launched:  make(map[*Task]bool, len(order)),
		remaining: len(order),
		drained:   make(chan struct{}),
	}, nil
}

// Pump performs all work that is possible without blocking: it finalizes
// tasks whose background phase has finished and launches newly ready ones.
// It returns true once the run has ended.
func (r *Run) Pump() (bool, error) {
	if r.done {
		return true, r.err
	}
drain:
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		default:
			break drain
		}
	}
	if r.done {
		return true, r.err
	}
	r.schedule()
	return r.done, r.err
}

// Wait drives the run to the end, blocking between events. It returns after
// every launched background phase has returned.
func (r *Run) Wait(ctx context.Context) error {
	for {
		if done, _ := r.Pump(); done {
			break
		}
		select {
		case ev := <-r.events:
			r.handle(ev)
		case <-r.ctx.Done():
			// Failed backgrounds cancel the context; their events are
			// handled by Pump before the cancellation itself.
			r.Pump()
		case <-ctx.Done():
			r.end(ctx.Err())
		}
	}
	select {
	case <-r.drained:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.err
}

// Done reports whether the run has ended.
func (r *Run) Done() bool { return r.done }

// Err returns the error that ended the run, if any.
func (r *Run) Err() error { return r.err }

func (r *Run) handle(ev finished) {
	if r.done {
		return
	}
	t := ev.task
	if ev.err != nil {
		t.fail(ev.err)
		r.end(fmt.Errorf("%s: %w", t.name, ev.err))
		return
	}
	r.opts.flush(t)
	if err := r.graph.finalize(t, r.opts); err != nil {
		r.end(err)
		return
	}
	r.log.Debug("stage completed",
		zap.String("stage", t.name),
		zap.Duration("elapsed", t.CompletedAt().Sub(t.StartedAt())))
	r.remaining--
	if r.remaining == 0 {
		r.end(nil)
	}
}

// schedule launches every ready task the pool has room for.
func (r *Run) schedule() {
	if r.checkCancel() {
		return
	}
	for _, t := range r.order {
		switch t.State() {
		case Created:
			if !t.IsReady() {
				continue
			}
			if err := t.transition(Ready); err != nil {
				r.end(err)
				return
			}
		case Ready:
			if r.launched[t] {
				continue
			}
		case Running:
			r.opts.flush(t)
			continue
		default:
			continue
		}
		if !r.launch(t) {
			// Pool is full; a finishing task will wake us.
			return
		}
	}
}

func (r *Run) launch(t *Task) bool {
	ok := r.group.TryGo(func() error {
		err := r.runBackground(t)
		r.events <- finished{task: t, err: err}
		return err
	})
	if ok {
		r.launched[t] = true
	}
	return ok
}

func (r *Run) runBackground(t *Task) error {
	if err := t.transition(Running); err != nil {
		return err
	}
	r.log.Debug("stage started", zap.String("stage", t.name))
	if t.background == nil {
		return nil
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return t.background(r.ctx, t.backgroundReport)
}

// checkCancel ends the run if its context is done. Background phases that
// are already running are left to finish on their own.
func (r *Run) checkCancel() bool {
	if r.done {
		return true
	}
	if err := r.ctx.Err(); err != nil {
		r.end(context.Cause(r.ctx))
		return true
	}
	return false
}

func (r *Run) end(err error) {
	if r.done {
		return
	}
	r.done = true
	r.err = err
	if err != nil {
		r.log.Debug("run ended", zap.Error(err))
	}
	go func() {
		start := time.Now()
		_ = r.group.Wait()
		r.log.Debug("workers drained", zap.Duration("waited", time.Since(start)))
		close(r.drained)
	}()
}
