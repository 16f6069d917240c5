package importer

import (
	"context"

	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// Job is an asynchronous import in progress. It must be driven from a
// single goroutine.
type Job struct {
	pipeline   *pipeline
	run        *task.Run
	onFinished func(*Result, error)

	done   bool
	result *Result
	err    error
}

// Pump advances the import without blocking: it runs pending foreground
// phases and schedules ready stages. It returns true once the import has
// ended; the result is then available from Result.
func (j *Job) Pump() bool {
	if j.done {
		return true
	}
	if done, err := j.run.Pump(); done {
		j.complete(err)
	}
	return j.done
}

// Wait drives the import to the end and returns its result. If ctx is
// cancelled first the import is abandoned and ctx's error returned.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	if !j.done {
		j.complete(j.run.Wait(ctx))
	}
	return j.result, j.err
}

// Done reports whether the import has ended.
func (j *Job) Done() bool { return j.done }

// Progress returns the overall fraction reached so far.
func (j *Job) Progress() float64 { return j.pipeline.exec.Progress() }

// Result returns the outcome of an ended import. Before the end it returns
// nil and a nil error.
func (j *Job) Result() (*Result, error) { return j.result, j.err }

func (j *Job) complete(err error) {
	defer j.pipeline.assets.Close()
	j.done = true
	if err != nil {
		j.err = j.pipeline.fail(err)
	} else {
		j.result = j.pipeline.finish()
	}
	if j.onFinished != nil {
		j.onFinished(j.result, j.err)
	}
}
