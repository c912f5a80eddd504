package refresh

import (
	"context"
	"sync"
	"time"
)

// Job asks for one snapshot scope (a city or the all-cities scope) to be
// reloaded from the source.
type Job struct {
	Scope string
}

// Refresher is a bounded queue drained by a fixed set of workers. A scope is
// queued at most once until its job finishes.
type Refresher struct {
	ch      chan Job
	inFly   sync.Map // scope -> struct{}
	timeout time.Duration
	Do      func(ctx context.Context, j Job)
}

// New starts workerCount workers that live until ctx is cancelled.
func New(ctx context.Context, capacity, workerCount int, timeout time.Duration, do func(ctx context.Context, j Job)) *Refresher {
	if capacity <= 0 {
		capacity = 256
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r := &Refresher{ch: make(chan Job, capacity), timeout: timeout, Do: do}
	for i := 0; i < workerCount; i++ {
		go r.worker(ctx)
	}
	return r
}

// Enqueue reports whether the job was accepted. Jobs for a scope already in
// flight are ignored; a saturated queue drops the job.
func (r *Refresher) Enqueue(j Job) bool {
	if _, exists := r.inFly.LoadOrStore(j.Scope, struct{}{}); exists {
		return false
	}
	select {
	case r.ch <- j:
		return true
	default:
		r.inFly.Delete(j.Scope)
		return false
	}
}

func (r *Refresher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-r.ch:
			r.run(ctx, j)
		}
	}
}

func (r *Refresher) run(parent context.Context, j Job) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer func() {
		r.inFly.Delete(j.Scope)
		cancel()
	}()
	if r.Do != nil {
		r.Do(ctx, j)
	}
}
