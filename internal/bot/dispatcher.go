package bot

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"whitelist-bot/internal/service/registration"
)

// HandleFunc processes one event.
type HandleFunc func(ctx context.Context, ev registration.Event)

type queued struct {
	ctx context.Context
	ev  registration.Event
}

// Dispatcher runs one ordered lane per user. Events of one user are handled
// in arrival order; different users are handled concurrently, bounded by the
// concurrency limit.
type Dispatcher struct {
	handle HandleFunc
	sem    *semaphore.Weighted

	mu    sync.Mutex
	lanes map[int64][]queued
	wg    sync.WaitGroup
}

func NewDispatcher(handle HandleFunc, concurrency int) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		handle: handle,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		lanes:  make(map[int64][]queued),
	}
}

// Dispatch queues ev on its user's lane and starts the lane if idle.
func (d *Dispatcher) Dispatch(ctx context.Context, ev registration.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, running := d.lanes[ev.UserID]
	d.lanes[ev.UserID] = append(queue, queued{ctx: ctx, ev: ev})
	if !running {
		d.wg.Add(1)
		go d.run(ev.UserID)
	}
}

func (d *Dispatcher) run(userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.lanes[userID]
		if len(queue) == 0 {
			delete(d.lanes, userID)
			d.mu.Unlock()
			return
		}
		next := queue[0]
		d.lanes[userID] = queue[1:]
		d.mu.Unlock()

		if next.ctx.Err() != nil {
			continue
		}
		if err := d.sem.Acquire(next.ctx, 1); err != nil {
			continue
		}
		d.handle(next.ctx, next.ev)
		d.sem.Release(1)
	}
}

// Wait blocks until every queued event has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
