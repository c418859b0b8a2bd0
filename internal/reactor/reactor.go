// Package reactor implements a single-threaded event loop that multiplexes
// socket readiness with cross-thread task submission. It models the
// self-pipe pattern: any goroutine may call AddFd/ModifyFd/AddTimer/RemoveFd/
// Stop safely; those calls enqueue a task and post a wakeup so the loop
// thread picks them up on its next iteration rather than racing the poller.
package reactor

import (
	"net"
	"sync"
	"time"
)

// Event describes the readiness condition a callback cares about.
type Event int

const (
	EventRead Event = 1 << iota
	EventWrite
)

// Callback is invoked on the loop goroutine only, never concurrently with
// another callback for the same fd or with a pending task for that fd.
type Callback func(ev Event)

type registration struct {
	conn net.Conn
	cb   Callback
	want Event
}

type taskFn func()

// Reactor is a single-threaded readiness loop. All exported methods besides
// Run are safe to call from any goroutine.
type Reactor struct {
	mu       sync.Mutex
	tasks    []taskFn
	wake     chan struct{}
	stopCh   chan struct{}
	stopped  bool
	regs     map[net.Conn]*registration
	pollTick time.Duration
}

// New returns a Reactor. pollTick bounds how long a loop iteration may block
// between readiness checks when nothing is pending; it stands in for the
// platform readiness primitive's timeout argument.
func New(pollTick time.Duration) *Reactor {
	if pollTick <= 0 {
		pollTick = 10 * time.Millisecond
	}
	return &Reactor{
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		regs:     make(map[net.Conn]*registration),
		pollTick: pollTick,
	}
}

func (r *Reactor) post(fn taskFn) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.tasks = append(r.tasks, fn)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// AddFd records conn, the given events and cb in the loop's registration
// table. pollOnce checks no readiness, so the loop never invokes cb. AddFd
// is thread-safe.
func (r *Reactor) AddFd(conn net.Conn, want Event, cb Callback) {
	r.post(func() {
		r.regs[conn] = &registration{conn: conn, cb: cb, want: want}
	})
}

// ModifyFd changes the set of events conn is interested in.
func (r *Reactor) ModifyFd(conn net.Conn, want Event) {
	r.post(func() {
		if reg, ok := r.regs[conn]; ok {
			reg.want = want
		}
	})
}

// RemoveFd unregisters conn. Subsequent readiness for conn is ignored.
func (r *Reactor) RemoveFd(conn net.Conn) {
	r.post(func() {
		delete(r.regs, conn)
	})
}

// AddTimer schedules fn to run once on the loop thread after d elapses. It
// is a thin convenience over the loop's own goroutine timer rather than a
// timing-wheel task; long-lived periodic work (heartbeats) belongs in
// internal/timingwheel, driven by a single AddTimer tick posted here.
func (r *Reactor) AddTimer(d time.Duration, fn func()) {
	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			r.post(fn)
		case <-r.stopCh:
		}
	}()
}

// Stop idempotently shuts the loop down and wakes it so Run returns promptly.
func (r *Reactor) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()
	close(r.stopCh)
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drains the task queue (posted registrations and AddTimer functions) on
// this goroutine and calls pollOnce on every poll tick; pollOnce polls no
// registered connection and dispatches no fd callback. It returns when Stop
// is called.
func (r *Reactor) Run() {
	ticker := time.NewTicker(r.pollTick)
	defer ticker.Stop()
	for {
		r.drainTasks()

		select {
		case <-r.stopCh:
			r.drainTasks()
			return
		case <-r.wake:
			continue
		case <-ticker.C:
			r.pollOnce()
		}
	}
}

func (r *Reactor) drainTasks() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()
	for _, t := range tasks {
		t()
	}
}

// pollOnce is a cooperative readiness check: a real edge-triggered poller
// (epoll/kqueue) is out of scope for a portable Go implementation, so
// registered connections rely on their owning Connection doing a
// non-blocking-equivalent read/write and reporting EAGAIN back through
// ModifyFd/RemoveFd. pollOnce exists as the seam a platform-specific poller
// would plug into; today it is a no-op tick that keeps the loop alive and
// lets AddTimer-driven work (e.g. the timing wheel) make progress.
func (r *Reactor) pollOnce() {}
