// Package scheduler implements the cooperative, single-threaded I/O
// scheduler described in spec.md §4.3: a FIFO ready queue of tasks plus
// a readiness table keyed by (socket, direction), driven by one OS
// readiness primitive (epoll on Linux — see poller_linux.go).
//
// A Task never blocks and is resumed at most once per scheduler tick;
// it reports the single wait descriptor (Want) it needs satisfied
// before its next resumption, or that it has terminated. This mirrors
// app/scheduler.py's generator-based Task/Event pair one-for-one, minus
// the generator syntax Go does not have — each Task is a hand-rolled
// continuation closure instead.
package scheduler

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Direction is the readiness a Task is waiting for.
type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Want is the wait descriptor a Task yields: the socket and the
// direction of readiness it needs before it can be resumed again.
type Want struct {
	FD  int
	Dir Direction
}

// Task is a suspendable unit of work. Resume runs synchronous work up to
// the next suspension point and returns the Want to park on together
// with the continuation to resume when that Want is satisfied, or
// done=true if the task has finished and should be dropped. next is
// usually a different closure than the receiver — each suspension
// point in the handler chain is its own continuation, the hand-rolled
// equivalent of a generator remembering where a yield left off.
type Task interface {
	Resume() (want Want, next Task, done bool)
}

// TaskFunc adapts a plain closure to the Task interface.
type TaskFunc func() (Want, Task, bool)

// Resume implements Task.
func (f TaskFunc) Resume() (Want, Task, bool) { return f() }

// Scheduler owns the ready queue and the readiness table and runs the
// single-threaded event loop. It is not safe for concurrent use — by
// design, it has exactly one caller: its own Run goroutine.
type Scheduler struct {
	logger *zap.Logger
	poller poller

	ready        []Task
	readWaiters  map[int]Task
	writeWaiters map[int]Task
	armed        map[int]Direction

	wakeR, wakeW int
	stopping     atomic.Bool
}

// New constructs a Scheduler backed by the platform readiness primitive.
func New(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p, wakeR, wakeW, err := newPoller()
	if err != nil {
		return nil, fmt.Errorf("scheduler: create poller: %w", err)
	}
	s := &Scheduler{
		logger:       logger,
		poller:       p,
		readWaiters:  make(map[int]Task),
		writeWaiters: make(map[int]Task),
		armed:        make(map[int]Direction),
		wakeR:        wakeR,
		wakeW:        wakeW,
	}
	return s, nil
}

// Spawn places a new task at the tail of the ready queue. Per spec.md
// §4.3 this gives it a first chance to produce its initial Want; it does
// not interrupt whatever task is currently resuming.
func (s *Scheduler) Spawn(t Task) {
	s.ready = append(s.ready, t)
}

// Cancel removes any readiness-table entry for fd, dropping the waiter
// task that was parked on it. This is the best-effort scrub spec.md
// §4.3 describes: a task of the same client already sitting in the
// ready queue is not reached here and must notice its own cancellation
// on its next resumption.
func (s *Scheduler) Cancel(fd int) {
	delete(s.readWaiters, fd)
	delete(s.writeWaiters, fd)
	if _, ok := s.armed[fd]; ok {
		_ = s.poller.remove(fd)
		delete(s.armed, fd)
	}
}

// Stop asks Run to return once the current tick finishes. Safe to call
// from within a Task, or from any other goroutine — e.g. a signal
// handler asking the whole server to shut down.
func (s *Scheduler) Stop() {
	s.stopping.Store(true)
	s.wake()
}

func (s *Scheduler) wake() {
	var b [1]byte
	_, _ = writeFD(s.wakeW, b[:])
}

// Close releases the poller and the wake-up pipe.
func (s *Scheduler) Close() error {
	_ = closeFD(s.wakeR)
	_ = closeFD(s.wakeW)
	return s.poller.close()
}

// Run drains the ready queue, blocking in the OS readiness call whenever
// it is empty, until no task remains runnable or waiting, or Stop is
// called. Exactly one task is resumed per loop iteration (step 3 of
// spec.md §4.3's loop).
func (s *Scheduler) Run() error {
	if err := s.poller.add(s.wakeR, false); err != nil {
		return fmt.Errorf("scheduler: arm wake pipe: %w", err)
	}
	s.armed[s.wakeR] = Read

	for !s.stopping.Load() && (len(s.ready) > 0 || len(s.readWaiters) > 0 || len(s.writeWaiters) > 0) {
		if len(s.ready) == 0 {
			events, err := s.poller.wait()
			if err != nil {
				return fmt.Errorf("scheduler: poll: %w", err)
			}
			for _, ev := range events {
				if ev.fd == s.wakeR {
					var drain [64]byte
					_, _ = readFD(s.wakeR, drain[:])
					continue
				}
				s.readyFromEvent(ev)
			}
			continue
		}

		task := s.ready[0]
		s.ready = s.ready[1:]

		want, next, done := task.Resume()
		if done {
			continue
		}
		s.install(want, next)
	}
	return nil
}

func (s *Scheduler) readyFromEvent(ev readyEvent) {
	var t Task
	var ok bool
	if ev.write {
		t, ok = s.writeWaiters[ev.fd]
		delete(s.writeWaiters, ev.fd)
	} else {
		t, ok = s.readWaiters[ev.fd]
		delete(s.readWaiters, ev.fd)
	}
	if !ok {
		// Scheduler invariant violation: readiness reported for a socket
		// with no waiter. spec.md §7 calls this a bug, not a runtime
		// condition — abort rather than silently drop it.
		panic(fmt.Sprintf("scheduler: readiness event for fd %d (write=%v) with no registered waiter", ev.fd, ev.write))
	}
	delete(s.armed, ev.fd)
	_ = s.poller.remove(ev.fd)
	s.ready = append(s.ready, t)
}

func (s *Scheduler) install(want Want, t Task) {
	switch want.Dir {
	case Read:
		s.readWaiters[want.FD] = t
	case Write:
		s.writeWaiters[want.FD] = t
	default:
		panic(fmt.Sprintf("scheduler: task yielded unrecognized wait kind %v", want.Dir))
	}

	isWrite := want.Dir == Write
	dir, armed := s.armed[want.FD]
	var err error
	switch {
	case !armed:
		err = s.poller.add(want.FD, isWrite)
	case dir != want.Dir:
		err = s.poller.modify(want.FD, isWrite)
	}
	if err != nil {
		// The fd is very likely already closed by a concurrent
		// disconnect scrub; drop the waiter rather than crash the loop.
		s.logger.Debug("scheduler: failed to arm fd, dropping waiter", zap.Int("fd", want.FD), zap.Error(err))
		delete(s.readWaiters, want.FD)
		delete(s.writeWaiters, want.FD)
		return
	}
	s.armed[want.FD] = want.Dir
}
