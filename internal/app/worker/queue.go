// Package worker provides the serial task queue and the periodic scheduler
// used to drive background playlist work.
package worker

import (
	"runtime/debug"
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// Queue executes submitted tasks one at a time, in submission order, on a
// single goroutine. Submit never blocks.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewQueue creates a queue and starts its goroutine.
func NewQueue() *Queue {
	q := &Queue{
		tasks: make([]func(), 0),
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit appends a task to the queue. Returns false if the queue is closed.
func (q *Queue) Submit(task func()) bool {
	if task == nil {
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks, drops the pending ones and waits for the task
// currently running to return.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.tasks = nil
	q.mu.Unlock()

	close(q.quit)
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		task, ok := q.next()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-q.quit:
				return
			}
		}
		q.execute(task)
	}
}

// next pops the oldest task, if any.
func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// execute runs a task, containing any panic to that task.
func (q *Queue) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("worker task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
