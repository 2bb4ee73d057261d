package worker

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Scheduler invokes a task immediately and then at a fixed rate until
// stopped. One Scheduler runs at most one period at a time.
//
// Stop waits for a task invocation that is already in progress, so tasks
// must return quickly and must not take locks held by callers of Stop. Hand
// real work off to a Queue from the task.
type Scheduler struct {
	name string

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool

	// gen is bumped on every Stop so a loop that already received a tick
	// cannot invoke its task afterwards.
	gen   uint64
	runMu sync.RWMutex
}

// NewScheduler creates a stopped scheduler. The name only appears in logs.
func NewScheduler(name string) *Scheduler {
	return &Scheduler{name: name}
}

// Start begins invoking task: once now, then every interval. Calling Start on
// a running scheduler is a no-op and is logged.
func (s *Scheduler) Start(interval time.Duration, task func()) {
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		zlog.Warn().Msgf("scheduler already running: name=%s", s.name)
		return
	}

	s.running = true
	s.stopCh = make(chan struct{})
	zlog.Info().Msgf("starting scheduler: name=%s interval=%v", s.name, interval)

	s.runMu.RLock()
	gen := s.gen
	s.runMu.RUnlock()

	go s.loop(gen, interval, task, s.stopCh)
}

// Stop halts future invocations. It waits for an invocation in progress but
// not for the work a task handed off; once Stop returns no task invocation
// will start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	zlog.Info().Msgf("stopping scheduler: name=%s", s.name)
	close(s.stopCh)
	s.stopCh = nil
	s.running = false

	// Waits for an invocation that passed the generation check.
	s.runMu.Lock()
	s.gen++
	s.runMu.Unlock()
}

// Running reports whether a period is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(gen uint64, interval time.Duration, task func(), stopCh <-chan struct{}) {
	if !s.invoke(gen, task) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !s.invoke(gen, task) {
				return
			}
		}
	}
}

// invoke runs task if the period that started this loop is still current.
func (s *Scheduler) invoke(gen uint64, task func()) bool {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	if s.gen != gen {
		return false
	}
	task()
	return true
}
