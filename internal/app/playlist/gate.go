package playlist

import (
	"sync"
	"time"
)

// Gate invokes a callback at most once, either when asked to or when its
// timeout elapses. The timeout can be paused and resumed any number of
// times.
type Gate struct {
	mu sync.Mutex

	callback func()
	timeout  time.Duration // 0 means wait indefinitely
	dispatch func(func()) bool

	timer    *time.Timer
	gen      uint64 // invalidates timers that fired after being stopped
	paused   bool
	executed bool
}

// NewGate creates an unarmed gate. Timer expiry hands the callback to
// dispatch instead of calling it on the timer goroutine.
func NewGate(callback func(), timeout time.Duration, dispatch func(func()) bool) *Gate {
	return &Gate{
		callback: callback,
		timeout:  timeout,
		dispatch: dispatch,
	}
}

// Timeout returns the duration the gate was registered with.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// Arm starts or restarts the timeout timer. Does nothing once executed or
// when the gate has no timeout.
func (g *Gate) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.paused = false
	if g.executed || g.timeout <= 0 {
		return
	}
	g.stopTimerLocked()
	gen := g.gen
	g.timer = time.AfterFunc(g.timeout, func() { g.expire(gen) })
}

// Pause stops the timer without executing or discarding the gate.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopTimerLocked()
	if !g.executed {
		g.paused = true
	}
}

// Resume re-arms a paused gate with its full timeout.
func (g *Gate) Resume() {
	g.Arm()
}

// Paused reports whether the gate is waiting to be resumed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Stop discards the timer of a superseded gate. The executed state is left
// as is.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimerLocked()
}

// ExecuteNow invokes the callback on the calling goroutine unless it already
// ran. Returns true if this call invoked it.
func (g *Gate) ExecuteNow() bool {
	g.mu.Lock()
	if g.executed {
		g.mu.Unlock()
		return false
	}
	g.executed = true
	g.paused = false
	g.stopTimerLocked()
	g.mu.Unlock()

	g.callback()
	return true
}

// Executed reports whether the callback has run or been handed off to run.
func (g *Gate) Executed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.executed
}

func (g *Gate) expire(gen uint64) {
	g.mu.Lock()
	if g.executed || g.gen != gen {
		g.mu.Unlock()
		return
	}
	g.executed = true
	g.paused = false
	g.timer = nil
	g.mu.Unlock()

	if !g.dispatch(g.callback) {
		// dispatcher is gone, run it here rather than lose it
		g.callback()
	}
}

func (g *Gate) stopTimerLocked() {
	g.gen++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
