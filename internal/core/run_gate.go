package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned when a run is active and the wait timeout
// expires.
var ErrRunInProgress = errors.New("an import is already running")

// DefaultMaxWaitTime is how long to wait for the active run before rejecting.
const DefaultMaxWaitTime = 5 * time.Second

// RunGate admits one import at a time. A second trigger waits for the
// active run up to maxWait and then fails with ErrRunInProgress.
type RunGate struct {
	maxWait time.Duration
	now     func() time.Time

	mu     sync.Mutex
	done   chan struct{} // closed by Leave; nil while idle
	folder string
	since  time.Time
}

// GateStatus describes the active run, if any.
type GateStatus struct {
	Running bool      `json:"running"`
	Folder  string    `json:"folder,omitempty"`
	Since   time.Time `json:"since,omitzero"`
}

// NewRunGate creates an idle gate. maxWait <= 0 means DefaultMaxWaitTime.
func NewRunGate(maxWait time.Duration) *RunGate {
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunGate{maxWait: maxWait, now: time.Now}
}

// Enter waits until the gate is idle and marks folder as the active run.
// The caller MUST call Leave when the run completes.
func (g *RunGate) Enter(ctx context.Context, folder string) error {
	timer := time.NewTimer(g.maxWait)
	defer timer.Stop()

	for {
		g.mu.Lock()
		if g.done == nil {
			g.done = make(chan struct{})
			g.folder = folder
			g.since = g.now()
			g.mu.Unlock()
			return nil
		}
		done := g.done
		g.mu.Unlock()

		select {
		case <-done:
			// another waiter may win the race, check again
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrRunInProgress
		}
	}
}

// Leave ends the active run and wakes waiting triggers.
func (g *RunGate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done == nil {
		return
	}
	close(g.done)
	g.done = nil
	g.folder = ""
	g.since = time.Time{}
}

// Wait blocks until the active run, if any, has left or ctx is cancelled.
func (g *RunGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the gate.
func (g *RunGate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateStatus{Running: g.done != nil, Folder: g.folder, Since: g.since}
}
