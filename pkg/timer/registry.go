// Package timer provides a registry of armed one-shot timers addressable by
// an opaque handle, so a delayed execution can be cancelled by the ID stored
// on its owning row.
package timer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Registry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*time.Timer)}
}

// Arm schedules fn to run once after delay and returns the handle under which
// the timer can be cancelled. The entry removes itself before fn runs.
func (r *Registry) Arm(delay time.Duration, fn func()) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, id)
		r.mu.Unlock()
		fn()
	})
	return id
}

// Cancel stops the timer with the given handle. A missing or already-fired
// handle is not an error; Cancel reports whether a pending timer was stopped.
func (r *Registry) Cancel(id string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	t, ok := r.timers[id]
	delete(r.timers, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	return t.Stop()
}

// Len returns the number of currently armed timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// StopAll cancels every armed timer. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
