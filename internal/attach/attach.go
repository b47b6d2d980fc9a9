// Package attach implements the signal-driven attach half of the agent
// (spec.md §4.4 "Signal-driven attach", §4.8, §6): an asynchronous
// interrupt — a POSIX signal on most platforms, a named cross-process event
// elsewhere — that sets a flag observed by the next line hook.
//
// The platform-specific installer lives in attach_unix.go / attach_windows.go
// (build-tagged); this file holds the shared flag type and the controller-
// side debounce.
package attach

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Signaled is the cross-goroutine flag an attach interrupt sets. The agent's
// line hook calls Consume on every event; signal/event-wait context calls
// Set. Reads and writes cross goroutine boundaries (spec.md §5 calls this
// out explicitly), hence atomic.Bool rather than a plain bool.
type Signaled struct {
	flag  atomic.Bool
	onSet atomic.Pointer[func()]
}

// OnSet registers fn to run after every Set, from the delivering
// goroutine. The agent uses this to re-arm line hooks on all registered
// runtimes (spec.md §4.8): delivery context may only set the flag and
// install hooks, never touch session state.
func (s *Signaled) OnSet(fn func()) { s.onSet.Store(&fn) }

// Set marks an attach interrupt as pending. Safe to call from a signal
// handler context or a dedicated event-wait goroutine.
func (s *Signaled) Set() {
	s.flag.Store(true)
	if fn := s.onSet.Load(); fn != nil {
		(*fn)()
	}
}

// Consume reports whether an interrupt is pending and clears it atomically,
// so a raced concurrent Set is never lost or double-consumed.
func (s *Signaled) Consume() bool { return s.flag.CompareAndSwap(true, false) }

// Handle is returned by Install; Stop tears down the installed listener.
type Handle interface {
	Stop()
}

// Debouncer collapses a burst of attach requests (e.g. a user holding the
// interrupt key, or a controller retrying after a failed connect) to one
// delivery per interval.
type Debouncer struct {
	lim *rate.Limiter
}

// NewDebouncer returns a Debouncer permitting at most one Allow() per
// interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Allow reports whether an attach signal should be sent now.
func (d *Debouncer) Allow() bool { return d.lim.Allow() }
