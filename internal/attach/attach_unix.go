//go:build !windows

package attach

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Install arms sig (a POSIX signal number) on the current process: a
// dedicated goroutine forwards every delivery to s.Set, re-arming it
// immediately — matching the "re-arm the hook mask on all registered
// runtimes" contract of spec.md §4.8 at the flag level. pid is accepted for
// signature symmetry with the Windows named-event installer and ignored: a
// POSIX signal handler needs no named resource to create.
func Install(pid, sig int, s *Signaled) Handle {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.Signal(sig))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				s.Set()
			case <-done:
				return
			}
		}
	}()
	return &posixHandle{ch: ch, done: done}
}

type posixHandle struct {
	ch   chan os.Signal
	done chan struct{}
}

func (h *posixHandle) Stop() {
	signal.Stop(h.ch)
	close(h.done)
}

// SendAttach delivers sig to pid, the controller-side half of attach: the
// debuggee captured its own pid in the BR message that preceded this call.
func SendAttach(pid, sig int) error {
	return unix.Kill(pid, syscall.Signal(sig))
}
