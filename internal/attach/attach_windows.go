//go:build windows

package attach

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

// eventName derives the named-event identifier the agent creates at install
// time and the controller later opens, keyed by the debuggee's pid (spec.md
// §4.8 "a named cross-process event at install time keyed by its PID").
func eventName(pid int) string {
	return fmt.Sprintf("Local\\ldbg-attach-%d", pid)
}

// pollInterval bounds how long the wait thread blocks in WaitForSingleObject
// between checks of the done channel.
const pollInterval = 200 * time.Millisecond

// Install creates the named event for pid and starts a dedicated wait
// thread that polls it, setting s on every signaled wake. sig is accepted
// for symmetry with the POSIX installer and ignored: there is no signal
// number on this path.
func Install(pid, sig int, s *Signaled) Handle {
	name, _ := windows.UTF16PtrFromString(eventName(pid))
	ev, _ := windows.CreateEvent(nil, 0, 0, name)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			r, _ := windows.WaitForSingleObject(ev, uint32(pollInterval.Milliseconds()))
			if r == windows.WAIT_OBJECT_0 {
				s.Set()
			}
		}
	}()
	return &winHandle{ev: ev, done: done}
}

type winHandle struct {
	ev   windows.Handle
	done chan struct{}
}

func (h *winHandle) Stop() {
	close(h.done)
	windows.CloseHandle(h.ev)
}

// SendAttach opens pid's named event and sets it. sig is ignored on this
// path (kept for signature symmetry with the POSIX SendAttach).
func SendAttach(pid, sig int) error {
	name, err := windows.UTF16PtrFromString(eventName(pid))
	if err != nil {
		return err
	}
	ev, err := windows.OpenEvent(windows.EVENT_MODIFY_STATE, false, name)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(ev)
	return windows.SetEvent(ev)
}
