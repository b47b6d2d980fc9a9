// Package session implements the debuggee agent's prompt loop (spec.md
// §4.4, §4.8, §5, §7, §9): the request/response dispatch that runs once a
// breakpoint, step, or signal-driven attach pauses execution, wiring
// together internal/hook, internal/breakpoint, internal/inspector and
// internal/wire over one runtime.VM.
//
// Grounded on original_source/lldb/Debugger.c (hook, prompt, getCmd and the
// per-command handlers it dispatches to).
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ldbg-project/ldbg/internal/breakpoint"
	"github.com/ldbg-project/ldbg/internal/hook"
	"github.com/ldbg-project/ldbg/internal/runtime"
	"github.com/ldbg-project/ldbg/internal/wire"
)

// errTeardown signals "stop debugging, do not notify the peer" for the `e`
// command's documented unimplemented-sentinel behavior (spec.md §7, §9). A
// wire/transport failure ends the session the same way, through its own
// error.
var errTeardown = errors.New("session: teardown")

// Session is the debuggee-side debugging state of one registered runtime:
// its hook machine, the breakpoint table (shared by all of an Agent's
// sessions) and one remembered value. It outlives any single connection;
// the connection is passed to each prompt.
type Session struct {
	vm          runtime.VM
	machine     *hook.Machine
	breakpoints *breakpoint.Table
	log         *slog.Logger

	remembered *runtime.Value // nil when nothing is remembered

	// curSrc/curFullpath are the source identity of the frame the prompt
	// most recently entered at, used to resolve "." in `sb`.
	curSrc      string
	curFullpath string
}

// New builds a Session over vm and bp; Agent.Register wraps it in the
// agent's hook callback.
func New(vm runtime.VM, bp *breakpoint.Table, log *slog.Logger) *Session {
	return &Session{
		vm:          vm,
		machine:     hook.New(bp),
		breakpoints: bp,
		log:         log,
	}
}

// prompt runs one full pause: send BR, then loop reading and dispatching
// commands until a resume command is chosen or the session tears down.
// Grounded on Debugger.c:prompt.
func (s *Session) prompt(conn *wire.Conn, frame runtime.Frame) error {
	s.machine.ResetOnPromptEntry()
	s.curSrc = baseName(frame.ShortSrc())
	s.curFullpath = frame.ShortSrc()

	if err := conn.SendBreak(s.curSrc, frame.CurrentLine(), s.vm.Pid(), s.curFullpath); err != nil {
		return err
	}

	for {
		payload, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return err
			}
			return fmt.Errorf("session: read command: %w", err)
		}
		lines := wire.Lines(payload)
		if len(lines) == 0 {
			if err := conn.SendErr("Invalid command!"); err != nil {
				return err
			}
			continue
		}
		argv, err := wire.SplitArgs(lines[0])
		if err != nil {
			if err := conn.SendErr("Invalid command!"); err != nil {
				return err
			}
			continue
		}
		if len(argv) == 0 {
			if err := conn.SendErr("Invalid command!"); err != nil {
				return err
			}
			continue
		}

		resumed, werr := s.dispatch(conn, argv)
		if werr != nil {
			return werr
		}
		if resumed {
			return nil
		}
	}
}

// dispatch handles one command line. resumed=true tells prompt to stop
// looping and let execution continue. A non-nil error means the
// connection/session must tear down without further replies.
func (s *Session) dispatch(conn *wire.Conn, argv []string) (resumed bool, err error) {
	switch argv[0] {
	case "s":
		s.machine.SelectMode(hook.ModeStep)
		return true, nil
	case "n":
		s.machine.SelectMode(hook.ModeNext)
		return true, nil
	case "o":
		s.machine.SelectMode(hook.ModeStepOut)
		return true, nil
	case "f":
		s.machine.SelectMode(hook.ModeFinish)
		return true, nil
	case "r":
		s.machine.SelectMode(hook.ModeRun)
		return true, nil
	case "e":
		// Unimplemented: close the session immediately, no reply. See
		// DESIGN.md for why this matches the C original's observable
		// behavior despite looking like an oversight there.
		return false, errTeardown
	case "ll":
		return false, s.cmdListLocals(conn, argv)
	case "lu":
		return false, s.cmdListUpvalues(conn, argv)
	case "lg":
		return false, s.cmdListGlobals(conn, argv)
	case "w":
		return false, s.cmdWatch(conn, argv)
	case "ps":
		return false, s.cmdPrintStack(conn, argv)
	case "sb":
		return false, s.cmdSetBreak(conn, argv)
	case "db":
		return false, s.cmdOprBreak(conn, argv, s.breakpoints.Delete)
	case "en":
		return false, s.cmdOprBreak(conn, argv, s.breakpoints.Enable)
	case "dis":
		return false, s.cmdOprBreak(conn, argv, s.breakpoints.Disable)
	case "lb":
		return false, s.cmdListBreak(conn, argv)
	case "m":
		return false, s.cmdMemory(conn, argv)
	default:
		return false, conn.SendErr("Invalid command!")
	}
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
