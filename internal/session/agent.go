package session

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/ldbg-project/ldbg/internal/attach"
	"github.com/ldbg-project/ldbg/internal/breakpoint"
	"github.com/ldbg-project/ldbg/internal/hook"
	"github.com/ldbg-project/ldbg/internal/runtime"
	"github.com/ldbg-project/ldbg/internal/wire"
)

// MaxRuntimes bounds the registered-runtime set (spec.md §3): registering
// more is logged and ignored, never an install failure the host would have
// to handle.
const MaxRuntimes = 1024

// AgentConfig is everything the debuggee-side agent needs to reach its
// controller. Build one from internal/config plus the LDB_* environment
// overrides.
type AgentConfig struct {
	Addr    string
	Port    int
	Signal  int
	Startup bool // connect synchronously at install time (LDB_STARTUP=1)
}

// Agent is the process-wide debuggee half of the debugger: the registered
// runtime set, the shared breakpoint table, the controller connection and
// the signal-driven attach flag. One Agent per process; every mutable
// field except signaled is owned by whichever thread the runtimes fire
// their hooks on (spec.md §5).
type Agent struct {
	cfg AgentConfig
	log *slog.Logger

	breakpoints *breakpoint.Table
	registered  []*Session
	signaled    attach.Signaled
	handle      attach.Handle
	conn        *wire.Conn
}

// NewAgent returns an Agent with an empty runtime set. Call Register for
// each runtime state, then Start once.
func NewAgent(cfg AgentConfig, log *slog.Logger) *Agent {
	return &Agent{
		cfg:         cfg,
		log:         log,
		breakpoints: breakpoint.New(),
	}
}

// Breakpoints exposes the shared breakpoint table, mainly for tests.
func (a *Agent) Breakpoints() *breakpoint.Table { return a.breakpoints }

// Register adds vm to the agent's runtime set and installs its execution
// hook. Past MaxRuntimes the call logs to stderr and does nothing — the
// host's install path must never fail on this (spec.md §7).
func (a *Agent) Register(vm runtime.VM) {
	if len(a.registered) >= MaxRuntimes {
		a.log.Error("agent: too many registered runtimes, ignoring", "max", MaxRuntimes)
		return
	}
	sess := New(vm, a.breakpoints, a.log)
	a.registered = append(a.registered, sess)
	vm.SetHook(a.hookFor(sess))
}

// Start arms the attach interrupt and, when cfg.Startup is set, connects
// to the controller immediately so the very next line event enters the
// prompt. A failed startup connect is reported to the caller; a failed
// signal-driven connect later is silent (spec.md §4.4).
func (a *Agent) Start() error {
	a.signaled.OnSet(a.rearm)
	a.handle = attach.Install(os.Getpid(), a.cfg.Signal, &a.signaled)
	if a.cfg.Startup {
		if err := a.connect(); err != nil {
			return err
		}
		// First line event stops, as if STEP had been chosen.
		for _, s := range a.registered {
			s.machine.SelectMode(hook.ModeStep)
		}
	}
	return nil
}

// Shutdown notifies the controller the session is over and releases the
// attach listener. Safe to call from an at-exit path whether or not a
// connection ever existed.
func (a *Agent) Shutdown() {
	if a.conn != nil {
		if err := a.conn.SendQuit(); err != nil {
			a.log.Debug("agent: QT send failed", "err", err)
		}
		a.conn.Raw().Close()
		a.conn = nil
	}
	if a.handle != nil {
		a.handle.Stop()
		a.handle = nil
	}
	for _, s := range a.registered {
		s.vm.ClearHook()
	}
}

// rearm runs in signal/event-delivery context: reinstall hooks on every
// registered runtime and nothing else (spec.md §9). A hook cleared by an
// earlier teardown comes back here so the pending flag is observed.
func (a *Agent) rearm() {
	for _, s := range a.registered {
		s.vm.SetHook(a.hookFor(s))
	}
}

// hookFor builds the runtime.HookFunc for one registered session. The
// connection is resolved per event:
// a signal-driven attach dials lazily on the hook thread, and the hook
// stays installed (counting depth, checking the flag) even while no
// controller is connected.
func (a *Agent) hookFor(s *Session) runtime.HookFunc {
	return func(ev runtime.Event, frame runtime.Frame) {
		switch ev {
		case runtime.EventCall:
			s.machine.OnCall()
		case runtime.EventReturn, runtime.EventTailReturn:
			s.machine.OnReturn()
		case runtime.EventLine:
			if frame.CurrentLine() < 0 {
				return
			}
			if a.signaled.Consume() {
				if err := a.connect(); err != nil {
					a.teardown()
					return
				}
				if err := s.prompt(a.conn, frame); err != nil {
					a.teardown()
				}
				return
			}
			if a.conn == nil {
				return
			}
			if s.machine.OnLine(frame) != hook.DecisionBreak {
				return
			}
			if err := s.prompt(a.conn, frame); err != nil {
				a.teardown()
			}
		}
	}
}

// connect dials the controller if not already connected. Reuses the live
// connection otherwise, so a signal arriving mid-session is a plain break.
func (a *Agent) connect() error {
	if a.conn != nil {
		return nil
	}
	nc, err := net.Dial("tcp", net.JoinHostPort(a.cfg.Addr, strconv.Itoa(a.cfg.Port)))
	if err != nil {
		a.log.Debug("agent: connect failed", "addr", a.cfg.Addr, "port", a.cfg.Port, "err", err)
		return fmt.Errorf("session: connect controller: %w", err)
	}
	a.conn = wire.NewConn(nc)
	a.log.Info("agent: connected to controller", "addr", a.cfg.Addr, "port", a.cfg.Port)
	return nil
}

// teardown closes the connection and disarms every registered runtime
// without notifying the peer (spec.md §7: transport errors are fatal for
// the session and silent on the wire). Remembered values are released so
// the registry holds nothing across sessions.
func (a *Agent) teardown() {
	if a.conn != nil {
		a.conn.Raw().Close()
		a.conn = nil
	}
	for _, s := range a.registered {
		s.vm.ClearHook()
		s.remembered = nil
		s.machine.ResetOnPromptEntry()
	}
}
