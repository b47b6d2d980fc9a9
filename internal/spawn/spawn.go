// Package spawn starts the debuggee program for `ldbg run`: the child gets
// LDB_STARTUP=1 in its environment so its agent connects back at install
// time, and on POSIX platforms it runs attached to a pty so interactive
// programs keep their line discipline while the controller owns the real
// terminal.
//
// Grounded on original_source/lldbg/Controller.c (startProgram, both
// variants).
package spawn

import (
	"fmt"
	"os"
	"os/exec"
)

// Child is a launched debuggee process.
type Child struct {
	cmd  *exec.Cmd
	ptmx *os.File // nil on platforms without pty support
}

// Pid returns the child's process id.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Wait blocks until the child exits.
func (c *Child) Wait() error {
	err := c.cmd.Wait()
	if c.ptmx != nil {
		c.ptmx.Close()
	}
	return err
}

// Stop kills the child if it is still running.
func (c *Child) Stop() {
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
}

// env returns the child environment: the parent's, plus LDB_STARTUP=1 and
// the controller's port so the agent dials back immediately.
func env(port int) []string {
	return append(os.Environ(), "LDB_STARTUP=1", fmt.Sprintf("LDB_PORT=%d", port))
}
