//go:build !windows

package spawn

import (
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// Start launches prog with args under a pty, forwarding its combined
// output to the controller's stdout. The pty keeps programs that check
// isatty behaving as they would outside the debugger.
func Start(prog string, args []string, port int) (*Child, error) {
	cmd := exec.Command(prog, args...)
	cmd.Env = env(port)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	if f, ok := stdinFile(); ok {
		// Best effort: match the child's window to ours once at startup.
		_ = pty.InheritSize(f, ptmx)
	}
	go func() {
		// Drain until the child closes its side; read errors just end the
		// copy (EIO on pty close is normal).
		_, _ = io.Copy(os.Stdout, ptmx)
	}()
	return &Child{cmd: cmd, ptmx: ptmx}, nil
}

func stdinFile() (*os.File, bool) {
	fi, err := os.Stdin.Stat()
	if err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return nil, false
	}
	return os.Stdin, true
}
