//go:build windows

package spawn

import (
	"os"
	"os/exec"
)

// Start launches prog with args as a plain child process. No pty on this
// platform; the child inherits the controller's console, matching the
// original controller's CreateProcess path.
func Start(prog string, args []string, port int) (*Child, error) {
	cmd := exec.Command(prog, args...)
	cmd.Env = env(port)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Child{cmd: cmd}, nil
}
