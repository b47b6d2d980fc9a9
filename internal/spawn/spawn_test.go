//go:build !windows

package spawn

import (
	"os"
	"testing"
)

func TestStartSetsEnvAndRuns(t *testing.T) {
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no pty device available")
	}

	c, err := Start("sh", []string{"-c", `test "$LDB_STARTUP" = 1 && test "$LDB_PORT" = 2679`}, 2679)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Pid() <= 0 {
		t.Errorf("Pid = %d", c.Pid())
	}
	if err := c.Wait(); err != nil {
		t.Errorf("child env check failed: %v", err)
	}
}

func TestStopKillsChild(t *testing.T) {
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no pty device available")
	}

	c, err := Start("sh", []string{"-c", "sleep 60"}, 2679)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop()
	if err := c.Wait(); err == nil {
		t.Error("Wait returned nil for a killed child")
	}
}
