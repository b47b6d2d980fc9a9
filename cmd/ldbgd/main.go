package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldbg-project/ldbg/internal/config"
	"github.com/ldbg-project/ldbg/internal/logger"
	"github.com/ldbg-project/ldbg/internal/runtime"
	"github.com/ldbg-project/ldbg/internal/runtime/fake"
	"github.com/ldbg-project/ldbg/internal/session"
)

// demoScript is the source the demo host pretends to execute, written into
// the temp dir so the controller's source viewer can find it through
// the fullpath in BR messages.
const demoScript = `-- ldbgd demo script
local counter = 0
local greeting = "hello from ldbgd"
local function tick(n)
    local doubled = n * 2
    return doubled
end
while true do
    counter = counter + 1
    local v = tick(counter)
    wait(v)
end
`

func main() {
	var (
		logLevel string
		tick     time.Duration
	)

	root := &cobra.Command{
		Use:   "ldbgd",
		Short: "ldbgd — demo debuggee host for ldbg",
		Long: "Embeds a reference scripting runtime running a small demo program and\n" +
			"installs the ldbg agent on it. Debug it with `ldbg run ldbgd` or attach\n" +
			"to a running instance with `ldbg -p <pid>`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logLevel, ""); err != nil {
				return err
			}
			cfg := config.Default()
			cfg.ApplyEnv()

			scriptPath := filepath.Join(os.TempDir(), "ldbgd-demo.lua")
			if err := os.WriteFile(scriptPath, []byte(demoScript), 0644); err != nil {
				return fmt.Errorf("write demo script: %w", err)
			}

			vm := fake.New(os.Getpid())
			agent := session.NewAgent(session.AgentConfig{
				Addr:    cfg.Addr,
				Port:    cfg.Port,
				Signal:  cfg.Signal,
				Startup: config.Startup(),
			}, logger.Log)
			agent.Register(vm)
			if err := agent.Start(); err != nil {
				return err
			}
			defer agent.Shutdown()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			logger.Info("ldbgd running", "pid", os.Getpid(), "script", scriptPath)
			runDemo(vm, scriptPath, tick, stop)
			return nil
		},
	}

	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().DurationVar(&tick, "tick", 200*time.Millisecond, "delay between executed lines")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runDemo drives the fake runtime through demoScript's control flow,
// firing hook events the way an embedded VM would, until stop fires.
func runDemo(vm *fake.VM, scriptPath string, tick time.Duration, stop <-chan os.Signal) {
	env := vm.NewTable()
	waitFn := vm.NewFunction()
	vm.SetFunctionInfo(waitFn, "C", "[C]", -1, -1)
	vm.SetField(env, fake.String("wait"), waitFn)
	vm.SetField(env, fake.String("_VERSION"), fake.String("demo 1.0"))

	tickFn := vm.NewFunction()
	vm.SetFunctionInfo(tickFn, "Lua", scriptPath, 4, 7)

	mainFn := vm.NewFunction()
	vm.SetFunctionInfo(mainFn, "main", scriptPath, 0, 0)

	mainLocals := []fake.NamedValue{
		{Name: "counter", Value: fake.Number(0)},
		{Name: "greeting", Value: fake.String("hello from ldbgd")},
		{Name: "tick", Value: tickFn},
		{Name: "(*temporary)", Value: fake.Nil()},
	}
	vm.PushFrame(scriptPath, 2, mainFn, mainLocals, env)

	line := func(n int) bool {
		vm.SetLine(n)
		vm.Fire(runtime.EventLine)
		select {
		case <-stop:
			return false
		case <-time.After(tick):
			return true
		}
	}

	counter := 0.0
	for {
		if !line(8) || !line(9) {
			return
		}
		counter++
		mainLocals[0].Value = fake.Number(counter)
		if !line(10) {
			return
		}

		// Call tick(counter): new frame, call event, its lines, return.
		tickLocals := []fake.NamedValue{
			{Name: "n", Value: fake.Number(counter)},
			{Name: "doubled", Value: fake.Number(counter * 2)},
		}
		vm.PushFrame(scriptPath, 5, tickFn, tickLocals, env)
		vm.SetFrameName("tick")
		vm.Fire(runtime.EventCall)
		if !line(5) || !line(6) {
			return
		}
		vm.Fire(runtime.EventReturn)
		vm.PopFrame()

		if !line(11) {
			return
		}
	}
}
