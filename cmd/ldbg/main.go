package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ldbg-project/ldbg/internal/attach"
	"github.com/ldbg-project/ldbg/internal/config"
	"github.com/ldbg-project/ldbg/internal/controller"
	"github.com/ldbg-project/ldbg/internal/logger"
	"github.com/ldbg-project/ldbg/internal/spawn"
	"github.com/ldbg-project/ldbg/internal/store"
)

var (
	addrFlag string
	portFlag int
	srcFlags []string
	pidFlag  int
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "ldbg [flags] <command> [args] | -p <pid>",
		Short: "ldbg — remote source-level debugger controller",
		Long: "Listens for a debuggee agent, forwards debugging commands and renders\n" +
			"responses. Either spawns <command> with LDB_STARTUP=1 or interrupts a\n" +
			"running process given with -p.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pidFlag <= 0 && len(args) == 0 {
				fmt.Fprintln(os.Stderr, "<command> or -p <pid> is required.")
				return cmd.Usage()
			}
			return debug(pidFlag, args)
		},
	}

	root.Flags().SetInterspersed(false)
	root.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "", "listening address (default 127.0.0.1)")
	root.PersistentFlags().IntVar(&portFlag, "port", 0, "listening port (default 2679)")
	root.PersistentFlags().StringArrayVarP(&srcFlags, "source", "s", nil, "add source dir (repeatable)")
	root.Flags().IntVarP(&pidFlag, "pid", "p", 0, "attach to a running process")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd(), attachCmd(), historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <command> [args]",
		Short: "Spawn a program under the debugger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return debug(0, args)
		},
	}
	c.Flags().SetInterspersed(false)
	return c
}

func attachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <pid>",
		Short: "Interrupt and debug a running process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil || pid <= 0 {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			return debug(pid, nil)
		},
	}
}

// debug is the shared controller entry: listen, spawn or interrupt the
// debuggee, accept one connection, run the command loop.
func debug(pid int, args []string) error {
	if err := logger.Init(logLevel, ""); err != nil {
		return err
	}
	cfg := loadConfig()
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	sources := append(append([]string{}, cfg.Sources...), srcFlags...)

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port)))
	if err != nil {
		return fmt.Errorf("listen %s:%d: %w", cfg.Addr, cfg.Port, err)
	}
	defer ln.Close()

	if pid > 0 {
		if err := attach.SendAttach(pid, cfg.Signal); err != nil {
			return fmt.Errorf("interrupt pid %d: %w", pid, err)
		}
	} else {
		child, err := spawn.Start(args[0], args[1:], cfg.Port)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", args[0], err)
		}
		logger.Debug("spawned debuggee", "pid", child.Pid())
	}

	fmt.Printf("Waiting at %s:%d for remote debuggee...\n", cfg.Addr, cfg.Port)
	nc, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer nc.Close()
	ln.Close()
	fmt.Println("Connected!")

	c := controller.New(nc, os.Stdin, os.Stdout, controller.Options{
		Sources: sources,
		Signal:  cfg.Signal,
		Store:   openStore(),
		Log:     logger.Log,
	})
	defer c.Close()

	// ctrl+c breaks the debuggee instead of killing the controller.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			c.Interrupt()
		}
	}()

	return c.Run()
}

func loadConfig() *config.Config {
	dir, err := config.UserConfigDir()
	if err != nil {
		cfg := config.Default()
		cfg.ApplyEnv()
		return cfg
	}
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}

// openStore opens the transcript database beside the config file. A failure
// only disables history, never the debugger.
func openStore() *store.Store {
	dir, err := config.UserConfigDir()
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}
	db, err := store.Open(filepath.Join(dir, "ldbg.db"))
	if err != nil {
		logger.Debug("transcript store unavailable", "err", err)
		return nil
	}
	return db
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the last debugging session's transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logLevel, ""); err != nil {
				return err
			}
			db := openStore()
			if db == nil {
				return fmt.Errorf("no transcript store")
			}
			defer db.Close()

			sess, ok, err := db.LastSession()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("No recorded sessions.")
				return nil
			}
			fmt.Printf("Session %s with %s (pid %d), started %s\n",
				sess.ID, sess.Addr, sess.Pid, humanize.Time(sess.StartedAt))

			events, err := db.Events(sess.ID)
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Printf("  %-10s %s\n", e.Kind, e.Detail)
			}
			return nil
		},
	}
}
