// Package controller implements the controller's main loop (spec.md §4.7):
// accept one debuggee, wait for BR/QT, validate user commands locally,
// forward the rest, and render typed responses.
//
// Grounded on original_source/lldbg/Controller.c (mainloop, validateArgs,
// sendCmd, waitForBreakOrQuit and the per-response renderers).
package controller

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/ldbg-project/ldbg/internal/attach"
	"github.com/ldbg-project/ldbg/internal/dump"
	"github.com/ldbg-project/ldbg/internal/sourceview"
	"github.com/ldbg-project/ldbg/internal/store"
	"github.com/ldbg-project/ldbg/internal/wire"
)

// Options configures a Controller beyond its two endpoints.
type Options struct {
	Sources []string     // initial source search path (-s/--source)
	Signal  int          // attach signal number for ctrl+c interrupts
	Store   *store.Store // optional transcript store
	Log     *slog.Logger
}

// Controller drives one connected debuggee until it quits or the wire
// fails.
type Controller struct {
	conn *wire.Conn
	in   *bufio.Reader
	out  io.Writer
	view *sourceview.Viewer
	log  *slog.Logger

	frame     string // default stack level for ll/lu/lg, as typed
	local     bool   // peer is this host; ctrl+c interrupt is possible
	remotePid int
	sig       int
	deb       *attach.Debouncer

	db        *store.Store
	sessionID string

	promptTTY bool // decorate with "?>" only when stdin is a terminal

	curFile     string
	curLine     int
	curFullpath string
	lsLine      int // continuation cursor for bare `ls`
}

// New wraps an accepted connection. in/out are the user's terminal (or a
// test harness's pipes).
func New(nc net.Conn, in io.Reader, out io.Writer, opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		conn:  wire.NewConn(nc),
		in:    bufio.NewReader(in),
		out:   out,
		view:  sourceview.New(opts.Sources...),
		log:   log,
		frame: "1",
		local: isLocalConn(nc),
		sig:   opts.Signal,
		deb:   attach.NewDebouncer(time.Second),
		db:    opts.Store,
	}
	if f, ok := in.(*os.File); ok {
		c.promptTTY = isatty.IsTerminal(f.Fd())
	}
	if c.db != nil {
		id, err := c.db.BeginSession(nc.RemoteAddr().String())
		if err != nil {
			log.Warn("transcript disabled", "err", err)
			c.db = nil
		} else {
			c.sessionID = id
		}
	}
	return c
}

// isLocalConn reports whether the peer address equals our own side's
// address, the precondition for ctrl+c interrupt delivery.
func isLocalConn(nc net.Conn) bool {
	l, lok := nc.LocalAddr().(*net.TCPAddr)
	r, rok := nc.RemoteAddr().(*net.TCPAddr)
	if !lok || !rok {
		return false
	}
	return l.IP.Equal(r.IP)
}

// Interrupt asks the paused-or-running debuggee to break now. Wired to
// SIGINT by cmd/ldbg; bursts collapse to one signal per second.
func (c *Controller) Interrupt() {
	if !c.local || c.remotePid <= 0 {
		fmt.Fprintf(c.out, "\nNot local debugging or remote pid is not avaiable\n?>")
		return
	}
	if !c.deb.Allow() {
		return
	}
	if err := attach.SendAttach(c.remotePid, c.sig); err != nil {
		fmt.Fprintf(c.out, "\nFailed to interrupt process: %d\n?>", c.remotePid)
	}
}

// Close releases the source viewer's watcher.
func (c *Controller) Close() {
	c.view.Close()
}

// Run is the controller main loop: one iteration per BR, one inner
// iteration per user command. Returns nil on a clean QT or user quit.
func (c *Controller) Run() error {
	for {
		quit, err := c.waitForBreakOrQuit()
		if err != nil {
			fmt.Fprintln(c.out, "Socket or protocol error!")
			return err
		}
		if quit {
			fmt.Fprintln(c.out, "Remote script is over!")
			return nil
		}

		fmt.Fprintf(c.out, "Break At \"%s:%d\"\n", c.curFile, c.curLine)
		c.view.Show(c.out, c.curFile, c.curLine, 1, c.curFullpath)
		c.lsLine = c.curLine

		resumed, err := c.commandLoop()
		if err != nil {
			return err
		}
		if !resumed {
			return nil // user quit
		}
	}
}

// waitForBreakOrQuit blocks until the debuggee reports a pause (BR) or
// session end (QT). quit=true means QT.
func (c *Controller) waitForBreakOrQuit() (bool, error) {
	payload, err := c.conn.ReadFrame()
	if err != nil {
		return false, err
	}
	lines := wire.Lines(payload)
	if len(lines) >= 1 && lines[0] == "QT" {
		return true, nil
	}
	if len(lines) < 5 || lines[0] != "BR" {
		return false, errMalformed
	}
	line, err := strconv.Atoi(lines[2])
	if err != nil {
		return false, errMalformed
	}
	pid, err := strconv.Atoi(lines[3])
	if err != nil {
		return false, errMalformed
	}
	c.curFile, c.curLine, c.curFullpath = lines[1], line, lines[4]
	if c.remotePid == 0 && c.db != nil {
		if err := c.db.SetSessionPid(c.sessionID, pid); err != nil {
			c.log.Debug("transcript pid", "err", err)
		}
	}
	c.remotePid = pid
	c.record("break", fmt.Sprintf("%s:%d", c.curFile, c.curLine))
	return false, nil
}

// commandLoop prompts until a resume command is forwarded (resumed=true)
// or the user quits (resumed=false, err=nil). Wire errors propagate.
func (c *Controller) commandLoop() (bool, error) {
	for {
		if c.promptTTY {
			fmt.Fprint(c.out, "?>")
		}
		text, err := c.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
		argv, err := wire.SplitArgs(strings.TrimRight(text, "\r\n"))
		if err != nil || len(argv) == 0 {
			fmt.Fprintln(c.out, "Invalid command! Type 'h' for help.")
			continue
		}
		t := Validate(argv)
		if t == CmdInvalid {
			fmt.Fprintln(c.out, "Invalid command! Type 'h' for help.")
			continue
		}

		if t.isLocal() {
			if t == CmdQuit {
				fmt.Fprintln(c.out, "Bye")
				return false, nil
			}
			c.handleLocal(t, argv)
			continue
		}

		// Fill in the default stack level for the bare list commands.
		if len(argv) == 1 && (t == CmdListLocals || t == CmdListUpvalues || t == CmdListGlobals) {
			argv = append(argv, c.frame)
			fmt.Fprintf(c.out, "Use default level: %s\n", c.frame)
		}

		if err := c.send(t, argv); err != nil {
			fmt.Fprintln(c.out, "Socket error!")
			return false, err
		}
		c.record("command", t.wireName()+" "+strings.Join(argv[1:], " "))

		if t.isResume() {
			return true, nil
		}

		if err := c.readAndRender(t, argv); err != nil {
			fmt.Fprintln(c.out, "Socket or protocol error!")
			return false, err
		}
	}
}

// handleLocal dispatches the controller-only commands (spec.md §4.7 step
// 2): h, f, asd, ls.
func (c *Controller) handleLocal(t Cmd, argv []string) {
	switch t {
	case CmdHelp:
		fmt.Fprint(c.out, helpText)
	case CmdFrame:
		if len(argv) == 2 {
			c.frame = argv[1]
		} else {
			fmt.Fprintf(c.out, "Current default level: %s\n", c.frame)
		}
	case CmdAddSourceDir:
		c.view.AddDir(argv[1])
	case CmdListSource:
		c.listSource(argv)
	}
}

// listSource implements ls/l: bare form continues from the last shown
// line, "ls line", "ls file line" and "ls file line count" override.
func (c *Controller) listSource(argv []string) {
	file, fullpath := c.curFile, c.curFullpath
	line := c.lsLine
	count := c.screenCount()

	switch len(argv) {
	case 2:
		line, _ = strconv.Atoi(argv[1])
	case 3:
		file = argv[1]
		line, _ = strconv.Atoi(argv[2])
		fullpath = ""
	case 4:
		file = argv[1]
		line, _ = strconv.Atoi(argv[2])
		count, _ = strconv.Atoi(argv[3])
		fullpath = ""
	}
	c.lsLine = c.view.Show(c.out, file, line, count, fullpath)
}

// screenCount sizes a bare `ls` listing to the terminal: a screenful minus
// room for the prompt when stdout is a tty, the classic 10 lines otherwise.
func (c *Controller) screenCount() int {
	f, ok := c.out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return sourceview.DefaultCount
	}
	if _, rows, err := term.GetSize(int(f.Fd())); err == nil && rows > 6 {
		return rows - 4
	}
	return sourceview.DefaultCount
}

// send forwards one command: canonical name, space-joined arguments, NUL
// terminator.
func (c *Controller) send(t Cmd, argv []string) error {
	parts := append([]string{t.wireName()}, argv[1:]...)
	msg := strings.Join(parts, " ")
	_, err := c.conn.Raw().Write(append([]byte(msg), 0))
	return err
}

// readAndRender reads the response for one non-resume command and renders
// it. The memory dump response has its own framing and is handled apart.
func (c *Controller) readAndRender(t Cmd, argv []string) error {
	if t == CmdMemory {
		return c.renderMemory(argv)
	}

	payload, err := c.conn.ReadFrame()
	if err != nil {
		return err
	}
	lines := wire.Lines(payload)
	if len(lines) == 0 {
		return errMalformed
	}
	body := lines[1:]
	if n := len(body); n > 0 && body[n-1] == "" {
		body = body[:n-1]
	}

	switch lines[0] {
	case "ER":
		for _, l := range body {
			fmt.Fprintln(c.out, l)
		}
		return nil
	case "OK":
	default:
		return errMalformed
	}

	switch t {
	case CmdListLocals, CmdListUpvalues, CmdListGlobals:
		return renderNamedList(c.out, body)
	case CmdPrintStack:
		return renderStack(c.out, body)
	case CmdWatch:
		return renderWatch(c.out, body)
	case CmdListBreak:
		return renderBreakList(c.out, body)
	case CmdSetBreak, CmdDelBreak, CmdEnableBreak, CmdDisableBreak:
		if len(body) != 0 {
			return errMalformed
		}
		if t == CmdSetBreak {
			c.record("breakpoint", argv[1]+" "+argv[2])
		}
		return nil
	default:
		return errMalformed
	}
}

// memChunk bounds one read of the raw dump payload off the wire.
const memChunk = 1024

type connProvider struct {
	c    *wire.Conn
	left int
}

func (p *connProvider) Next() ([]byte, error) {
	if p.left == 0 {
		return nil, io.EOF
	}
	n := p.left
	if n > memChunk {
		n = memChunk
	}
	buf, err := p.c.ReadExact(n)
	if err != nil {
		return nil, err
	}
	p.left -= n
	return buf, nil
}

// renderMemory reads the m response: an OK/ER first line, then (on OK) an
// 8-hex-digit length header followed by that many raw bytes, streamed into
// the 16-column dump renderer. The raw payload is not NUL-framed (spec.md
// §6), hence line-then-exact reads instead of ReadFrame.
func (c *Controller) renderMemory(argv []string) error {
	first, err := c.conn.ReadLine()
	if err != nil {
		return err
	}
	switch first {
	case "ER":
		payload, err := c.conn.ReadFrame()
		if err != nil {
			return err
		}
		for _, l := range wire.Lines(payload) {
			if l != "" {
				fmt.Fprintln(c.out, l)
			}
		}
		return nil
	case "OK":
	default:
		return errMalformed
	}

	lenLine, err := c.conn.ReadLine()
	if err != nil {
		return err
	}
	if len(lenLine) != 8 {
		return errMalformed
	}
	n, err := strconv.ParseUint(lenLine, 16, 32)
	if err != nil || n == 0 {
		return errMalformed
	}

	addr, err := strconv.ParseUint(argv[1], 0, 64)
	if err != nil {
		return errMalformed
	}
	if err := dump.Dump(c.out, addr, &connProvider{c: c.conn, left: int(n)}, "", ""); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s read\n", humanize.IBytes(n))
	return nil
}

// record appends one transcript event, best effort.
func (c *Controller) record(kind, detail string) {
	if c.db == nil {
		return
	}
	if err := c.db.Record(c.sessionID, kind, detail); err != nil {
		c.log.Debug("transcript", "kind", kind, "err", err)
	}
}
