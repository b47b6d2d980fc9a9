package session

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/ldbg-project/ldbg/internal/breakpoint"
	"github.com/ldbg-project/ldbg/internal/runtime/fake"
	"github.com/ldbg-project/ldbg/internal/wire"
)

func pipeConns(t *testing.T) (*wire.Conn, *wire.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return wire.NewConn(a), wire.NewConn(b)
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sendCmd(t *testing.T, ctl *wire.Conn, cmd string) {
	t.Helper()
	if _, err := ctl.Raw().Write(append([]byte(cmd), 0)); err != nil {
		t.Fatalf("send %q: %v", cmd, err)
	}
}

func newFixture(t *testing.T) (*fake.VM, *Session, *wire.Conn, *wire.Conn, <-chan error) {
	t.Helper()
	vm := fake.New(4242)
	fn := vm.NewFunction()
	env := vm.NewTable()
	vm.PushFrame("a.lua", 3, fn, nil, env)

	sess := New(vm, breakpoint.New(), discardLog())
	agentConn, ctlConn := pipeConns(t)

	frame, _ := vm.FrameAt(0)
	done := make(chan error, 1)
	go func() { done <- sess.prompt(agentConn, frame) }()

	if _, err := ctlConn.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame BR: %v", err)
	}
	return vm, sess, agentConn, ctlConn, done
}

func TestSessionListLocalsSkipsTemporaries(t *testing.T) {
	vm := fake.New(4242)
	fn := vm.NewFunction()
	env := vm.NewTable()
	vm.PushFrame("a.lua", 3, fn, []fake.NamedValue{
		{Name: "x", Value: fake.Number(7)},
		{Name: "(temp)", Value: fake.Number(42)},
		{Name: "s", Value: fake.String("hi")},
	}, env)

	sess := New(vm, breakpoint.New(), discardLog())
	agentConn, ctlConn := pipeConns(t)

	frame, _ := vm.FrameAt(0)
	done := make(chan error, 1)
	go func() { done <- sess.prompt(agentConn, frame) }()
	if _, err := ctlConn.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame BR: %v", err)
	}

	sendCmd(t, ctlConn, "ll")
	resp, err := ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame ll: %v", err)
	}
	lines := wire.Lines(resp)
	if lines[0] != "OK" {
		t.Fatalf("status = %q, want OK", lines[0])
	}
	if lines[1] != "x" || lines[2] != "n7" {
		t.Fatalf("first local = %q/%q, want x/n7", lines[1], lines[2])
	}
	if lines[3] != "s" {
		t.Fatalf("second local name = %q, want s ((temp) skipped)", lines[3])
	}
	if len(lines[4]) == 0 || lines[4][0] != 's' {
		t.Fatalf("second local value = %q, want string-tagged", lines[4])
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionSetAndListBreakpoints(t *testing.T) {
	_, _, _, ctlConn, done := newFixture(t)

	sendCmd(t, ctlConn, "sb . 10")
	resp, err := ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame sb: %v", err)
	}
	if lines := wire.Lines(resp); lines[0] != "OK" {
		t.Fatalf("sb response = %q, want OK", lines)
	}

	sendCmd(t, ctlConn, "lb")
	resp, err = ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame lb: %v", err)
	}
	lines := wire.Lines(resp)
	want := []string{"OK", "1", "a.lua", "10", "1", ""}
	if len(lines) != len(want) {
		t.Fatalf("lb lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lb line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionBreakpointOrdinalStability(t *testing.T) {
	_, _, _, ctlConn, done := newFixture(t)

	sendCmd(t, ctlConn, "sb a 10")
	ctlConn.ReadFrame()
	sendCmd(t, ctlConn, "sb b 20")
	ctlConn.ReadFrame()
	sendCmd(t, ctlConn, "sb c 30")
	ctlConn.ReadFrame()
	sendCmd(t, ctlConn, "db 2")
	if resp, err := ctlConn.ReadFrame(); err != nil || wire.Lines(resp)[0] != "OK" {
		t.Fatalf("db 2: resp=%v err=%v", resp, err)
	}

	sendCmd(t, ctlConn, "lb")
	resp, err := ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame lb: %v", err)
	}
	lines := wire.Lines(resp)
	want := []string{"OK", "1", "a", "10", "1", "2", "c", "30", "1", ""}
	if len(lines) != len(want) {
		t.Fatalf("lb lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lb line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionUnknownCommand(t *testing.T) {
	_, _, _, ctlConn, done := newFixture(t)

	sendCmd(t, ctlConn, "xyz")
	resp, err := ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame xyz: %v", err)
	}
	lines := wire.Lines(resp)
	if lines[0] != "ER" || lines[1] != "Invalid command!" {
		t.Fatalf("response = %q, want ER/Invalid command!", lines)
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionWatchFieldPath(t *testing.T) {
	vm := fake.New(4242)
	fn := vm.NewFunction()
	tbl := vm.NewTable()
	inner := vm.NewTable()
	vm.SetField(tbl, fake.String("k"), inner)
	vm.SetField(inner, fake.Number(2), fake.Number(3.5))
	vm.PushFrame("a.lua", 3, fn, []fake.NamedValue{
		{Name: "t", Value: tbl},
	}, vm.NewTable())

	sess := New(vm, breakpoint.New(), discardLog())
	agentConn, ctlConn := pipeConns(t)
	frame, _ := vm.FrameAt(0)
	done := make(chan error, 1)
	go func() { done <- sess.prompt(agentConn, frame) }()
	if _, err := ctlConn.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame BR: %v", err)
	}

	sendCmd(t, ctlConn, `w 1 l t|s'k'|n2`)
	resp, err := ctlConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame w: %v", err)
	}
	lines := wire.Lines(resp)
	want := []string{"OK", "n3.5", "0", ""}
	if len(lines) != len(want) {
		t.Fatalf("w lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("w line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionMemoryDump(t *testing.T) {
	vm, _, _, ctlConn, done := newFixture(t)
	vm.SetMemory(0x1000, []byte{0xde, 0xad, 0xbe, 0xef})

	sendCmd(t, ctlConn, "m 4096 4")
	line, err := ctlConn.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine status: %v", err)
	}
	if line != "OK" {
		t.Fatalf("status = %q, want OK", line)
	}
	lenLine, err := ctlConn.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine length: %v", err)
	}
	if lenLine != "00000004" {
		t.Fatalf("length header = %q, want 00000004", lenLine)
	}
	payload, err := ctlConn.ReadExact(4)
	if err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("payload = % x, want % x", payload, want)
		}
	}

	sendCmd(t, ctlConn, "r")
	if err := <-done; err != nil {
		t.Fatalf("prompt: %v", err)
	}
}

func TestSessionExecTearsDownWithoutReply(t *testing.T) {
	_, _, agentConn, ctlConn, done := newFixture(t)

	sendCmd(t, ctlConn, "e 1+1")
	// session.prompt should return without sending a reply.
	if err := <-done; err == nil {
		t.Fatal("expected teardown error from `e`")
	}
	agentConn.Raw().Close()
}
