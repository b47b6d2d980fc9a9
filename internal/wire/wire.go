// Package wire implements the on-the-wire framing, typed-value encoding,
// field-path grammar and command tokenizer shared by the debuggee agent and
// the controller (spec.md §4.2, §6).
//
// Grounded on original_source/lldb/Protocol.c, Protocol.h and the
// printVar/nextField/lookupField logic in original_source/lldb/Debugger.c.
package wire

import (
	"bufio"
	"bytes"
	"io"
	"net"

	"github.com/ldbg-project/ldbg/internal/sockbuf"
)

// MaxCommandLen mirrors PROT_MAX_CMD_LEN and sizes each Conn's read buffer.
// ReadFrame does not enforce it: a frame of any length is accepted.
const MaxCommandLen = 1024

// MaxArgs mirrors PROT_MAX_ARGS.
const MaxArgs = 8

// MaxStringLen mirrors PROT_MAX_STR_LEN: string values longer than this are
// truncated before being sent inline.
const MaxStringLen = 256

// Conn is one framed connection: every message is a sequence of '\n'
// separated lines terminated by a single NUL byte ("end-of-flow").
type Conn struct {
	nc  net.Conn
	r   *bufio.Reader
	out *sockbuf.Buf
}

// NewConn wraps an established connection for framed message exchange.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: bufio.NewReaderSize(nc, MaxCommandLen), out: sockbuf.New(nc)}
}

// Raw exposes the underlying connection, e.g. for deadlines or Close.
func (c *Conn) Raw() net.Conn { return c.nc }

// ReadFrame reads one NUL-terminated message and returns its payload with
// the terminator stripped.
func (c *Conn) ReadFrame() ([]byte, error) {
	data, err := c.r.ReadBytes(0x00)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-1], nil
}

// Lines splits a frame payload on '\n', dropping the one empty element that
// follows the payload's final '\n'. The blank line that ends BR/QT/OK
// frames therefore still appears as a trailing "" element.
func Lines(payload []byte) []string {
	parts := bytes.Split(payload, []byte("\n"))
	if n := len(parts); n > 0 && len(parts[n-1]) == 0 {
		parts = parts[:n-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// BodyWriter appends a response body to sb; it replaces the C original's
// repeated-invocation Writer callback (SocketBuf.Add already rechunks and
// flushes internally, so one call is sufficient here).
type BodyWriter func(sb *sockbuf.Buf) error

// SendBreak sends the "BR" notification: a breakpoint (or step/next/etc.)
// has been hit. Grounded on Protocol.c:SendBreak.
func (c *Conn) SendBreak(file string, line, pid int, fullpath string) error {
	c.out.Reset()
	if err := c.out.Print("BR\n%s\n%d\n%d\n%s\n\n", file, line, pid, fullpath); err != nil {
		return err
	}
	return c.finish()
}

// SendQuit sends the "QT" notification: the debuggee session is ending.
func (c *Conn) SendQuit() error {
	c.out.Reset()
	if err := c.out.Add([]byte("QT\n\n")); err != nil {
		return err
	}
	return c.finish()
}

// SendErr sends an "ER" response carrying a formatted message body.
func (c *Conn) SendErr(format string, args ...any) error {
	c.out.Reset()
	if err := c.out.Add([]byte("ER\n")); err != nil {
		return err
	}
	if err := c.out.Print(format, args...); err != nil {
		return err
	}
	if err := c.out.Add([]byte("\n")); err != nil {
		return err
	}
	return c.finish()
}

// SendOK sends an "OK" response, invoking write (if non-nil) to append a
// body. If write returns an error the frame is still terminated so the peer
// isn't left waiting on a half message, and the error is returned to the
// caller after the flush.
func (c *Conn) SendOK(write BodyWriter) error {
	c.out.Reset()
	if err := c.out.Add([]byte("OK\n")); err != nil {
		return err
	}
	var werr error
	if write != nil {
		werr = write(c.out)
	}
	if err := c.out.Add([]byte("\n")); err != nil {
		return err
	}
	if err := c.finish(); err != nil {
		return err
	}
	return werr
}

// SendMemory sends the response to an "m" command: an "OK\n" line, an
// 8-hex-digit length header, then the raw bytes of payload with no further
// framing. Unlike every other response this is not NUL-terminated — the
// receiver must read exactly len(payload) bytes itself, matching
// Debugger.c:watchMemory/Controller.c:watchM in the C original (see
// DESIGN.md for the resulting wire fragility: a NUL byte inside payload
// cannot be confused with a frame terminator here only because the
// receiver never scans for one on this path).
func (c *Conn) SendMemory(payload []byte) error {
	c.out.Reset()
	if err := c.out.Print("OK\n%08x\n", len(payload)); err != nil {
		return err
	}
	if err := c.out.Add(payload); err != nil {
		return err
	}
	return c.out.Send()
}

// ReadLine reads raw bytes up to and including the next '\n' and returns
// the line with the terminator stripped. Used only by the memory-dump
// response's length header, which precedes a raw byte payload instead of
// the usual NUL-terminated frame.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return line[:len(line)-1], nil
}

// ReadExact reads exactly n raw bytes, bypassing frame delimiting. Used to
// read a memory-dump response body once ReadLine has reported its length.
func (c *Conn) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// finish flushes the buffer and appends the frame's terminating NUL byte.
func (c *Conn) finish() error {
	if err := c.out.Add([]byte{0}); err != nil {
		return err
	}
	return c.out.Send()
}

// SplitArgs tokenizes a command line on spaces, with double-quoted segments
// treated as a single argument (quotes stripped, no escapes). Returns an
// error if a quote is unterminated or the argument count exceeds MaxArgs.
// Grounded on Debugger.c:getCmd; Controller.c:extractArgs is the same
// tokenizer duplicated for locally-typed commands, unified here.
func SplitArgs(s string) ([]string, error) {
	var argv []string
	i, n := 0, len(s)
	for i < n && len(argv) < MaxArgs {
		for i < n && s[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		if s[i] != '"' {
			start := i
			for i < n && s[i] != ' ' {
				i++
			}
			argv = append(argv, s[start:i])
			continue
		}
		i++ // skip opening quote
		start := i
		end := -1
		for j := i; j < n; j++ {
			if s[j] == '"' {
				end = j
				break
			}
		}
		if end < 0 {
			return nil, errUnterminatedQuote
		}
		argv = append(argv, s[start:end])
		i = end + 1
	}
	for i < n && s[i] == ' ' {
		i++
	}
	if i < n {
		return nil, &WireError{"too many arguments"}
	}
	return argv, nil
}

var errUnterminatedQuote = &WireError{"unterminated quoted argument"}

// WireError is a plain string error, used for the handful of static parse
// errors in this package.
type WireError struct{ msg string }

func (e *WireError) Error() string { return e.msg }
