package controller

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// errMalformed is returned when a response body doesn't follow the grammar
// the command promises; the caller treats it like a transport error.
var errMalformed = fmt.Errorf("controller: malformed response body")

func typeStr(tag byte) string {
	switch tag {
	case 's':
		return "STR"
	case 'n':
		return "NUM"
	case 't':
		return "TAB"
	case 'f':
		return "FNC"
	case 'u':
		return "URD"
	case 'U':
		return "LUD"
	case 'b':
		return "BLN"
	case 'l':
		return "NIL"
	case 'd':
		return "THD"
	default:
		return ""
	}
}

// renderValue writes one typed-value line as "Type:XXX \tValue:...". For
// strings the body is unpacked into identity, length, truncation length and
// the hex-decoded content. Grounded on Controller.c:printVar/outputStr.
func renderValue(w io.Writer, line string) error {
	if line == "" {
		return errMalformed
	}
	tstr := typeStr(line[0])
	if tstr == "" {
		return errMalformed
	}
	fmt.Fprintf(w, "Type:%s \tValue:", tstr)
	body := line[1:]
	switch line[0] {
	case 's':
		return renderString(w, body)
	case 'l':
		fmt.Fprint(w, "nil")
	default:
		fmt.Fprint(w, body)
	}
	return nil
}

// renderString unpacks "<ptr>:<len>:<trunc>:<hex>".
func renderString(w io.Writer, body string) error {
	parts := strings.SplitN(body, ":", 4)
	if len(parts) != 4 {
		return errMalformed
	}
	trunc, err := strconv.Atoi(parts[2])
	if err != nil || len(parts[3]) != trunc*2 {
		return errMalformed
	}
	decoded, err := hex.DecodeString(parts[3])
	if err != nil {
		return errMalformed
	}
	fmt.Fprintf(w, "%s Length:%s Truncated-to:%s Content:", parts[0], parts[1], parts[2])
	w.Write(decoded)
	return nil
}

// renderNamedList renders alternating name / typed-value lines (ll, lu,
// lg responses).
func renderNamedList(w io.Writer, body []string) error {
	if len(body)%2 != 0 {
		return errMalformed
	}
	for i := 0; i < len(body); i += 2 {
		fmt.Fprintf(w, "Name:%s \t", body[i])
		if err := renderValue(w, body[i+1]); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// renderStack renders groups of 4 lines (file, line, name, what) from a
// ps response.
func renderStack(w io.Writer, body []string) error {
	if len(body)%4 != 0 {
		return errMalformed
	}
	for i := 0; i < len(body); i += 4 {
		fmt.Fprintf(w, "At \"%s:%s\" \t%s \t%s\n", body[i], body[i+1], body[i+2], body[i+3])
	}
	return nil
}

// renderBreakList renders groups of 4 lines (ordinal, file, line, enabled)
// from an lb response.
func renderBreakList(w io.Writer, body []string) error {
	if len(body)%4 != 0 {
		return errMalformed
	}
	for i := 0; i < len(body); i += 4 {
		state := "enable"
		if body[i+3] == "0" {
			state = "disable"
		}
		fmt.Fprintf(w, "%s. \"%s:%s\", %s\n", body[i], body[i+1], body[i+2], state)
	}
	return nil
}

const watchSeparator = "--------------------------------------------------"

// renderWatch renders a w response: the header value line, the has-meta
// flag, then the kind-specific trailer (spec.md §4.5). Grounded on the w()
// state machine in Controller.c.
func renderWatch(w io.Writer, body []string) error {
	if len(body) < 2 {
		return errMalformed
	}
	header := body[0]
	if err := renderValue(w, header); err != nil {
		return err
	}
	fmt.Fprintln(w)

	switch body[1] {
	case "1":
		fmt.Fprintln(w, "HasMetatable:Yes")
	case "0":
		fmt.Fprintln(w, "HasMetatable:No")
	default:
		return errMalformed
	}
	rest := body[2:]

	switch header[0] {
	case 't':
		if len(rest)%2 != 0 {
			return errMalformed
		}
		for i := 0; i < len(rest); i += 2 {
			fmt.Fprintln(w, watchSeparator)
			if err := renderValue(w, rest[i]); err != nil {
				return err
			}
			fmt.Fprintln(w)
			if err := renderValue(w, rest[i+1]); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	case 'u':
		if len(rest) != 1 {
			return errMalformed
		}
		fmt.Fprintf(w, "Size:%s\n", rest[0])
	case 'f':
		if len(rest) != 4 {
			return errMalformed
		}
		fmt.Fprintf(w, "What:%s \tFile:%s \tLineDefined:%s \tLastLine:%s\n",
			rest[0], rest[1], rest[2], rest[3])
	case 'd':
		if len(rest) != 1 {
			return errMalformed
		}
		fmt.Fprintf(w, "Status:%s\n", rest[0])
	default:
		if len(rest) != 0 {
			return errMalformed
		}
	}
	return nil
}

const helpText = `Valid commands:
  sb or b <file-path> <line-no>       -- Set a breakpoint
  db <index>                          -- Delete a breakpoint(lb to list breakpoint)
  en <index>                          -- Enable a breakpoint
  dis <index>                         -- Disable a breakpoint
  lb                                  -- List breakpoints
  f <stack-level>                     -- Set default stack-level for lg/ll/lu
  lg [stack-level]                    -- List globals
  ll [stack-level]                    -- List locals
  lu [stack-level]                    -- List upvalues
  m <start-address> <length>          -- Watch memory
  n                                   -- Run to next line
  o                                   -- Step out
  ps or bt                            -- Print calling stack
  r or c                              -- Run program until a breakpoint
  s                                   -- Step into
  w <stack-level> <l|u|g> <variable-name>[properties] [r]
    or w <properties> [r]             -- Watch a variable
  asd <source-dir>                    -- Add source dir for source searching
  ls [file] [lineno] [count]          -- View source code

  q or quit                           -- Quit debugger
  ctrl+c                              -- Break program(local host only)
`
