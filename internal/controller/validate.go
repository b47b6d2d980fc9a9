package controller

import "strconv"

// Cmd identifies one validated user command. Validation happens entirely
// controller-side (spec.md §4.7): the agent still re-checks shapes, but a
// malformed line never leaves this process.
type Cmd int

const (
	CmdInvalid Cmd = iota
	CmdStep
	CmdNext
	CmdOut
	CmdRun
	CmdListLocals
	CmdListUpvalues
	CmdListGlobals
	CmdPrintStack
	CmdWatch
	CmdSetBreak
	CmdDelBreak
	CmdEnableBreak
	CmdDisableBreak
	CmdListBreak
	CmdMemory
	CmdHelp
	CmdFrame
	CmdAddSourceDir
	CmdListSource
	CmdQuit
)

// wireName is the canonical first token sent to the agent. Aliases typed
// by the user (b, c, bt) collapse to the canonical form here.
func (c Cmd) wireName() string {
	switch c {
	case CmdStep:
		return "s"
	case CmdNext:
		return "n"
	case CmdOut:
		return "o"
	case CmdRun:
		return "r"
	case CmdListLocals:
		return "ll"
	case CmdListUpvalues:
		return "lu"
	case CmdListGlobals:
		return "lg"
	case CmdPrintStack:
		return "ps"
	case CmdWatch:
		return "w"
	case CmdSetBreak:
		return "sb"
	case CmdDelBreak:
		return "db"
	case CmdEnableBreak:
		return "en"
	case CmdDisableBreak:
		return "dis"
	case CmdListBreak:
		return "lb"
	case CmdMemory:
		return "m"
	default:
		return ""
	}
}

// isResume reports whether c hands control back to the debuggee: the
// controller loops back to waiting for the next BR instead of reading a
// response.
func (c Cmd) isResume() bool {
	switch c {
	case CmdStep, CmdNext, CmdOut, CmdRun:
		return true
	}
	return false
}

// isLocal reports whether c is handled entirely in the controller and
// never hits the wire.
func (c Cmd) isLocal() bool {
	switch c {
	case CmdHelp, CmdFrame, CmdAddSourceDir, CmdListSource, CmdQuit:
		return true
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parsesUint(s string) bool {
	_, err := strconv.ParseUint(s, 0, 64)
	return err == nil
}

// Validate classifies argv, checking argument count and token shapes.
// Grounded on Controller.c:validateArgs, including every alias it accepts.
func Validate(argv []string) Cmd {
	if len(argv) == 0 {
		return CmdInvalid
	}
	argc := len(argv)
	switch argv[0] {
	case "s":
		if argc == 1 {
			return CmdStep
		}
	case "n":
		if argc == 1 {
			return CmdNext
		}
	case "o":
		if argc == 1 {
			return CmdOut
		}
	case "r", "c":
		if argc == 1 {
			return CmdRun
		}
	case "ll":
		if argc == 1 || (argc == 2 && allDigits(argv[1])) {
			return CmdListLocals
		}
	case "lu":
		if argc == 1 || (argc == 2 && allDigits(argv[1])) {
			return CmdListUpvalues
		}
	case "lg":
		if argc == 1 || (argc == 2 && allDigits(argv[1])) {
			return CmdListGlobals
		}
	case "w":
		return validateWatch(argv)
	case "ps", "bt":
		if argc == 1 {
			return CmdPrintStack
		}
	case "sb", "b":
		if argc == 3 && allDigits(argv[2]) {
			return CmdSetBreak
		}
	case "db":
		if argc == 2 && allDigits(argv[1]) {
			return CmdDelBreak
		}
	case "en":
		if argc == 2 && allDigits(argv[1]) {
			return CmdEnableBreak
		}
	case "dis":
		if argc == 2 && allDigits(argv[1]) {
			return CmdDisableBreak
		}
	case "lb":
		if argc == 1 {
			return CmdListBreak
		}
	case "m":
		if argc == 3 && parsesUint(argv[1]) && parsesUint(argv[2]) {
			return CmdMemory
		}
	case "h":
		return CmdHelp
	case "f":
		if argc == 1 || (argc == 2 && allDigits(argv[1])) {
			return CmdFrame
		}
	case "asd":
		if argc == 2 {
			return CmdAddSourceDir
		}
	case "ls", "l":
		if argc <= 4 {
			return CmdListSource
		}
	case "q", "quit":
		return CmdQuit
	}
	return CmdInvalid
}

// validateWatch checks the two accepted `w` shapes:
//
//	w <level> <l|u|g> <name>[fields] [r]
//	w <fields> [r]
func validateWatch(argv []string) Cmd {
	argc := len(argv)
	if argc < 2 {
		return CmdInvalid
	}
	if allDigits(argv[1]) && argc > 3 && len(argv[2]) == 1 &&
		(argv[2] == "l" || argv[2] == "u" || argv[2] == "g") {
		if argc == 5 {
			if argv[4] == "r" {
				return CmdWatch
			}
			return CmdInvalid
		}
		if argc == 4 {
			return CmdWatch
		}
		return CmdInvalid
	}
	if argv[1][0] == '|' {
		if argc == 3 {
			if argv[2] == "r" {
				return CmdWatch
			}
			return CmdInvalid
		}
		if argc == 2 {
			return CmdWatch
		}
	}
	return CmdInvalid
}
