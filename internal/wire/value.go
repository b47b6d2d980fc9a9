package wire

import "github.com/ldbg-project/ldbg/internal/sockbuf"

// Kind tags a Value the way a single-character prefix tags a line on the
// wire. Grounded on Debugger.c:printVar.
type Kind byte

const (
	KindNil           Kind = 'l'
	KindNumber        Kind = 'n'
	KindBool          Kind = 'b'
	KindString        Kind = 's'
	KindTable         Kind = 't'
	KindFunction      Kind = 'f'
	KindUserdata      Kind = 'u'
	KindLightUserdata Kind = 'U'
	KindThread        Kind = 'd'
)

// Value is the wire's neutral representation of one introspected value.
// Packages translating a concrete runtime value (internal/runtime) into
// wire form populate only the fields relevant to Kind.
type Value struct {
	Kind Kind

	Number float64 // KindNumber
	Bool   bool    // KindBool
	Str    []byte  // KindString, full untruncated bytes

	// Identity is an opaque per-process-lifetime token standing in for the
	// C original's raw pointer value, used for KindTable, KindFunction,
	// KindUserdata, KindLightUserdata and KindThread. Two values compare
	// equal under Identity iff the runtime considers them the same object.
	Identity string
}

// EncodeValue appends one line (or, for strings, one line plus an inline
// hex-encoded body) describing v to sb. Grounded on Debugger.c:printVar.
func EncodeValue(sb *sockbuf.Buf, v Value) error {
	switch v.Kind {
	case KindNil:
		return sb.Print("l\n")
	case KindNumber:
		return sb.Print("n%N\n", v.Number)
	case KindBool:
		n := 0
		if v.Bool {
			n = 1
		}
		return sb.Print("b%d\n", n)
	case KindTable:
		return sb.Print("t%p\n", v.Identity)
	case KindFunction:
		return sb.Print("f%p\n", v.Identity)
	case KindUserdata:
		return sb.Print("u%p\n", v.Identity)
	case KindLightUserdata:
		return sb.Print("U%p\n", v.Identity)
	case KindThread:
		return sb.Print("d%p\n", v.Identity)
	case KindString:
		truncLen := len(v.Str)
		if truncLen > MaxStringLen {
			truncLen = MaxStringLen
		}
		return sb.Print("s%p:%d:%d:%Q\n", v.Identity, len(v.Str), truncLen, v.Str, truncLen)
	default:
		panic("wire: EncodeValue: unknown kind")
	}
}
