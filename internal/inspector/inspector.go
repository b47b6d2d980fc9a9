// Package inspector implements the value inspector (spec.md §4.5): locals/
// upvalues/globals enumeration, field-path resolution, and the watch_value
// rendering of a resolved value's kind-specific trailer.
//
// Grounded on original_source/lldb/Debugger.c (watch, lookupVar, nextField,
// getFieldValue, getFieldValueByPtr, lookupField).
package inspector

import (
	"fmt"
	"regexp"

	"github.com/ldbg-project/ldbg/internal/runtime"
	"github.com/ldbg-project/ldbg/internal/wire"
)

// StackFrame is one rendered frame for the `ps`/`bt` response: source
// short name, current line, function name (or "[N/A]"), and `what` code
// (or "[N/A]").
type StackFrame struct {
	ShortSrc string
	Line     int
	Name     string
	What     string
}

// PrintStack walks the call stack from the innermost frame outward,
// collecting one StackFrame per activation record. vm.FrameAt is 0-based
// from the hook's current frame; callers translating the wire protocol's
// 1-based "level" argument (spec.md §3) subtract one before calling into
// this package — PrintStack itself always walks the full stack. Grounded
// on Debugger.c:printStack.
func PrintStack(vm runtime.VM) []StackFrame {
	var out []StackFrame
	for level := 0; ; level++ {
		frame, ok := vm.FrameAt(level)
		if !ok {
			break
		}
		name := "[N/A]"
		if n, ok := frame.FuncName(); ok && n != "" {
			name = n
		}
		what := "[N/A]"
		if w, _, _, _, ok := vm.FunctionInfo(frame.Func()); ok && w != "" {
			what = w
		}
		out = append(out, StackFrame{
			ShortSrc: frame.ShortSrc(),
			Line:     frame.CurrentLine(),
			Name:     name,
			What:     what,
		})
	}
	return out
}

// Named pairs a variable or table-entry name with its value.
type Named struct {
	Name  string
	Value runtime.Value
}

// ListLocals enumerates level's named locals in declaration order, skipping
// any name beginning with '(' (runtime-internal temporaries).
func ListLocals(vm runtime.VM, level int) []Named {
	var out []Named
	for i := 1; ; i++ {
		name, v, ok := vm.LocalAt(level, i)
		if !ok {
			break
		}
		if len(name) > 0 && name[0] == '(' {
			continue
		}
		out = append(out, Named{Name: name, Value: v})
	}
	return out
}

// ListUpvalues enumerates the upvalues of the function active at level.
func ListUpvalues(vm runtime.VM, level int) ([]Named, error) {
	frame, ok := vm.FrameAt(level)
	if !ok {
		return nil, fmt.Errorf("inspector: no frame at level %d", level)
	}
	fn := frame.Func()
	var out []Named
	for i := 1; ; i++ {
		name, v, ok := vm.UpvalueAt(fn, i)
		if !ok {
			break
		}
		out = append(out, Named{Name: name, Value: v})
	}
	return out, nil
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ListGlobals iterates the environment table visible at level, emitting
// only entries whose key is a string that is a valid identifier and
// contains no embedded NUL byte.
func ListGlobals(vm runtime.VM, level int) ([]Named, error) {
	env, ok := vm.EnvOf(level)
	if !ok {
		return nil, fmt.Errorf("inspector: no environment at level %d", level)
	}
	var out []Named
	key := runtime.Value{}
	for {
		k, v, ok := vm.Next(env, key)
		if !ok {
			break
		}
		key = k
		if k.Kind != runtime.KindString {
			continue
		}
		name := string(k.Str)
		if !identifierRE.MatchString(name) {
			continue
		}
		if containsNUL(k.Str) {
			continue
		}
		out = append(out, Named{Name: name, Value: v})
	}
	return out, nil
}

func containsNUL(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}

// Scope selects where a fresh (non-remembered) watch lookup starts.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeUpvalue
	ScopeGlobal
)

// LookupVar resolves name in scope at level. A local lookup takes the last
// matching declaration (shadowing); an upvalue lookup takes the first
// match; a global lookup indexes the environment table directly (any
// string key, not just identifiers — the identifier filter in ListGlobals
// is a display-only restriction).
func LookupVar(vm runtime.VM, level int, scope Scope, name string) (runtime.Value, error) {
	switch scope {
	case ScopeLocal:
		var found runtime.Value
		ok := false
		for i := 1; ; i++ {
			n, v, more := vm.LocalAt(level, i)
			if !more {
				break
			}
			if n == name {
				found, ok = v, true
			}
		}
		if !ok {
			return runtime.Value{}, fmt.Errorf("inspector: local %q not found", name)
		}
		return found, nil
	case ScopeUpvalue:
		frame, ok := vm.FrameAt(level)
		if !ok {
			return runtime.Value{}, fmt.Errorf("inspector: no frame at level %d", level)
		}
		fn := frame.Func()
		for i := 1; ; i++ {
			n, v, more := vm.UpvalueAt(fn, i)
			if !more {
				break
			}
			if n == name {
				return v, nil
			}
		}
		return runtime.Value{}, fmt.Errorf("inspector: upvalue %q not found", name)
	case ScopeGlobal:
		env, ok := vm.EnvOf(level)
		if !ok {
			return runtime.Value{}, fmt.Errorf("inspector: no environment at level %d", level)
		}
		v, ok := vm.Index(env, runtime.Value{Kind: runtime.KindString, Str: []byte(name)})
		if !ok {
			return runtime.Value{}, fmt.Errorf("inspector: global %q not found", name)
		}
		return v, nil
	default:
		return runtime.Value{}, fmt.Errorf("inspector: invalid scope %v", scope)
	}
}

// ResolvePath applies path left-to-right to base, following the field-path
// grammar from internal/wire.
//
// REDESIGN: unlike the C original's getFieldValueByPtr (which always
// searches for a LUA_TTABLE regardless of the selector's tag letter), the
// kind the selector names (table/function/userdata/thread) is the kind
// actually searched for. A |f<hex> selector can only ever resolve to a
// function.
func ResolvePath(vm runtime.VM, base runtime.Value, path []wire.Selector) (runtime.Value, error) {
	cur := base
	for _, sel := range path {
		if sel.Tag == wire.SelMetatable {
			mt, ok := vm.Metatable(cur)
			if !ok {
				return runtime.Value{}, fmt.Errorf("inspector: value has no metatable")
			}
			cur = mt
			continue
		}
		if cur.Kind != runtime.KindTable {
			return runtime.Value{}, fmt.Errorf("inspector: cannot index a non-table value")
		}
		next, err := indexByTag(vm, cur, sel)
		if err != nil {
			return runtime.Value{}, err
		}
		cur = next
	}
	return cur, nil
}

func indexByTag(vm runtime.VM, table runtime.Value, sel wire.Selector) (runtime.Value, error) {
	switch sel.Tag {
	case wire.SelByNumber:
		n, err := sel.NumberArg()
		if err != nil {
			return runtime.Value{}, fmt.Errorf("inspector: %w", err)
		}
		return indexOrErr(vm, table, runtime.Value{Kind: runtime.KindNumber, Number: n})
	case wire.SelByString:
		return indexOrErr(vm, table, runtime.Value{Kind: runtime.KindString, Str: []byte(sel.Arg)})
	case wire.SelByBool:
		b, err := sel.BoolArg()
		if err != nil {
			return runtime.Value{}, fmt.Errorf("inspector: %w", err)
		}
		return indexOrErr(vm, table, runtime.Value{Kind: runtime.KindBool, Bool: b})
	case wire.SelByLightUserdata:
		return indexOrErr(vm, table, runtime.Value{Kind: runtime.KindLightUserdata, Identity: sel.Arg})
	case wire.SelByTable:
		return findByValueIdentity(vm, table, runtime.KindTable, sel.Arg)
	case wire.SelByFunction:
		return findByValueIdentity(vm, table, runtime.KindFunction, sel.Arg)
	case wire.SelByUserdata:
		return findByValueIdentity(vm, table, runtime.KindUserdata, sel.Arg)
	case wire.SelByThread:
		return findByValueIdentity(vm, table, runtime.KindThread, sel.Arg)
	default:
		return runtime.Value{}, fmt.Errorf("inspector: unknown selector tag %q", rune(sel.Tag))
	}
}

func indexOrErr(vm runtime.VM, table, key runtime.Value) (runtime.Value, error) {
	v, ok := vm.Index(table, key)
	if !ok {
		return runtime.Value{}, fmt.Errorf("inspector: key not found in table")
	}
	return v, nil
}

// findByValueIdentity scans table's entries for one whose value has the
// given kind and identity, mirroring getFieldValueByPtr's lua_next walk.
func findByValueIdentity(vm runtime.VM, table runtime.Value, kind runtime.Kind, identity string) (runtime.Value, error) {
	key := runtime.Value{}
	for {
		k, v, ok := vm.Next(table, key)
		if !ok {
			return runtime.Value{}, fmt.Errorf("inspector: no entry with %v identity %s", kind, identity)
		}
		if v.Kind == kind && v.Identity == identity {
			return v, nil
		}
		key = k
	}
}
