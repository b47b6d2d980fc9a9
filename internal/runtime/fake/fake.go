// Package fake is a small, pure-Go stand-in for a scripting runtime's
// introspection surface, used to exercise internal/hook, internal/inspector
// and internal/session without a real VM dependency. It is hand-built test
// fixture code, not a scripting language implementation.
package fake

import (
	"fmt"

	"github.com/ldbg-project/ldbg/internal/runtime"
)

// NamedValue pairs a variable name with its value, used for locals and
// upvalues fixtures.
type NamedValue struct {
	Name  string
	Value runtime.Value
}

type frame struct {
	src    string
	line   int
	fn     runtime.Value
	locals []NamedValue
	env    runtime.Value
	name   string
}

func (f *frame) CurrentLine() int    { return f.line }
func (f *frame) ShortSrc() string    { return f.src }
func (f *frame) Func() runtime.Value { return f.fn }
func (f *frame) FuncName() (string, bool) {
	if f.name == "" {
		return "", false
	}
	return f.name, true
}

type tableEntry struct {
	key runtime.Value
	val runtime.Value
}

type table struct {
	entries []tableEntry
	meta    string
}

type funcRec struct {
	upvalues        []NamedValue
	what            string
	src             string
	lineDefined     int
	lastLineDefined int
}

// VM is a fake runtime.VM. Build one with New, populate it with NewTable /
// NewFunction / SetField / PushFrame, then exercise it exactly like a real
// embedded runtime would be exercised by internal/hook and internal/session.
type VM struct {
	pid     int
	hook    runtime.HookFunc
	frames  []frame
	tables  map[string]*table
	funcs   map[string]*funcRec
	mem     []byte
	memBase uint64
	nextID  int

	udLen        map[string]int
	threadStatus map[string]int
}

// New returns an empty fake VM reporting pid as its process id.
func New(pid int) *VM {
	return &VM{
		pid:          pid,
		tables:       make(map[string]*table),
		funcs:        make(map[string]*funcRec),
		udLen:        make(map[string]int),
		threadStatus: make(map[string]int),
	}
}

func (m *VM) allocID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s%d", prefix, m.nextID)
}

// NewTable allocates a fresh empty table and returns a Value referring to it.
func (m *VM) NewTable() runtime.Value {
	id := m.allocID("t")
	m.tables[id] = &table{}
	return runtime.Value{Kind: runtime.KindTable, Identity: id}
}

// NewFunction allocates a fresh function identity with no upvalues yet.
func (m *VM) NewFunction() runtime.Value {
	id := m.allocID("f")
	m.funcs[id] = &funcRec{}
	return runtime.Value{Kind: runtime.KindFunction, Identity: id}
}

// NewUserdata and NewThread allocate bare identities of their respective
// kinds, useful for field-path identity-match fixtures.
func (m *VM) NewUserdata() runtime.Value {
	return runtime.Value{Kind: runtime.KindUserdata, Identity: m.allocID("u")}
}

func (m *VM) NewThread() runtime.Value {
	return runtime.Value{Kind: runtime.KindThread, Identity: m.allocID("d")}
}

// SetField inserts or replaces table[key] = val, preserving the insertion
// order Next relies on. table must have been returned by NewTable.
func (m *VM) SetField(tbl, key, val runtime.Value) {
	t := m.tables[tbl.Identity]
	for i, e := range t.entries {
		if valueEqual(e.key, key) {
			t.entries[i].val = val
			return
		}
	}
	t.entries = append(t.entries, tableEntry{key: key, val: val})
}

// SetMetatable attaches mt (a table Value) as v's metatable. v must be a
// table, the only kind this fake models as having one.
func (m *VM) SetMetatable(v, mt runtime.Value) {
	m.tables[v.Identity].meta = mt.Identity
}

// SetUpvalues sets fn's upvalue list, 1-indexed in the order given.
func (m *VM) SetUpvalues(fn runtime.Value, ups []NamedValue) {
	m.funcs[fn.Identity].upvalues = ups
}

// SetFunctionInfo attaches static metadata to a function value, as reported
// by FunctionInfo.
func (m *VM) SetFunctionInfo(fn runtime.Value, what, src string, lineDefined, lastLineDefined int) {
	rec := m.funcs[fn.Identity]
	rec.what = what
	rec.src = src
	rec.lineDefined = lineDefined
	rec.lastLineDefined = lastLineDefined
}

// SetUserdataLen records the byte length a full userdata value reports.
func (m *VM) SetUserdataLen(u runtime.Value, n int) {
	m.udLen[u.Identity] = n
}

// SetThreadStatus records the status code a thread value reports.
func (m *VM) SetThreadStatus(th runtime.Value, status int) {
	m.threadStatus[th.Identity] = status
}

// PushFrame pushes a new innermost activation record.
func (m *VM) PushFrame(src string, line int, fn runtime.Value, locals []NamedValue, env runtime.Value) {
	m.frames = append(m.frames, frame{src: src, line: line, fn: fn, locals: locals, env: env})
}

// PopFrame pops the innermost activation record, simulating a return.
func (m *VM) PopFrame() {
	if len(m.frames) > 0 {
		m.frames = m.frames[:len(m.frames)-1]
	}
}

// SetLine updates the innermost frame's current line, simulating execution
// stepping to a new line without a call/return.
func (m *VM) SetLine(line int) {
	if len(m.frames) > 0 {
		m.frames[len(m.frames)-1].line = line
	}
}

// SetFrameName attaches a symbolic function name to the innermost frame, as
// reported by FuncName.
func (m *VM) SetFrameName(name string) {
	if len(m.frames) > 0 {
		m.frames[len(m.frames)-1].name = name
	}
}

// SetMemory installs the simulated address space ReadMemory serves reads
// from, starting at base.
func (m *VM) SetMemory(base uint64, data []byte) {
	m.memBase = base
	m.mem = data
}

// Fire invokes the installed hook, if any, with the innermost frame.
func (m *VM) Fire(ev runtime.Event) {
	if m.hook == nil || len(m.frames) == 0 {
		return
	}
	m.hook(ev, &m.frames[len(m.frames)-1])
}

// SetHook implements runtime.VM.
func (m *VM) SetHook(fn runtime.HookFunc) { m.hook = fn }

// ClearHook implements runtime.VM.
func (m *VM) ClearHook() { m.hook = nil }

// FrameAt implements runtime.VM.
func (m *VM) FrameAt(level int) (runtime.Frame, bool) {
	idx := len(m.frames) - 1 - level
	if idx < 0 || idx >= len(m.frames) {
		return nil, false
	}
	return &m.frames[idx], true
}

// LocalAt implements runtime.VM.
func (m *VM) LocalAt(level, idx int) (string, runtime.Value, bool) {
	f, ok := m.FrameAt(level)
	if !ok {
		return "", runtime.Value{}, false
	}
	locals := f.(*frame).locals
	if idx < 1 || idx > len(locals) {
		return "", runtime.Value{}, false
	}
	lv := locals[idx-1]
	return lv.Name, lv.Value, true
}

// UpvalueAt implements runtime.VM.
func (m *VM) UpvalueAt(fn runtime.Value, idx int) (string, runtime.Value, bool) {
	rec, ok := m.funcs[fn.Identity]
	if !ok || idx < 1 || idx > len(rec.upvalues) {
		return "", runtime.Value{}, false
	}
	uv := rec.upvalues[idx-1]
	return uv.Name, uv.Value, true
}

// EnvOf implements runtime.VM.
func (m *VM) EnvOf(level int) (runtime.Value, bool) {
	f, ok := m.FrameAt(level)
	if !ok {
		return runtime.Value{}, false
	}
	return f.(*frame).env, true
}

// Index implements runtime.VM.
func (m *VM) Index(tbl, key runtime.Value) (runtime.Value, bool) {
	t, ok := m.tables[tbl.Identity]
	if !ok {
		return runtime.Value{}, false
	}
	for _, e := range t.entries {
		if valueEqual(e.key, key) {
			return e.val, true
		}
	}
	return runtime.Value{}, false
}

// Next implements runtime.VM. The zero Value starts iteration.
func (m *VM) Next(tbl, key runtime.Value) (runtime.Value, runtime.Value, bool) {
	t, ok := m.tables[tbl.Identity]
	if !ok {
		return runtime.Value{}, runtime.Value{}, false
	}
	if isZero(key) {
		if len(t.entries) == 0 {
			return runtime.Value{}, runtime.Value{}, false
		}
		return t.entries[0].key, t.entries[0].val, true
	}
	for i, e := range t.entries {
		if valueEqual(e.key, key) {
			if i+1 < len(t.entries) {
				return t.entries[i+1].key, t.entries[i+1].val, true
			}
			return runtime.Value{}, runtime.Value{}, false
		}
	}
	return runtime.Value{}, runtime.Value{}, false
}

// Metatable implements runtime.VM.
func (m *VM) Metatable(v runtime.Value) (runtime.Value, bool) {
	t, ok := m.tables[v.Identity]
	if !ok || t.meta == "" {
		return runtime.Value{}, false
	}
	return runtime.Value{Kind: runtime.KindTable, Identity: t.meta}, true
}

// ReadMemory implements runtime.VM over the simulated address space
// installed by SetMemory.
func (m *VM) ReadMemory(addr uint64, buf []byte) (int, error) {
	if addr < m.memBase || addr >= m.memBase+uint64(len(m.mem)) {
		return 0, fmt.Errorf("fake: address %#x out of range", addr)
	}
	off := addr - m.memBase
	n := copy(buf, m.mem[off:])
	return n, nil
}

// Pid implements runtime.VM.
func (m *VM) Pid() int { return m.pid }

// FunctionInfo implements runtime.VM.
func (m *VM) FunctionInfo(fn runtime.Value) (string, string, int, int, bool) {
	rec, ok := m.funcs[fn.Identity]
	if !ok {
		return "", "", 0, 0, false
	}
	return rec.what, rec.src, rec.lineDefined, rec.lastLineDefined, true
}

// UserdataLen implements runtime.VM.
func (m *VM) UserdataLen(u runtime.Value) (int, bool) {
	n, ok := m.udLen[u.Identity]
	return n, ok
}

// ThreadStatus implements runtime.VM.
func (m *VM) ThreadStatus(th runtime.Value) (int, bool) {
	s, ok := m.threadStatus[th.Identity]
	return s, ok
}

// isZero reports whether v is the zero Value, used as the "start of
// iteration" sentinel by Next — no valid table key is ever nil.
func isZero(v runtime.Value) bool {
	return v.Kind == runtime.KindNil && v.Identity == "" && len(v.Str) == 0 && v.Number == 0 && !v.Bool
}

func valueEqual(a, b runtime.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case runtime.KindNil:
		return true
	case runtime.KindBool:
		return a.Bool == b.Bool
	case runtime.KindNumber:
		return a.Number == b.Number
	case runtime.KindString:
		return string(a.Str) == string(b.Str)
	default:
		return a.Identity == b.Identity
	}
}

// Convenience constructors for building fixture values.

func Number(f float64) runtime.Value { return runtime.Value{Kind: runtime.KindNumber, Number: f} }
func String(s string) runtime.Value  { return runtime.Value{Kind: runtime.KindString, Str: []byte(s)} }
func Bool(b bool) runtime.Value      { return runtime.Value{Kind: runtime.KindBool, Bool: b} }
func Nil() runtime.Value             { return runtime.Value{} }
