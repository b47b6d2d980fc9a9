package inspector

import (
	"bytes"
	"testing"

	"github.com/ldbg-project/ldbg/internal/runtime/fake"
	"github.com/ldbg-project/ldbg/internal/sockbuf"
	"github.com/ldbg-project/ldbg/internal/wire"
)

func TestListLocalsSkipsTemporaries(t *testing.T) {
	vm := fake.New(1)
	fn := vm.NewFunction()
	env := vm.NewTable()
	vm.PushFrame("a.lua", 1, fn, []fake.NamedValue{
		{Name: "x", Value: fake.Number(1)},
		{Name: "(for state)", Value: fake.Number(2)},
		{Name: "y", Value: fake.String("hi")},
	}, env)

	locals := ListLocals(vm, 0)
	if len(locals) != 2 || locals[0].Name != "x" || locals[1].Name != "y" {
		t.Fatalf("ListLocals = %+v", locals)
	}
}

func TestLookupVarLocalTakesLastShadow(t *testing.T) {
	vm := fake.New(1)
	fn := vm.NewFunction()
	env := vm.NewTable()
	vm.PushFrame("a.lua", 1, fn, []fake.NamedValue{
		{Name: "x", Value: fake.Number(1)},
		{Name: "x", Value: fake.Number(2)},
	}, env)

	v, err := LookupVar(vm, 0, ScopeLocal, "x")
	if err != nil {
		t.Fatalf("LookupVar: %v", err)
	}
	if v.Number != 2 {
		t.Fatalf("got %+v, want shadowed value 2", v)
	}
}

func TestListGlobalsFiltersIdentifiers(t *testing.T) {
	vm := fake.New(1)
	fn := vm.NewFunction()
	env := vm.NewTable()
	vm.SetField(env, fake.String("validName"), fake.Number(1))
	vm.SetField(env, fake.String("1bad"), fake.Number(2))
	vm.SetField(env, fake.Number(3), fake.Number(3)) // non-string key
	vm.PushFrame("a.lua", 1, fn, nil, env)

	globals, err := ListGlobals(vm, 0)
	if err != nil {
		t.Fatalf("ListGlobals: %v", err)
	}
	if len(globals) != 1 || globals[0].Name != "validName" {
		t.Fatalf("ListGlobals = %+v", globals)
	}
}

func TestResolvePathNumberAndString(t *testing.T) {
	vm := fake.New(1)
	inner := vm.NewTable()
	vm.SetField(inner, fake.String("key"), fake.Number(42))
	outer := vm.NewTable()
	vm.SetField(outer, fake.Number(1), inner)

	path, err := wire.ParsePath("|n1|s'key'")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	v, err := ResolvePath(vm, outer, path)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if v.Number != 42 {
		t.Fatalf("got %+v, want 42", v)
	}
}

func TestResolvePathStrictIdentityByKind(t *testing.T) {
	vm := fake.New(1)
	fn := vm.NewFunction()
	other := vm.NewTable()
	outer := vm.NewTable()
	vm.SetField(outer, fake.Number(1), fn)
	vm.SetField(outer, fake.Number(2), other)

	// |f<hex> must resolve to the function, even though a REDESIGN-flagged
	// implementation would collapse this to a table search and could in
	// principle match the wrong kind of value.
	path, err := wire.ParsePath("|f" + fn.Identity)
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	v, err := ResolvePath(vm, outer, path)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if v.Kind.String() != "Function" {
		t.Fatalf("got kind %v, want Function", v.Kind)
	}

	// Asking for a table with the function's identity must fail: no table
	// shares that identity, and the strict implementation must not
	// mistakenly match the function value.
	path2, _ := wire.ParsePath("|t" + fn.Identity)
	if _, err := ResolvePath(vm, outer, path2); err == nil {
		t.Fatal("expected |t selector not to match a function's identity")
	}
}

func TestResolvePathMetatableHop(t *testing.T) {
	vm := fake.New(1)
	base := vm.NewTable()
	mt := vm.NewTable()
	vm.SetField(mt, fake.String("__index"), fake.Number(7))
	vm.SetMetatable(base, mt)

	path, err := wire.ParsePath("|m|s'__index'")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	v, err := ResolvePath(vm, base, path)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if v.Number != 7 {
		t.Fatalf("got %+v, want 7", v)
	}
}

func TestWriteWatchValueTable(t *testing.T) {
	vm := fake.New(1)
	tbl := vm.NewTable()
	vm.SetField(tbl, fake.String("a"), fake.Number(1))

	var out bytes.Buffer
	sb := sockbuf.New(&out)
	if err := WriteWatchValue(sb, vm, tbl); err != nil {
		t.Fatalf("WriteWatchValue: %v", err)
	}
	sb.Send()

	lines := wire.Lines(out.Bytes())
	if len(lines) < 2 || lines[0][0] != 't' {
		t.Fatalf("lines = %q, want header tagged 't'", lines)
	}
	if lines[1] != "0" {
		t.Fatalf("has_meta = %q, want 0", lines[1])
	}
}
