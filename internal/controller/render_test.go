package controller

import (
	"strings"
	"testing"
)

func TestRenderValue(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"number", "n7", "Type:NUM \tValue:7"},
		{"float", "n3.5", "Type:NUM \tValue:3.5"},
		{"bool", "b1", "Type:BLN \tValue:1"},
		{"nil", "l", "Type:NIL \tValue:nil"},
		{"table", "t0xc0ffee", "Type:TAB \tValue:0xc0ffee"},
		{"function", "f0x1", "Type:FNC \tValue:0x1"},
		{"lightuserdata", "U0x2", "Type:LUD \tValue:0x2"},
		{"thread", "d0x3", "Type:THD \tValue:0x3"},
		{"string", "s0xbeef:2:2:6869", "Type:STR \tValue:0xbeef Length:2 Truncated-to:2 Content:hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := renderValue(&b, tt.line); err != nil {
				t.Fatalf("renderValue(%q): %v", tt.line, err)
			}
			if b.String() != tt.want {
				t.Errorf("renderValue(%q) = %q, want %q", tt.line, b.String(), tt.want)
			}
		})
	}
}

func TestRenderValueMalformed(t *testing.T) {
	for _, line := range []string{"", "x1", "s0xbeef:2:2:68", "s0xbeef:2", "sppp:2:2:zz69"} {
		var b strings.Builder
		if err := renderValue(&b, line); err == nil {
			t.Errorf("renderValue(%q): expected error", line)
		}
	}
}

func TestRenderNamedList(t *testing.T) {
	var b strings.Builder
	body := []string{"x", "n7", "s", "s0xbeef:2:2:6869"}
	if err := renderNamedList(&b, body); err != nil {
		t.Fatalf("renderNamedList: %v", err)
	}
	want := "Name:x \tType:NUM \tValue:7\n" +
		"Name:s \tType:STR \tValue:0xbeef Length:2 Truncated-to:2 Content:hi\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}

	if err := renderNamedList(&b, []string{"odd"}); err == nil {
		t.Error("odd-length body: expected error")
	}
}

func TestRenderStack(t *testing.T) {
	var b strings.Builder
	body := []string{"a.lua", "3", "tick", "Lua", "a.lua", "10", "[N/A]", "main"}
	if err := renderStack(&b, body); err != nil {
		t.Fatalf("renderStack: %v", err)
	}
	want := "At \"a.lua:3\" \ttick \tLua\n" +
		"At \"a.lua:10\" \t[N/A] \tmain\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestRenderBreakList(t *testing.T) {
	var b strings.Builder
	body := []string{"1", "a.lua", "10", "1", "2", "c.lua", "30", "0"}
	if err := renderBreakList(&b, body); err != nil {
		t.Fatalf("renderBreakList: %v", err)
	}
	want := "1. \"a.lua:10\", enable\n2. \"c.lua:30\", disable\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestRenderWatchTable(t *testing.T) {
	var b strings.Builder
	body := []string{"t0x1", "1", "s0xk:1:1:6b", "n3.5"}
	if err := renderWatch(&b, body); err != nil {
		t.Fatalf("renderWatch: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"Type:TAB \tValue:0x1\n",
		"HasMetatable:Yes\n",
		watchSeparator + "\n",
		"Content:k\n",
		"Type:NUM \tValue:3.5\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWatchScalar(t *testing.T) {
	var b strings.Builder
	if err := renderWatch(&b, []string{"n3.5", "0"}); err != nil {
		t.Fatalf("renderWatch: %v", err)
	}
	want := "Type:NUM \tValue:3.5\nHasMetatable:No\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestRenderWatchFunction(t *testing.T) {
	var b strings.Builder
	body := []string{"f0x9", "0", "Lua", "a.lua", "4", "6"}
	if err := renderWatch(&b, body); err != nil {
		t.Fatalf("renderWatch: %v", err)
	}
	if !strings.Contains(b.String(), "What:Lua \tFile:a.lua \tLineDefined:4 \tLastLine:6\n") {
		t.Errorf("unexpected output: %q", b.String())
	}
}

func TestRenderWatchUserdataAndThread(t *testing.T) {
	var b strings.Builder
	if err := renderWatch(&b, []string{"u0x9", "1", "128"}); err != nil {
		t.Fatalf("userdata: %v", err)
	}
	if !strings.Contains(b.String(), "Size:128\n") {
		t.Errorf("unexpected userdata output: %q", b.String())
	}

	b.Reset()
	if err := renderWatch(&b, []string{"d0x9", "0", "1"}); err != nil {
		t.Fatalf("thread: %v", err)
	}
	if !strings.Contains(b.String(), "Status:1\n") {
		t.Errorf("unexpected thread output: %q", b.String())
	}
}

func TestRenderWatchMalformed(t *testing.T) {
	cases := [][]string{
		{},
		{"n1"},
		{"n1", "2"},
		{"t0x1", "1", "lonely-key"},
		{"u0x1", "0"},
		{"f0x1", "0", "Lua"},
		{"n1", "0", "extra"},
	}
	for _, body := range cases {
		var b strings.Builder
		if err := renderWatch(&b, body); err == nil {
			t.Errorf("renderWatch(%v): expected error", body)
		}
	}
}
