package sourceview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// timeAfterPolls returns a poll budget: each call sleeps briefly and
// reports whether tries remain.
func timeAfterPolls(n int) func() bool {
	count := 0
	return func() bool {
		count++
		time.Sleep(10 * time.Millisecond)
		return count < n
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestShowBasic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", "one\ntwo\nthree\nfour\n")

	v := New()
	defer v.Close()

	var b strings.Builder
	next := v.Show(&b, "a.lua", 2, 2, path)
	want := "2: two\n3: three\n"
	if b.String() != want {
		t.Errorf("Show = %q, want %q", b.String(), want)
	}
	if next != 4 {
		t.Errorf("next = %d, want 4", next)
	}
}

func TestShowSearchPath(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirB, "a.lua", "from b\n")

	// dirA registered first but has no a.lua; dirB serves it.
	v := New(dirA, dirB)
	defer v.Close()

	var b strings.Builder
	v.Show(&b, "a.lua", 1, 1, "")
	if b.String() != "1: from b\n" {
		t.Errorf("Show = %q", b.String())
	}
}

func TestShowFullpathWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.lua", "from dir\n")
	full := writeFile(t, dir, "real.lua", "from fullpath\n")

	v := New(dir)
	defer v.Close()

	var b strings.Builder
	v.Show(&b, "a.lua", 1, 1, full)
	if b.String() != "1: from fullpath\n" {
		t.Errorf("Show = %q", b.String())
	}
}

func TestShowMissingFile(t *testing.T) {
	v := New()
	defer v.Close()

	var b strings.Builder
	v.Show(&b, "nope.lua", 1, 1, "")
	if !strings.Contains(b.String(), "nope.lua: ") {
		t.Errorf("Show = %q, want an error line", b.String())
	}
}

func TestShowBytecodeRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.luac", "\x1bLua precompiled junk")

	v := New()
	defer v.Close()

	var b strings.Builder
	v.Show(&b, "a.luac", 1, 1, path)
	if !strings.Contains(b.String(), "Binary source file") {
		t.Errorf("Show = %q, want bytecode refusal", b.String())
	}
}

func TestShowDefaultsAndClamping(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", "one\ntwo\n")

	v := New()
	defer v.Close()

	var b strings.Builder
	// Zero line and count clamp to 1 and DefaultCount; listing stops at EOF.
	next := v.Show(&b, "a.lua", 0, 0, path)
	if b.String() != "1: one\n2: two\n" {
		t.Errorf("Show = %q", b.String())
	}
	if next != 1+DefaultCount {
		t.Errorf("next = %d, want %d", next, 1+DefaultCount)
	}
}

func TestCacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.lua", "old\n")

	v := New(dir)
	defer v.Close()

	var b strings.Builder
	v.Show(&b, "a.lua", 1, 1, "")
	if b.String() != "1: old\n" {
		t.Fatalf("Show = %q", b.String())
	}

	writeFile(t, dir, "a.lua", "new\n")

	// The watcher invalidates asynchronously; poll briefly rather than
	// assuming delivery latency.
	deadline := timeAfterPolls(100)
	for {
		b.Reset()
		v.Show(&b, "a.lua", 1, 1, "")
		if b.String() == "1: new\n" {
			break
		}
		if !deadline() {
			t.Fatalf("cache never invalidated, last output %q", b.String())
		}
	}
	_ = path
}
