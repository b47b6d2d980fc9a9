// Package breakpoint implements the debuggee's breakpoint table (spec.md
// §4.3): dual-indexed by line number for O(1) hit-testing and by insertion
// order for 1-based ordinal addressing from the "db"/"en"/"dis" commands.
//
// Grounded on original_source/lldb/Debugger.c (BRK, BRKNew, BRKFree,
// setBreakPoint, checkBreakPoint, oprBreakPoint, listBreakPoints).
package breakpoint

import (
	"fmt"
	"path"
	"strings"
)

// MaxLine mirrors MAX_LINENO: one past the largest line number a breakpoint
// may sit on (valid lines are 1..MaxLine-1), and the size of the
// line-indexed bucket array.
const MaxLine = 65536

// Breakpoint is one set breakpoint. File is always a base name: the table
// never stores or compares directory components, matching getFileName's
// basename normalization in the C original.
type Breakpoint struct {
	File    string
	Line    int
	Enabled bool
}

// Table is a breakpoint set. The zero value is not usable; call New.
type Table struct {
	buckets [MaxLine][]*Breakpoint // hash-bucket view, for hit-testing
	order   []*Breakpoint          // insertion-ordered view, for ordinal addressing
}

// New returns an empty breakpoint table.
func New() *Table {
	return &Table{}
}

// Set inserts a breakpoint at (file, line) if one isn't already present
// there. Re-setting an existing breakpoint is not an error: Set always
// succeeds, matching setBreakPoint's "found => just reply OK" behavior.
// file may be a path; only its base name is stored and compared.
func (t *Table) Set(file string, line int) error {
	if line <= 0 || line >= MaxLine {
		return fmt.Errorf("breakpoint: invalid line number %d", line)
	}
	name := baseName(file)

	for _, b := range t.buckets[line] {
		if b.File == name {
			return nil
		}
	}

	b := &Breakpoint{File: name, Line: line, Enabled: true}
	t.buckets[line] = append(t.buckets[line], b)
	t.order = append(t.order, b)
	return nil
}

// HitTest reports the enabled breakpoint at (file, line), if any. file may
// be a path; only its base name is compared.
func (t *Table) HitTest(file string, line int) (*Breakpoint, bool) {
	if line < 0 || line >= MaxLine {
		return nil, false
	}
	name := baseName(file)
	for _, b := range t.buckets[line] {
		if b.Enabled && b.File == name {
			return b, true
		}
	}
	return nil, false
}

// ByOrdinal returns the breakpoint at 1-based ordinal idx in insertion
// order, matching oprBreakPoint's list walk.
func (t *Table) ByOrdinal(idx int) (*Breakpoint, bool) {
	if idx < 1 || idx > len(t.order) {
		return nil, false
	}
	// order may contain nil holes left by Delete; walk skipping them while
	// counting only live entries.
	n := 0
	for _, b := range t.order {
		if b == nil {
			continue
		}
		n++
		if n == idx {
			return b, true
		}
	}
	return nil, false
}

// Delete removes the breakpoint at 1-based ordinal idx.
func (t *Table) Delete(idx int) error {
	b, i, ok := t.findOrdinal(idx)
	if !ok {
		return fmt.Errorf("breakpoint: not found")
	}
	t.removeFromBucket(b)
	t.order[i] = nil
	return nil
}

// Enable sets the enabled flag on the breakpoint at 1-based ordinal idx.
func (t *Table) Enable(idx int) error {
	b, _, ok := t.findOrdinal(idx)
	if !ok {
		return fmt.Errorf("breakpoint: not found")
	}
	b.Enabled = true
	return nil
}

// Disable clears the enabled flag on the breakpoint at 1-based ordinal idx.
func (t *Table) Disable(idx int) error {
	b, _, ok := t.findOrdinal(idx)
	if !ok {
		return fmt.Errorf("breakpoint: not found")
	}
	b.Enabled = false
	return nil
}

// List returns all live breakpoints with their 1-based ordinal, in
// insertion order. Grounded on Debugger.c's lb/listBreakPoints.
func (t *Table) List() []struct {
	Ordinal int
	Brk     *Breakpoint
} {
	var out []struct {
		Ordinal int
		Brk     *Breakpoint
	}
	n := 0
	for _, b := range t.order {
		if b == nil {
			continue
		}
		n++
		out = append(out, struct {
			Ordinal int
			Brk     *Breakpoint
		}{Ordinal: n, Brk: b})
	}
	return out
}

// Clear removes every breakpoint, matching clearhooks' teardown sweep.
func (t *Table) Clear() {
	for i := range t.buckets {
		t.buckets[i] = nil
	}
	t.order = nil
}

func (t *Table) findOrdinal(idx int) (*Breakpoint, int, bool) {
	if idx < 1 {
		return nil, -1, false
	}
	n := 0
	for i, b := range t.order {
		if b == nil {
			continue
		}
		n++
		if n == idx {
			return b, i, true
		}
	}
	return nil, -1, false
}

func (t *Table) removeFromBucket(b *Breakpoint) {
	bucket := t.buckets[b.Line]
	for i, cand := range bucket {
		if cand == b {
			t.buckets[b.Line] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// baseName strips directory components the way getFileName does, folding
// case on hosts with case-insensitive filesystems. The resolution of the
// literal "." ("use the current source file") happens one layer up, where
// the current source file is known.
func baseName(file string) string {
	return normalizeCase(path.Base(strings.ReplaceAll(file, "\\", "/")))
}
