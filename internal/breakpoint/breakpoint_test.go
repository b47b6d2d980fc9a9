package breakpoint

import "testing"

func TestSetDedupesSameFileLine(t *testing.T) {
	tb := New()
	if err := tb.Set("/src/main.lua", 10); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tb.Set("main.lua", 10); err != nil {
		t.Fatalf("Set (dup): %v", err)
	}
	list := tb.List()
	if len(list) != 1 {
		t.Fatalf("List = %v, want 1 entry", list)
	}
}

func TestSetInvalidLine(t *testing.T) {
	tb := New()
	if err := tb.Set("main.lua", 0); err == nil {
		t.Fatal("expected error for line 0")
	}
	if err := tb.Set("main.lua", MaxLine); err == nil {
		t.Fatal("expected error for line == MaxLine")
	}
}

func TestHitTestHonorsEnabled(t *testing.T) {
	tb := New()
	tb.Set("main.lua", 5)
	if _, ok := tb.HitTest("main.lua", 5); !ok {
		t.Fatal("expected hit on enabled breakpoint")
	}
	if err := tb.Disable(1); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if _, ok := tb.HitTest("main.lua", 5); ok {
		t.Fatal("disabled breakpoint should not hit")
	}
	if err := tb.Enable(1); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if _, ok := tb.HitTest("main.lua", 5); !ok {
		t.Fatal("re-enabled breakpoint should hit")
	}
}

func TestOrdinalContiguityAfterDelete(t *testing.T) {
	tb := New()
	tb.Set("a.lua", 1)
	tb.Set("b.lua", 2)
	tb.Set("c.lua", 3)

	if err := tb.Delete(2); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	list := tb.List()
	if len(list) != 2 {
		t.Fatalf("List = %v, want 2 entries", list)
	}
	if list[0].Ordinal != 1 || list[0].Brk.File != "a.lua" {
		t.Fatalf("entry 0 = %+v, want a.lua at ordinal 1", list[0])
	}
	if list[1].Ordinal != 2 || list[1].Brk.File != "c.lua" {
		t.Fatalf("entry 1 = %+v, want c.lua at ordinal 2", list[1])
	}
}

func TestByOrdinalAndDeleteUnknown(t *testing.T) {
	tb := New()
	tb.Set("a.lua", 1)

	if _, ok := tb.ByOrdinal(0); ok {
		t.Fatal("ordinal 0 should not resolve")
	}
	if _, ok := tb.ByOrdinal(2); ok {
		t.Fatal("out-of-range ordinal should not resolve")
	}
	if err := tb.Delete(5); err == nil {
		t.Fatal("expected error deleting unknown ordinal")
	}
}

func TestClear(t *testing.T) {
	tb := New()
	tb.Set("a.lua", 1)
	tb.Set("b.lua", 2)
	tb.Clear()
	if len(tb.List()) != 0 {
		t.Fatal("expected empty table after Clear")
	}
	if _, ok := tb.HitTest("a.lua", 1); ok {
		t.Fatal("cleared table should not hit")
	}
}
