package dump

import (
	"bytes"
	"strings"
	"testing"
)

func TestDumpAlignedExactRows(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	var out bytes.Buffer
	if err := Dump(&out, 0x1000, NewSliceProvider(data), "", ""); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	// header + column-header + 2 full rows + footer + trailing empty split.
	var rowLines []string
	for _, l := range lines {
		if strings.HasPrefix(l, "0x") {
			rowLines = append(rowLines, l)
		}
	}
	if len(rowLines) != 2 {
		t.Fatalf("got %d data rows, want 2: %q", len(rowLines), rowLines)
	}
	if !strings.Contains(rowLines[0], "00 01 02 03") {
		t.Fatalf("row 0 = %q", rowLines[0])
	}
}

func TestDumpMisalignedFirstRowPadsFront(t *testing.T) {
	data := []byte("hello")
	var out bytes.Buffer
	// addr%16 == 3, so the first row should show 3 leading blank hex slots.
	if err := Dump(&out, 0x1003, NewSliceProvider(data), "", ""); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	lines := strings.Split(out.String(), "\n")
	var row string
	for _, l := range lines {
		if strings.HasPrefix(l, "0x") {
			row = l
			break
		}
	}
	if row == "" {
		t.Fatal("no data row found")
	}
	if !strings.Contains(row, "0x1000h:    ") {
		t.Fatalf("row should show address rounded down to 0x1000 with leading pad, got %q", row)
	}
	if !strings.Contains(row, "68 65 6c 6c 6f") {
		t.Fatalf("row should contain hex for 'hello', got %q", row)
	}
}

func TestDumpPartialLastRowPadsBack(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC}
	var out bytes.Buffer
	if err := Dump(&out, 0x2000, NewSliceProvider(data), "", ""); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(out.String(), "aa bb cc") {
		t.Fatalf("output missing hex bytes: %q", out.String())
	}
	// ASCII column renders non-printable bytes as '.'.
	if !strings.Contains(out.String(), "...") {
		t.Fatalf("output missing ASCII dots for non-printable bytes: %q", out.String())
	}
}

func TestDumpEmptyProviderProducesNoRows(t *testing.T) {
	var out bytes.Buffer
	if err := Dump(&out, 0x3000, NewSliceProvider(nil), "", ""); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(l, "0x") {
			t.Fatalf("expected no data rows, got %q", l)
		}
	}
}

func TestDumpCustomHeaderFooter(t *testing.T) {
	var out bytes.Buffer
	if err := Dump(&out, 0, NewSliceProvider([]byte{1}), "HEAD\n", "FOOT\n"); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.HasPrefix(out.String(), "HEAD\n") {
		t.Fatalf("expected custom header, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "FOOT\n") {
		t.Fatalf("expected custom footer, got %q", out.String())
	}
}
