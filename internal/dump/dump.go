// Package dump implements the 16-column memory-dump streamer (spec.md
// §4.6): hex+ASCII rows over an arbitrarily-chunked byte provider, with
// correct padding for a start address that isn't 16-byte aligned.
//
// Grounded on original_source/lldbg/Dump.c (RowData/RD_Init/RD_Get/Dump).
package dump

import (
	"fmt"
	"io"
)

// Columns is the fixed row width, mirroring Dump.c's COLUMN.
const Columns = 16

// Provider yields successive byte chunks to dump. Next returns io.EOF once
// exhausted; any other error aborts the dump and is returned to the caller,
// mirroring the C original's DataProvider returning a negative code.
type Provider interface {
	Next() ([]byte, error)
}

// SliceProvider serves a single in-memory byte slice as one chunk, useful
// for tests and for small reads served directly from runtime.VM.ReadMemory.
type SliceProvider struct {
	data []byte
	sent bool
}

// NewSliceProvider wraps data as a one-shot Provider.
func NewSliceProvider(data []byte) *SliceProvider { return &SliceProvider{data: data} }

// Next implements Provider.
func (p *SliceProvider) Next() ([]byte, error) {
	if p.sent {
		return nil, io.EOF
	}
	p.sent = true
	if len(p.data) == 0 {
		return nil, io.EOF
	}
	return p.data, nil
}

const columnHeaderLine = "Address  :  0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F ;\n"

// DefaultHeader and DefaultFooter are used when Dump is called with an
// empty header/footer string.
func DefaultHeader(vaddr uint64) string {
	return fmt.Sprintf("==========================Begin dumping at 0x%xh=========================\n", vaddr)
}

const DefaultFooter = "============================= End dumping memory ============================\n"

// Dump streams provider's bytes as Columns-wide hex+ASCII rows starting at
// addr, writing to w. An empty header/footer uses the package defaults.
// Returns any error from provider or from w, or nil on a clean end-of-data.
func Dump(w io.Writer, addr uint64, provider Provider, header, footer string) error {
	firstCol := int(addr % Columns)
	vaddr := addr - uint64(firstCol)

	if header == "" {
		header = DefaultHeader(vaddr)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, columnHeaderLine); err != nil {
		return err
	}

	leadPad := firstCol
	var carry []byte
	eof := false

	for {
		for leadPad < Columns && len(carry) >= Columns-leadPad {
			n := Columns - leadPad
			if err := writeRow(w, vaddr, leadPad, carry[:n], 0); err != nil {
				return err
			}
			carry = carry[n:]
			vaddr += Columns
			leadPad = 0
		}
		if eof {
			break
		}
		chunk, err := provider.Next()
		if err != nil {
			if err == io.EOF {
				eof = true
				continue
			}
			return err
		}
		carry = append(carry, chunk...)
	}

	if len(carry) > 0 || leadPad > 0 {
		trailPad := Columns - leadPad - len(carry)
		if err := writeRow(w, vaddr, leadPad, carry, trailPad); err != nil {
			return err
		}
	}

	if footer == "" {
		footer = DefaultFooter
	}
	_, err := io.WriteString(w, footer)
	return err
}

func writeRow(w io.Writer, vaddr uint64, leadPad int, body []byte, trailPad int) error {
	if _, err := fmt.Fprintf(w, "0x%xh: ", vaddr); err != nil {
		return err
	}
	for i := 0; i < leadPad; i++ {
		if _, err := io.WriteString(w, "   "); err != nil {
			return err
		}
	}
	for _, b := range body {
		if _, err := fmt.Fprintf(w, "%02x ", b); err != nil {
			return err
		}
	}
	for i := 0; i < trailPad; i++ {
		if _, err := io.WriteString(w, "   "); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "; "); err != nil {
		return err
	}
	for i := 0; i < leadPad; i++ {
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
	}
	for _, b := range body {
		if _, err := w.Write([]byte{printableChar(b)}); err != nil {
			return err
		}
	}
	for i := 0; i < trailPad; i++ {
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func printableChar(b byte) byte {
	if b >= 32 && b <= 126 {
		return b
	}
	return '.'
}
