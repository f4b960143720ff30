package blt

import (
	"log/slog"
	"testing"
)

func TestDumpCorruption32(t *testing.T) {
	t.Parallel()

	mkSurface := func(handle uint32) (*Surface, *testBuf) {
		buf := newTestBuf(handle, 16*16*4)
		for i := range buf.data {
			buf.data[i] = byte(i)
		}
		s := NewSurface(buf, MemLocal, 16, 16, 32, 0, TilingLinear, false, Compression3D)
		return s, buf
	}

	a, _ := mkSurface(1)
	b, bBuf := mkSurface(2)

	// One corrupt pixel in the top-left block, two in the bottom-right.
	bBuf.data[0] ^= 0xff
	bBuf.data[(8*16+8)*4] ^= 0xff
	bBuf.data[(8*16+9)*4] ^= 0xff

	got, err := DumpCorruption32(a, b)
	if err != nil {
		t.Fatalf("dump corruption: %v", err)
	}
	if want := "1.\n.2\n"; got != want {
		t.Fatalf("corruption map = %q, want %q", got, want)
	}

	// Identical surfaces render as clean blocks.
	bBuf.data[0] ^= 0xff
	bBuf.data[(8*16+8)*4] ^= 0xff
	bBuf.data[(8*16+9)*4] ^= 0xff
	got, err = DumpCorruption32(a, b)
	if err != nil {
		t.Fatalf("dump corruption: %v", err)
	}
	if want := "..\n..\n"; got != want {
		t.Fatalf("clean map = %q, want %q", got, want)
	}
}

func TestDumpCorruption32RectMismatch(t *testing.T) {
	t.Parallel()

	a := NewSurface(newTestBuf(1, 16*16*4), MemLocal, 16, 16, 32, 0, TilingLinear, false, Compression3D)
	b := NewSurface(newTestBuf(2, 8*8*4), MemLocal, 8, 8, 32, 0, TilingLinear, false, Compression3D)
	if _, err := DumpCorruption32(a, b); err == nil {
		t.Fatalf("mismatched rectangles should fail")
	}
}

func TestDumpSurface(t *testing.T) {
	t.Parallel()

	h := &captureHandler{}
	s := NewSurface(&sizeBuf{handle: 9, size: 4096}, MemSystem, 16, 16, 32, 1, Tiling4, false, Compression3D)
	DumpSurface(slog.New(h), "dst", s)
	if !h.contains("surface") {
		t.Fatalf("no surface record logged, got %v", h.messages)
	}
}
