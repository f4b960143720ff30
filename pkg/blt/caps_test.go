package blt

import "testing"

func TestParseCommandRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range []CommandID{CmdBlockCopy, CmdCtrlSurfCopy, CmdFastCopy, CmdMemCopy, CmdMemSet, CmdSrcCopy, CmdColorBlt} {
		back, err := ParseCommand(c.String())
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", c.String(), err)
		}
		if back != c {
			t.Fatalf("ParseCommand(%q) = %v, want %v", c.String(), back, c)
		}
	}
	if _, err := ParseCommand("warp-blt"); err == nil {
		t.Fatalf("ParseCommand of unknown name should fail")
	}
}

func TestCommandSetLookups(t *testing.T) {
	t.Parallel()

	s := Gen12CommandSet()
	if !s.Supports(CmdBlockCopy) || !s.Supports(CmdMemSet) {
		t.Fatalf("gen12 set missing core commands")
	}
	if s.Supports(CmdSrcCopy) {
		t.Fatalf("src-copy should have no entry")
	}
	if !s.SupportsTiling(CmdBlockCopy, Tiling4) {
		t.Fatalf("block copy should support tile4")
	}
	if s.SupportsTiling(CmdBlockCopy, TilingY) {
		t.Fatalf("block copy should not list legacy ymajor")
	}
	if s.SupportsTiling(CmdMemCopy, Tiling4) {
		t.Fatalf("mem copy is linear only")
	}
	if s.SupportsTiling(CmdSrcCopy, TilingLinear) {
		t.Fatalf("missing command must report no tilings")
	}
	if s.HasFlag(CmdSrcCopy, CapCompression) {
		t.Fatalf("missing command must report no flags")
	}
}

// TestCommandSetVariants pins the one capability difference between the
// generations: only gen12 block copies take the extended layout.
func TestCommandSetVariants(t *testing.T) {
	t.Parallel()

	gen12 := CommandSetFor(Gen12)
	if !gen12.HasFlag(CmdBlockCopy, CapCompression|CapExtendedLayout) {
		t.Fatalf("gen12 block copy should carry compression and extended layout")
	}

	xe2 := CommandSetFor(Xe2)
	if !xe2.HasFlag(CmdBlockCopy, CapCompression) {
		t.Fatalf("xe2 block copy should carry compression")
	}
	if xe2.HasFlag(CmdBlockCopy, CapExtendedLayout) {
		t.Fatalf("xe2 block copy has no extended layout")
	}
}

func TestCommandSetCommandsOrdered(t *testing.T) {
	t.Parallel()

	ids := Gen12CommandSet().Commands()
	if len(ids) != 5 {
		t.Fatalf("gen12 set has %d commands, want 5", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("commands out of order: %v", ids)
		}
	}

	entry, ok := Gen12CommandSet().Lookup(CmdFastCopy)
	if !ok {
		t.Fatalf("fast copy entry missing")
	}
	if entry.Flags != 0 {
		t.Fatalf("fast copy should carry no flags, got %#x", entry.Flags)
	}
	if !entry.Tilings.Has(Tiling64) {
		t.Fatalf("fast copy should list tile64")
	}
}

func TestMaskOf(t *testing.T) {
	t.Parallel()

	m := MaskOf(TilingLinear, Tiling64)
	if !m.Has(TilingLinear) || !m.Has(Tiling64) {
		t.Fatalf("mask misses its own members: %#x", m)
	}
	if m.Has(TilingX) {
		t.Fatalf("mask includes xmajor: %#x", m)
	}
}
