package blt

import "testing"

func TestParseTilingRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tl := range []Tiling{TilingLinear, TilingX, TilingY, Tiling4, Tiling64, TilingYf, TilingYs} {
		back, err := ParseTiling(tl.String())
		if err != nil {
			t.Fatalf("ParseTiling(%q): %v", tl.String(), err)
		}
		if back != tl {
			t.Fatalf("ParseTiling(%q) = %v, want %v", tl.String(), back, tl)
		}
	}
	if _, err := ParseTiling("tile9"); err == nil {
		t.Fatalf("ParseTiling of unknown name should fail")
	}
}

func TestMinStrideLinear(t *testing.T) {
	t.Parallel()

	if got := MinStride(256, 32, TilingLinear); got != 1024 {
		t.Fatalf("linear stride = %d, want 1024", got)
	}
	if got := MinStride(100, 8, TilingLinear); got != 100 {
		t.Fatalf("linear 8bpp stride = %d, want 100", got)
	}
}

// TestMinStrideAligned checks that every tiled stride covers the raw row
// bytes and that feeding a stride-wide surface back in returns the same
// stride, so repeated sizing cannot creep.
func TestMinStrideAligned(t *testing.T) {
	t.Parallel()

	tilings := []Tiling{TilingX, TilingY, Tiling4, Tiling64, TilingYf}
	for _, tl := range tilings {
		for _, bpp := range []uint32{8, 16, 32, 64, 128} {
			for _, width := range []uint32{1, 63, 100, 257, 1920} {
				stride := MinStride(width, bpp, tl)
				if stride < width*bpp/8 {
					t.Fatalf("%v %dbpp width %d: stride %d below row bytes %d",
						tl, bpp, width, stride, width*bpp/8)
				}
				again := MinStride(stride*8/bpp, bpp, tl)
				if again != stride {
					t.Fatalf("%v %dbpp width %d: stride %d re-sizes to %d",
						tl, bpp, width, stride, again)
				}
			}
		}
	}
}

func TestMinStrideTile64ByDepth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		width, bpp, want uint32
	}{
		{100, 8, 256},
		{300, 8, 512},
		{100, 16, 512},
		{256, 32, 1024},
		{100, 64, 1024},
		{100, 128, 2048},
	}
	for _, c := range cases {
		if got := MinStride(c.width, c.bpp, Tiling64); got != c.want {
			t.Fatalf("tile64 %dbpp width %d: stride %d, want %d", c.bpp, c.width, got, c.want)
		}
	}
}

func TestAlignedHeight(t *testing.T) {
	t.Parallel()

	if got := AlignedHeight(100, 32, TilingLinear); got != 100 {
		t.Fatalf("linear height = %d", got)
	}
	if got := AlignedHeight(100, 32, TilingX); got != 104 {
		t.Fatalf("tileX height = %d, want 104", got)
	}
	if got := AlignedHeight(100, 32, Tiling4); got != 128 {
		t.Fatalf("tile4 height = %d, want 128", got)
	}

	// Tile64 row alignment depends on the pixel depth.
	for bpp, want := range map[uint32]uint32{8: 256, 16: 128, 32: 128, 64: 64, 128: 64} {
		if got := AlignedHeight(30, bpp, Tiling64); got != want {
			t.Fatalf("tile64 %dbpp height = %d, want %d", bpp, got, want)
		}
	}
}

func TestAlignedHeightIdempotent(t *testing.T) {
	t.Parallel()

	for _, tl := range []Tiling{TilingLinear, TilingX, TilingY, Tiling4, Tiling64} {
		for _, bpp := range []uint32{8, 16, 32, 64, 128} {
			for _, h := range []uint32{1, 33, 100, 719} {
				once := AlignedHeight(h, bpp, tl)
				if once < h {
					t.Fatalf("%v %dbpp: aligned height %d below input %d", tl, bpp, once, h)
				}
				if twice := AlignedHeight(once, bpp, tl); twice != once {
					t.Fatalf("%v %dbpp: height %d re-aligns to %d", tl, bpp, once, twice)
				}
			}
		}
	}
}

func TestSurfaceSize(t *testing.T) {
	t.Parallel()

	if got := SurfaceSize(256, 256, 32, TilingLinear); got != 256*1024 {
		t.Fatalf("linear surface size = %d", got)
	}
	// 256x256 at 32bpp: stride 1024 aligned to 512, height aligned to 128.
	if got := SurfaceSize(256, 256, 32, Tiling64); got != 1024*256 {
		t.Fatalf("tile64 surface size = %d", got)
	}
	if got := SurfaceSize(100, 100, 32, Tiling4); got != 512*128 {
		t.Fatalf("tile4 surface size = %d", got)
	}
}

func TestBlockTilingEncoding(t *testing.T) {
	t.Parallel()

	for tl, want := range map[Tiling]uint32{
		TilingLinear: 0,
		TilingX:      1,
		TilingY:      1,
		Tiling4:      2,
		TilingYf:     2,
		Tiling64:     3,
	} {
		if got := blockTiling(tl); got != want {
			t.Fatalf("blockTiling(%v) = %d, want %d", tl, got, want)
		}
	}
	if got := blockTiling(TilingYs); got != 0 {
		t.Fatalf("blockTiling(%v) = %d, want linear fallback", TilingYs, got)
	}
}

func TestFastTilingEncoding(t *testing.T) {
	t.Parallel()

	for tl, want := range map[Tiling]uint32{
		TilingLinear: 0,
		TilingX:      1,
		TilingY:      2,
		Tiling4:      2,
		TilingYf:     2,
		Tiling64:     3,
	} {
		if got := fastTiling(tl); got != want {
			t.Fatalf("fastTiling(%v) = %d, want %d", tl, got, want)
		}
	}
}

func TestNewSurfaceGeometry(t *testing.T) {
	t.Parallel()

	buf := &sizeBuf{handle: 1, size: SurfaceSize(256, 256, 32, TilingLinear)}
	s := NewSurface(buf, MemLocal, 256, 256, 32, 0, TilingLinear, false, Compression3D)
	if s.Pitch != 1024 {
		t.Fatalf("linear pitch = %d, want 1024", s.Pitch)
	}
	if s.X1 != 0 || s.Y1 != 0 || s.X2 != 256 || s.Y2 != 256 {
		t.Fatalf("rectangle = (%d,%d)-(%d,%d)", s.X1, s.Y1, s.X2, s.Y2)
	}

	// Tiled pitches are carried in dwords.
	ts := NewSurface(buf, MemLocal, 256, 256, 32, 0, Tiling4, false, Compression3D)
	if ts.Pitch != 1024/4 {
		t.Fatalf("tile4 pitch = %d, want %d dwords", ts.Pitch, 1024/4)
	}
}
