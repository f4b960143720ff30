package blt

import "fmt"

// Tiling is the physical memory layout of a 2D surface.
type Tiling uint8

const (
	TilingLinear Tiling = iota
	TilingX
	TilingY
	Tiling4
	Tiling64
	TilingYf
	TilingYs
)

var tilingNames = [...]string{
	TilingLinear: "linear",
	TilingX:      "xmajor",
	TilingY:      "ymajor",
	Tiling4:      "tile4",
	Tiling64:     "tile64",
	TilingYf:     "yfmajor",
	TilingYs:     "ysmajor",
}

func (t Tiling) String() string {
	if int(t) < len(tilingNames) {
		return tilingNames[t]
	}
	return fmt.Sprintf("tiling(%d)", uint8(t))
}

// ParseTiling maps a tiling name back to its Tiling value.
func ParseTiling(name string) (Tiling, error) {
	for t, n := range tilingNames {
		if n == name {
			return Tiling(t), nil
		}
	}
	return 0, fmt.Errorf("unknown tiling %q", name)
}

func align32(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// MinStride returns the minimum stride in bytes a surface of the given
// width, bits per pixel and tiling may use. Tilings without a dedicated
// rule share the generic 128-byte alignment.
func MinStride(width, bpp uint32, tiling Tiling) uint32 {
	switch tiling {
	case TilingLinear:
		return width * bpp / 8
	case TilingX:
		return align32(width*bpp/8, 512)
	case Tiling64:
		if bpp == 8 {
			return align32(width, 256)
		} else if bpp == 16 || bpp == 32 {
			return align32(width*bpp/8, 512)
		}
		return align32(width*bpp/8, 1024)
	default:
		return align32(width*bpp/8, 128)
	}
}

// AlignedHeight returns the row count a surface allocation must cover for
// the given tiling. Tile64 alignment depends on bits per pixel because its
// tile geometry does.
func AlignedHeight(height, bpp uint32, tiling Tiling) uint32 {
	switch tiling {
	case TilingLinear:
		return height
	case TilingX:
		return align32(height, 8)
	case Tiling64:
		if bpp == 8 {
			return align32(height, 256)
		} else if bpp == 16 || bpp == 32 {
			return align32(height, 128)
		}
		return align32(height, 64)
	default:
		return align32(height, 32)
	}
}

// SurfaceSize returns the allocation size in bytes for a surface: minimum
// stride times aligned height.
func SurfaceSize(width, height, bpp uint32, tiling Tiling) uint64 {
	return uint64(MinStride(width, bpp, tiling)) * uint64(AlignedHeight(height, bpp, tiling))
}

// blockTiling maps a tiling to its XY_BLOCK_COPY_BLT encoding. Values
// outside the known set degrade to linear with a warning.
func blockTiling(t Tiling) uint32 {
	switch t {
	case TilingLinear:
		return 0
	case TilingX, TilingY:
		return 1
	case Tiling4, TilingYf:
		return 2
	case Tiling64:
		return 3
	}
	Logger().Warn("invalid tiling for block copy", "tiling", uint8(t))
	return 0
}

// fastTiling maps a tiling to its XY_FAST_COPY_BLT encoding.
func fastTiling(t Tiling) uint32 {
	switch t {
	case TilingLinear:
		return 0
	case TilingX:
		return 1
	case TilingY, Tiling4, TilingYf:
		return 2
	case Tiling64:
		return 3
	}
	Logger().Warn("invalid tiling for fast copy", "tiling", uint8(t))
	return 0
}

// newTileY reports whether the tiling uses the 4K tile variant of the
// legacy Y layout, which fast copy flags through its type-Y bits.
func newTileY(t Tiling) bool {
	return t == Tiling4 || t == TilingYf
}
