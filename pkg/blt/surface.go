package blt

import "fmt"

// MemoryRegion tags where a buffer lives. The encoded target-memory bit is
// 0 for device-local and 1 for system memory.
type MemoryRegion uint8

const (
	MemLocal MemoryRegion = iota
	MemSystem
)

func (r MemoryRegion) String() string {
	switch r {
	case MemLocal:
		return "local"
	case MemSystem:
		return "system"
	}
	return fmt.Sprintf("region(%d)", uint8(r))
}

// ParseRegion maps a region name back to its MemoryRegion.
func ParseRegion(name string) (MemoryRegion, error) {
	switch name {
	case "local", "device", "vram":
		return MemLocal, nil
	case "system", "smem":
		return MemSystem, nil
	}
	return 0, fmt.Errorf("unknown memory region %q", name)
}

// AccessType selects how a control-surface copy addresses compression
// metadata: through the surface (indirect) or the metadata area itself
// (direct).
type AccessType uint8

const (
	AccessIndirect AccessType = iota
	AccessDirect
)

func (a AccessType) String() string {
	if a == AccessDirect {
		return "direct"
	}
	return "indirect"
}

// CompressionType selects the control surface type encoded for compressed
// surfaces.
type CompressionType uint8

const (
	Compression3D CompressionType = iota
	CompressionMedia
)

// Buffer is the mappable-buffer capability surfaces and batches are built
// on. Implementations own handle lifecycle; the encoders only map, write
// and unmap.
type Buffer interface {
	Handle() uint32
	Size() uint64
	Map() ([]byte, error)
	Unmap(data []byte) error
}

// Surface describes one endpoint of a block or fast copy.
type Surface struct {
	Buf             Buffer
	Region          MemoryRegion
	MOCS            uint8
	PAT             uint8
	Tiling          Tiling
	Compression     bool
	CompressionType CompressionType

	// Pitch is in bytes for linear surfaces and dwords for tiled ones.
	Pitch            uint32
	X1, Y1, X2, Y2   int32
	XOffset, YOffset uint16

	// PlaneOffset is added to the resolved address, for multi-plane
	// formats.
	PlaneOffset uint32
}

// NewSurface builds a surface over buf with the minimum pitch for its
// geometry and a rectangle covering the full width and height. The buffer
// is expected to be at least SurfaceSize(width, height, bpp, tiling) bytes.
func NewSurface(buf Buffer, region MemoryRegion, width, height, bpp uint32,
	mocs uint8, tiling Tiling, compression bool, ctype CompressionType) *Surface {
	stride := MinStride(width, bpp, tiling)

	// The blitter expects the pitch of tiled surfaces in dwords.
	if tiling != TilingLinear {
		stride /= 4
	}

	s := &Surface{
		Buf:             buf,
		Region:          region,
		MOCS:            mocs,
		Tiling:          tiling,
		Compression:     compression,
		CompressionType: ctype,
	}
	s.SetGeometry(stride, 0, 0, int32(width), int32(height), 0, 0)
	return s
}

// SetGeometry replaces the pitch, rectangle and pixel offsets in one call.
func (s *Surface) SetGeometry(pitch uint32, x1, y1, x2, y2 int32, xoff, yoff uint16) {
	s.Pitch = pitch
	s.X1, s.Y1 = x1, y1
	s.X2, s.Y2 = x2, y2
	s.XOffset, s.YOffset = xoff, yoff
}

// CtrlSurf describes one endpoint of a control-surface copy.
type CtrlSurf struct {
	Buf    Buffer
	Region MemoryRegion
	MOCS   uint8
	PAT    uint8
	Access AccessType
}

// MemObject describes one endpoint of a memory copy or memory set.
type MemObject struct {
	Buf    Buffer
	Region MemoryRegion
	MOCS   uint8
	PAT    uint8

	Width, Height uint32
	Pitch         uint32
}

// Batch is the instruction buffer an encode call writes into.
type Batch struct {
	Buf    Buffer
	Region MemoryRegion
}

// CopyOp is the descriptor shared by block and fast copies.
type CopyOp struct {
	Src   Surface
	Dst   Surface
	Batch Batch
	Depth ColorDepth
	// Print dumps the encoded instructions through the package logger.
	Print bool
}

// MemCopyMode selects the memory copy transfer unit.
type MemCopyMode uint8

const (
	ModeByte MemCopyMode = iota
	ModePage
)

func (m MemCopyMode) String() string {
	if m == ModePage {
		return "page"
	}
	return "byte"
}

// MemCopyShape selects between one-dimensional and two-dimensional memory
// copies.
type MemCopyShape uint8

const (
	ShapeLinear MemCopyShape = iota
	ShapeMatrix
)

func (s MemCopyShape) String() string {
	if s == ShapeMatrix {
		return "matrix"
	}
	return "linear"
}

// MemCopyOp describes a memory copy.
type MemCopyOp struct {
	Src   MemObject
	Dst   MemObject
	Batch Batch
	Mode  MemCopyMode
	Shape MemCopyShape
	Print bool
}

// MemSetOp describes a memory set.
type MemSetOp struct {
	Dst   MemObject
	Batch Batch
	Fill  byte
	Print bool
}

// CtrlSurfOp describes a control-surface copy.
type CtrlSurfOp struct {
	Src   CtrlSurf
	Dst   CtrlSurf
	Batch Batch
	Print bool
}
