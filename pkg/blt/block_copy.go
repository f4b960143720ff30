package blt

import "fmt"

const (
	opBlockCopy = 0x41

	blockCopyLen    = 10
	blockCopyExtLen = 20
)

// Special mode codes, derived per operation and never caller-supplied.
const (
	smNone uint32 = iota
	smFullResolve
)

// Aux mode codes.
const (
	auxNone uint32 = 0
	auxCCSE uint32 = 5
)

// XY_BLOCK_COPY_BLT fields. Source and destination words share layouts;
// the Xe2 source word moves the MOCS index.
var (
	bcSpecialMode = bitrange(12, 13)
	bcColorDepth  = bitrange(19, 21)

	bcPitch        = bitrange(0, 17)
	bcAuxMode      = bitrange(18, 20)
	bcMOCS         = bitrange(22, 27)
	bcMOCSXe2Src   = bitrange(24, 27)
	bcCtrlSurfType = bitrange(28, 28)
	bcCompression  = bitrange(29, 29)
	bcTiling       = bitrange(30, 31)

	bcXOffset   = bitrange(0, 13)
	bcYOffset   = bitrange(16, 29)
	bcTargetMem = bitrange(31, 31)
)

// Extended block copy fields (dw12 through dw21).
var (
	bcxCompressionFormat = bitrange(0, 4)
	bcxClearEnable       = bitrange(5, 5)
	bcxClearAddrLo       = bitrange(6, 31)

	bcxSurfHeight = bitrange(0, 13)
	bcxSurfWidth  = bitrange(14, 27)
	bcxSurfType   = bitrange(29, 31)

	bcxLOD    = bitrange(0, 3)
	bcxQPitch = bitrange(4, 18)
	bcxDepth  = bitrange(21, 31)

	bcxHAlign       = bitrange(0, 1)
	bcxVAlign       = bitrange(3, 4)
	bcxMipTail      = bitrange(8, 11)
	bcxDepthStencil = bitrange(18, 18)
	bcxArrayIndex   = bitrange(21, 31)
)

// SurfaceType is the 3D-surface kind carried in extended block copies.
type SurfaceType uint8

const (
	Surface1D SurfaceType = iota
	Surface2D
	Surface3D
	SurfaceCube
)

// SurfaceExt is the per-surface half of the extended block copy payload:
// compression clear color plus full 3D-surface geometry.
type SurfaceExt struct {
	CompressionFormat uint8
	ClearValueEnable  bool
	ClearAddress      uint64

	SurfaceWidth  uint16
	SurfaceHeight uint16
	SurfaceType   SurfaceType

	LOD             uint8
	QPitch          uint32
	Depth           uint16
	HAlign          uint8
	VAlign          uint8
	MipTailStartLOD uint8
	DepthStencil    bool
	ArrayIndex      uint16
}

// NewSurfaceExt fills the fields every extended copy needs. The mip tail
// start is parked at 15 so it cannot overlap a real lod.
func NewSurfaceExt(compressionFormat uint8, width, height uint16, typ SurfaceType) SurfaceExt {
	return SurfaceExt{
		CompressionFormat: compressionFormat,
		SurfaceWidth:      width,
		SurfaceHeight:     height,
		SurfaceType:       typ,
		MipTailStartLOD:   0xf,
	}
}

// BlockCopyExt is the optional 10-word extension of a block copy.
type BlockCopyExt struct {
	Src SurfaceExt
	Dst SurfaceExt
}

// specialMode derives the resolve behavior from the endpoints: copying a
// compressed surface onto its own uncompressed alias decompresses in place.
func specialMode(op *CopyOp) uint32 {
	if op.Src.Buf.Handle() == op.Dst.Buf.Handle() &&
		op.Src.Compression && !op.Dst.Compression {
		return smFullResolve
	}
	return smNone
}

func surfaceAux(s *Surface) uint32 {
	if s.Compression {
		return auxCCSE
	}
	return auxNone
}

func checkCompression(s *Surface) error {
	if s.Compression && s.Region != MemLocal {
		return fmt.Errorf("handle %d: %w", s.Buf.Handle(), ErrCompressedSystemMemory)
	}
	return nil
}

func (e *Encoder) blockCopyWords(op *CopyOp, srcOff, dstOff uint64, extended bool) [12]uint32 {
	var w [12]uint32
	xe2 := e.dev.Variant() == Xe2

	length := uint32(blockCopyLen)
	if extended {
		length = blockCopyExtLen
	}
	w[0] = clientField.place(clientBlt) | opcodeField.place(opBlockCopy) |
		bcColorDepth.place(uint32(op.Depth)) |
		bcSpecialMode.place(specialMode(op)) |
		lengthField.place(length)

	if xe2 {
		w[1] = bcPitch.place(op.Dst.Pitch-1) |
			bcMOCS.place(uint32(op.Dst.MOCS)) |
			bcTiling.place(blockTiling(op.Dst.Tiling))
	} else {
		// A full resolve reads through the source's aux surface, so the
		// destination word has to carry the source's aux mode.
		aux := surfaceAux(&op.Dst)
		if specialMode(op) == smFullResolve {
			aux = surfaceAux(&op.Src)
		}
		w[1] = bcPitch.place(op.Dst.Pitch-1) |
			bcAuxMode.place(aux) |
			bcMOCS.place(uint32(op.Dst.MOCS)) |
			bcCompression.place(boolBit(op.Dst.Compression)) |
			bcTiling.place(blockTiling(op.Dst.Tiling))
		if op.Dst.Compression {
			w[1] |= bcCtrlSurfType.place(uint32(op.Dst.CompressionType))
		}
	}

	w[2] = packCoords(op.Dst.X1, op.Dst.Y1)
	w[3] = packCoords(op.Dst.X2, op.Dst.Y2)
	w[4] = uint32(dstOff)
	w[5] = uint32(dstOff >> 32)
	w[6] = bcXOffset.place(uint32(op.Dst.XOffset)) |
		bcYOffset.place(uint32(op.Dst.YOffset)) |
		bcTargetMem.place(uint32(op.Dst.Region))

	w[7] = packCoords(op.Src.X1, op.Src.Y1)

	if xe2 {
		w[8] = bcPitch.place(op.Src.Pitch-1) |
			bcMOCSXe2Src.place(uint32(op.Src.MOCS)) |
			bcTiling.place(blockTiling(op.Src.Tiling))
	} else {
		w[8] = bcPitch.place(op.Src.Pitch-1) |
			bcAuxMode.place(surfaceAux(&op.Src)) |
			bcMOCS.place(uint32(op.Src.MOCS)) |
			bcCompression.place(boolBit(op.Src.Compression)) |
			bcTiling.place(blockTiling(op.Src.Tiling))
		if op.Src.Compression {
			w[8] |= bcCtrlSurfType.place(uint32(op.Src.CompressionType))
		}
	}

	w[9] = uint32(srcOff)
	w[10] = uint32(srcOff >> 32)
	w[11] = bcXOffset.place(uint32(op.Src.XOffset)) |
		bcYOffset.place(uint32(op.Src.YOffset)) |
		bcTargetMem.place(uint32(op.Src.Region))

	return w
}

func blockCopyExtWords(ext *BlockCopyExt) [10]uint32 {
	var w [10]uint32

	w[0] = bcxCompressionFormat.place(uint32(ext.Src.CompressionFormat)) |
		bcxClearEnable.place(boolBit(ext.Src.ClearValueEnable)) |
		bcxClearAddrLo.place(uint32(ext.Src.ClearAddress))
	w[1] = uint32(ext.Src.ClearAddress >> 32)

	w[2] = bcxCompressionFormat.place(uint32(ext.Dst.CompressionFormat)) |
		bcxClearEnable.place(boolBit(ext.Dst.ClearValueEnable)) |
		bcxClearAddrLo.place(uint32(ext.Dst.ClearAddress))
	w[3] = uint32(ext.Dst.ClearAddress >> 32)

	w[4] = bcxSurfHeight.place(uint32(ext.Dst.SurfaceHeight)-1) |
		bcxSurfWidth.place(uint32(ext.Dst.SurfaceWidth)-1) |
		bcxSurfType.place(uint32(ext.Dst.SurfaceType))
	w[5] = bcxLOD.place(uint32(ext.Dst.LOD)) |
		bcxQPitch.place(ext.Dst.QPitch) |
		bcxDepth.place(uint32(ext.Dst.Depth))
	w[6] = bcxHAlign.place(uint32(ext.Dst.HAlign)) |
		bcxVAlign.place(uint32(ext.Dst.VAlign)) |
		bcxMipTail.place(uint32(ext.Dst.MipTailStartLOD)) |
		bcxDepthStencil.place(boolBit(ext.Dst.DepthStencil)) |
		bcxArrayIndex.place(uint32(ext.Dst.ArrayIndex))

	w[7] = bcxSurfHeight.place(uint32(ext.Src.SurfaceHeight)-1) |
		bcxSurfWidth.place(uint32(ext.Src.SurfaceWidth)-1) |
		bcxSurfType.place(uint32(ext.Src.SurfaceType))
	w[8] = bcxLOD.place(uint32(ext.Src.LOD)) |
		bcxQPitch.place(ext.Src.QPitch) |
		bcxDepth.place(uint32(ext.Src.Depth))
	w[9] = bcxHAlign.place(uint32(ext.Src.HAlign)) |
		bcxVAlign.place(uint32(ext.Src.VAlign)) |
		bcxMipTail.place(uint32(ext.Src.MipTailStartLOD)) |
		bcxDepthStencil.place(boolBit(ext.Src.DepthStencil)) |
		bcxArrayIndex.place(uint32(ext.Src.ArrayIndex))

	return w
}

// BlockCopy appends an XY_BLOCK_COPY_BLT at pos and returns the new cursor.
// Passing ext selects the extended 22-word layout; terminate appends
// MI_BATCH_BUFFER_END after the instruction. On error the batch holds
// nothing beyond the last successful write and the entry cursor is
// returned.
func (e *Encoder) BlockCopy(op *CopyOp, ext *BlockCopyExt, pos uint64, terminate bool) (uint64, error) {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return pos, fmt.Errorf("block copy: %w", ErrNilDescriptor)
	}
	if err := checkCompression(&op.Src); err != nil {
		return pos, fmt.Errorf("block copy src: %w", err)
	}
	if err := checkCompression(&op.Dst); err != nil {
		return pos, fmt.Errorf("block copy dst: %w", err)
	}

	srcOff, err := e.resolveSurface(&op.Src)
	if err != nil {
		return pos, err
	}
	dstOff, err := e.resolveSurface(&op.Dst)
	if err != nil {
		return pos, err
	}
	bbOff, err := e.resolveBatch(op.Batch, 0)
	if err != nil {
		return pos, err
	}

	words := e.blockCopyWords(op, srcOff, dstOff, ext != nil)
	var extWords [10]uint32
	if ext != nil {
		extWords = blockCopyExtWords(ext)
	}

	w, release, err := mapBatch(op.Batch, pos)
	if err != nil {
		return pos, err
	}
	defer release()

	if err := w.writeWords(words[:]...); err != nil {
		return pos, fmt.Errorf("block copy: %w", err)
	}
	if ext != nil {
		if err := w.writeWords(extWords[:]...); err != nil {
			return pos, fmt.Errorf("block copy ext: %w", err)
		}
	}
	if terminate {
		if err := w.terminate(); err != nil {
			return pos, fmt.Errorf("block copy: %w", err)
		}
	}

	if op.Print {
		log := Logger()
		log.Info("block copy",
			"src_offset", hex64(srcOff),
			"dst_offset", hex64(dstOff),
			"bb_offset", hex64(bbOff))
		dumpBlockCopy(log, e.dev.Variant(), words[:])
		if ext != nil {
			dumpBlockCopyExt(log, extWords[:])
		}
	}

	return w.pos, nil
}
