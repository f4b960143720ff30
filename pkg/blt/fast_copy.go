package blt

import "fmt"

const (
	opFastCopy = 0x42

	fastCopyLen = 8
)

// XY_FAST_COPY_BLT fields.
var (
	fcDstTiling = bitrange(13, 14)
	fcSrcTiling = bitrange(20, 21)

	fcPitch      = bitrange(0, 15)
	fcMOCSXe2    = bitrange(20, 23)
	fcColorDepth = bitrange(24, 26)
	fcDstMemory  = bitrange(28, 28)
	fcSrcMemory  = bitrange(29, 29)
	fcDstTypeY   = bitrange(30, 30)
	fcSrcTypeY   = bitrange(31, 31)
)

// fastDepth maps a color depth onto the fast copy encoding, which skips
// code 2 and has no 96bpp entry.
func fastDepth(d ColorDepth) (uint32, error) {
	switch d {
	case Depth8:
		return 0, nil
	case Depth16:
		return 1, nil
	case Depth32:
		return 3, nil
	case Depth64:
		return 4, nil
	case Depth128:
		return 5, nil
	}
	return 0, fmt.Errorf("%s: %w", d, ErrUnsupportedDepth)
}

func (e *Encoder) fastCopyWords(op *CopyOp, srcOff, dstOff uint64) ([10]uint32, error) {
	var w [10]uint32
	xe2 := e.dev.Variant() == Xe2

	depth, err := fastDepth(op.Depth)
	if err != nil {
		return w, err
	}

	w[0] = clientField.place(clientBlt) | opcodeField.place(opFastCopy) |
		fcDstTiling.place(fastTiling(op.Dst.Tiling)) |
		fcSrcTiling.place(fastTiling(op.Src.Tiling)) |
		lengthField.place(fastCopyLen)

	if xe2 {
		// Hardware requires the tile type bits set on Xe2 regardless
		// of the actual tiling.
		w[1] = fcPitch.place(op.Dst.Pitch) |
			fcMOCSXe2.place(uint32(op.Dst.MOCS)) |
			fcColorDepth.place(depth) |
			fcDstTypeY.place(1) |
			fcSrcTypeY.place(1)
	} else {
		w[1] = fcPitch.place(op.Dst.Pitch) |
			fcColorDepth.place(depth) |
			fcDstMemory.place(uint32(op.Dst.Region)) |
			fcSrcMemory.place(uint32(op.Src.Region)) |
			fcDstTypeY.place(boolBit(newTileY(op.Dst.Tiling))) |
			fcSrcTypeY.place(boolBit(newTileY(op.Src.Tiling)))
	}

	w[2] = packCoords(op.Dst.X1, op.Dst.Y1)
	w[3] = packCoords(op.Dst.X2, op.Dst.Y2)
	w[4] = uint32(dstOff)
	w[5] = uint32(dstOff >> 32)
	w[6] = packCoords(op.Src.X1, op.Src.Y1)

	if xe2 {
		w[7] = fcPitch.place(op.Src.Pitch) | fcMOCSXe2.place(uint32(op.Src.MOCS))
	} else {
		w[7] = fcPitch.place(op.Src.Pitch)
	}

	w[8] = uint32(srcOff)
	w[9] = uint32(srcOff >> 32)

	return w, nil
}

// FastCopy appends an XY_FAST_COPY_BLT at pos and returns the new cursor.
// Fast copies carry no compression state, so the aux and resolve fields of
// op are ignored.
func (e *Encoder) FastCopy(op *CopyOp, pos uint64, terminate bool) (uint64, error) {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return pos, fmt.Errorf("fast copy: %w", ErrNilDescriptor)
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

	words, err := e.fastCopyWords(op, srcOff, dstOff)
	if err != nil {
		return pos, fmt.Errorf("fast copy: %w", err)
	}

	w, release, err := mapBatch(op.Batch, pos)
	if err != nil {
		return pos, err
	}
	defer release()

	if err := w.writeWords(words[:]...); err != nil {
		return pos, fmt.Errorf("fast copy: %w", err)
	}
	if terminate {
		if err := w.terminate(); err != nil {
			return pos, fmt.Errorf("fast copy: %w", err)
		}
	}

	if op.Print {
		log := Logger()
		log.Info("fast copy",
			"src_offset", hex64(srcOff),
			"dst_offset", hex64(dstOff),
			"bb_offset", hex64(bbOff))
		dumpFastCopy(log, e.dev.Variant(), words[:])
	}

	return w.pos, nil
}
