package blt

import "fmt"

const (
	opMemCopy = 0x5a

	memCopyLen = 8
)

// MEM_COPY fields. Byte and page mode size their width field differently;
// the MOCS word is split differently between the two generations.
var (
	mcCopyType = bitrange(17, 18)
	mcMode     = bitrange(19, 19)

	mcByteWidth = bitrange(0, 17)
	mcPageWidth = bitrange(0, 23)
	mcHeight    = bitrange(0, 17)
	mcPitch     = bitrange(0, 17)

	mcDstMOCSGen12 = bitrange(0, 6)
	mcSrcMOCSGen12 = bitrange(25, 31)
	mcDstMOCSXe2   = bitrange(3, 6)
	mcSrcMOCSXe2   = bitrange(28, 31)
)

// memCopyWidthField returns the width field of the given mode. A page
// mode width unit covers 256 bytes.
func memCopyWidthField(mode MemCopyMode) field {
	if mode == ModePage {
		return mcPageWidth
	}
	return mcByteWidth
}

func (e *Encoder) memCopyMOCS(src, dst uint8) uint32 {
	if e.dev.Variant() == Xe2 {
		return mcDstMOCSXe2.place(uint32(dst)) | mcSrcMOCSXe2.place(uint32(src))
	}
	return mcDstMOCSGen12.place(uint32(dst)) | mcSrcMOCSGen12.place(uint32(src))
}

// MemCopy appends MEM_COPY instructions at pos and returns the new cursor.
// Matrix copies are a single instruction with the extent clamped to the
// field widths; linear copies split the width across as many instructions
// as the mode's width field requires.
func (e *Encoder) MemCopy(op *MemCopyOp, pos uint64, terminate bool) (uint64, error) {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return pos, fmt.Errorf("mem copy: %w", ErrNilDescriptor)
	}

	srcOff, err := e.resolveMem(&op.Src)
	if err != nil {
		return pos, err
	}
	dstOff, err := e.resolveMem(&op.Dst)
	if err != nil {
		return pos, err
	}

	widthField := memCopyWidthField(op.Mode)
	widthMax := widthField.max() + 1
	heightMax := widthMax
	step := uint64(widthMax)
	if op.Mode == ModePage {
		heightMax = 1
		step = uint64(widthMax) << 8
	}

	dw00 := clientField.place(clientBlt) | opcodeField.place(opMemCopy) |
		mcMode.place(uint32(op.Mode)) |
		mcCopyType.place(uint32(op.Shape)) |
		lengthField.place(memCopyLen)
	mocs := e.memCopyMOCS(op.Src.MOCS, op.Dst.MOCS)

	w, release, err := mapBatch(op.Batch, pos)
	if err != nil {
		return pos, err
	}
	defer release()

	if op.Shape == ShapeMatrix {
		width := op.Src.Width
		height := op.Dst.Height
		if width > widthMax {
			Logger().Warn("matrix width exceeds field, truncating",
				"width", width, "max", widthMax)
			width = widthMax
		}
		if height > heightMax {
			Logger().Warn("matrix height exceeds field, truncating",
				"height", height, "max", heightMax)
			height = heightMax
		}

		words := [10]uint32{
			dw00,
			widthField.place(width - 1),
			mcHeight.place(height - 1),
			mcPitch.place(op.Src.Pitch - 1),
			mcPitch.place(op.Dst.Pitch - 1),
			uint32(srcOff),
			uint32(srcOff >> 32),
			uint32(dstOff),
			uint32(dstOff >> 32),
			mocs,
		}
		if err := w.writeWords(words[:]...); err != nil {
			return pos, fmt.Errorf("mem copy: %w", err)
		}
		if op.Print {
			Logger().Info("mem copy", "shape", op.Shape.String(), "mode", op.Mode.String())
			dumpMemCopy(Logger(), e.dev.Variant(), words[:])
		}
	} else {
		// Pitches beyond the field are truncated up front; the loop
		// below splits only the width.
		srcPitch := op.Src.Pitch
		if srcPitch > widthMax {
			srcPitch = widthMax - 1
		}
		dstPitch := op.Dst.Pitch
		if dstPitch > widthMax {
			dstPitch = widthMax - 1
		}

		remain := op.Src.Width
		for remain > 0 {
			chunk := remain
			if chunk > widthMax {
				chunk = widthMax
			}

			words := [10]uint32{
				dw00,
				chunk - 1,
				mcHeight.place(op.Dst.Height - 1),
				mcPitch.place(srcPitch),
				mcPitch.place(dstPitch),
				uint32(srcOff),
				uint32(srcOff >> 32),
				uint32(dstOff),
				uint32(dstOff >> 32),
				mocs,
			}
			if err := w.writeWords(words[:]...); err != nil {
				return pos, fmt.Errorf("mem copy: %w", err)
			}
			if op.Print {
				Logger().Info("mem copy", "shape", op.Shape.String(), "mode", op.Mode.String())
				dumpMemCopy(Logger(), e.dev.Variant(), words[:])
			}

			remain -= chunk
			srcOff += step
			dstOff += step
		}
	}

	if terminate {
		if err := w.terminate(); err != nil {
			return pos, fmt.Errorf("mem copy: %w", err)
		}
	}

	return w.pos, nil
}
