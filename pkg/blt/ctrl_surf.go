package blt

import "fmt"

const (
	opCtrlSurfCopy = 0x48

	ctrlSurfLen = 3
)

// XY_CTRL_SURF_COPY_BLT fields. The block count field shifts up one bit
// on Xe2.
var (
	csSizeGen12 = bitrange(8, 17)
	csSizeXe2   = bitrange(9, 18)
	csDstAccess = bitrange(20, 20)
	csSrcAccess = bitrange(21, 21)

	csAddrHi    = bitrange(0, 24)
	csMOCSGen12 = bitrange(26, 31)
	csMOCSXe2   = bitrange(28, 31)
)

// ctrlSurfBytes is the CCS payload size of one endpoint: a direct
// endpoint is the metadata itself, an indirect one is the main surface
// whose metadata is size/ratio bytes.
func (e *Encoder) ctrlSurfBytes(o *CtrlSurf) uint32 {
	if o.Access == AccessDirect {
		return uint32(o.Buf.Size())
	}
	return uint32(o.Buf.Size() / uint64(e.dev.CCSRatio))
}

// CtrlSurfCopy appends XY_CTRL_SURF_COPY_BLT instructions at pos and
// returns the new cursor. Payloads larger than one instruction's block
// field are split into a chain of instructions with advancing addresses.
// A payload smaller than one block emits nothing.
func (e *Encoder) CtrlSurfCopy(op *CtrlSurfOp, pos uint64, terminate bool) (uint64, error) {
	if op == nil || op.Src.Buf == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return pos, fmt.Errorf("ctrl surf copy: %w", ErrNilDescriptor)
	}

	srcBytes := e.ctrlSurfBytes(&op.Src)
	dstBytes := e.ctrlSurfBytes(&op.Dst)
	if srcBytes > dstBytes {
		return pos, fmt.Errorf("src %d dst %d bytes: %w", srcBytes, dstBytes, ErrCCSSizeMismatch)
	}

	const alignment = 1 << 16
	srcOff, err := e.res.Resolve(op.Src.Buf.Handle(), op.Src.Buf.Size(), alignment, op.Src.PAT)
	if err != nil {
		return pos, err
	}
	dstOff, err := e.res.Resolve(op.Dst.Buf.Handle(), op.Dst.Buf.Size(), alignment, op.Dst.PAT)
	if err != nil {
		return pos, err
	}
	bbOff, err := e.resolveBatch(op.Batch, alignment)
	if err != nil {
		return pos, err
	}

	xe2 := e.dev.Variant() == Xe2
	sizeField := csSizeGen12
	mocsField := csMOCSGen12
	if xe2 {
		sizeField = csSizeXe2
		mocsField = csMOCSXe2
	}
	maxBlocks := sizeField.max() + 1

	// Each block count increment covers one main-surface page; an
	// indirect endpoint therefore steps by the page size and a direct
	// one by that page's worth of metadata.
	pageSize := e.dev.CCSPageSize()
	perPage := e.dev.CCSPerPage()
	srcUnit := uint64(perPage)
	if op.Src.Access != AccessDirect {
		srcUnit = uint64(pageSize)
	}
	dstUnit := uint64(perPage)
	if op.Dst.Access != AccessDirect {
		dstUnit = uint64(pageSize)
	}

	w, release, err := mapBatch(op.Batch, pos)
	if err != nil {
		return pos, err
	}
	defer release()

	left := int64(srcBytes / perPage)
	for left > 0 {
		nblocks := uint32(left)
		if nblocks > maxBlocks {
			nblocks = maxBlocks
		}

		dw00 := clientField.place(clientBlt) | opcodeField.place(opCtrlSurfCopy) |
			csSrcAccess.place(uint32(op.Src.Access)) |
			csDstAccess.place(uint32(op.Dst.Access)) |
			sizeField.place(nblocks-1) |
			lengthField.place(ctrlSurfLen)
		words := [5]uint32{
			dw00,
			uint32(srcOff),
			csAddrHi.place(uint32(srcOff>>32)) | mocsField.place(uint32(op.Src.MOCS)),
			uint32(dstOff),
			csAddrHi.place(uint32(dstOff>>32)) | mocsField.place(uint32(op.Dst.MOCS)),
		}
		if err := w.writeWords(words[:]...); err != nil {
			return pos, fmt.Errorf("ctrl surf copy: %w", err)
		}

		if op.Print {
			log := Logger()
			log.Info("ctrl surf copy",
				"src_offset", hex64(srcOff),
				"dst_offset", hex64(dstOff),
				"bb_offset", hex64(bbOff),
				"nblocks", nblocks)
			dumpCtrlSurfCopy(log, e.dev.Variant(), words[:])
		}

		left -= int64(nblocks)
		srcOff += uint64(nblocks) * srcUnit
		dstOff += uint64(nblocks) * dstUnit
	}

	if terminate {
		if err := w.terminate(); err != nil {
			return pos, fmt.Errorf("ctrl surf copy: %w", err)
		}
	}

	return w.pos, nil
}
