package blt

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// Instruction is one decoded batch entry: the command kind, its byte
// offset in the batch, the raw words and a per-kind summary struct.
type Instruction struct {
	Kind   CommandID `json:"kind"`
	Offset uint64    `json:"offset"`
	Words  []uint32  `json:"words"`
	Detail any       `json:"detail"`
}

func (c CommandID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// BlockCopySurface is one endpoint of a decoded block copy.
type BlockCopySurface struct {
	Pitch       uint32 `json:"pitch"`
	AuxMode     uint32 `json:"aux_mode"`
	MOCS        uint32 `json:"mocs"`
	Compression bool   `json:"compression"`
	TilingEnc   uint32 `json:"tiling_enc"`
	Address     uint64 `json:"address"`
	XOffset     uint32 `json:"x_offset"`
	YOffset     uint32 `json:"y_offset"`
	TargetMem   uint32 `json:"target_mem"`
}

// BlockCopyDetail summarizes a decoded XY_BLOCK_COPY_BLT.
type BlockCopyDetail struct {
	ColorDepth  uint32           `json:"color_depth"`
	SpecialMode uint32           `json:"special_mode"`
	Extended    bool             `json:"extended"`
	DstX1       int32            `json:"dst_x1"`
	DstY1       int32            `json:"dst_y1"`
	DstX2       int32            `json:"dst_x2"`
	DstY2       int32            `json:"dst_y2"`
	SrcX1       int32            `json:"src_x1"`
	SrcY1       int32            `json:"src_y1"`
	Dst         BlockCopySurface `json:"dst"`
	Src         BlockCopySurface `json:"src"`
}

// FastCopyDetail summarizes a decoded XY_FAST_COPY_BLT.
type FastCopyDetail struct {
	DepthEnc     uint32 `json:"depth_enc"`
	DstTilingEnc uint32 `json:"dst_tiling_enc"`
	SrcTilingEnc uint32 `json:"src_tiling_enc"`
	DstPitch     uint32 `json:"dst_pitch"`
	SrcPitch     uint32 `json:"src_pitch"`
	DstMOCS      uint32 `json:"dst_mocs"`
	SrcMOCS      uint32 `json:"src_mocs"`
	DstMemory    uint32 `json:"dst_memory"`
	SrcMemory    uint32 `json:"src_memory"`
	DstTypeY     uint32 `json:"dst_type_y"`
	SrcTypeY     uint32 `json:"src_type_y"`
	DstX1        int32  `json:"dst_x1"`
	DstY1        int32  `json:"dst_y1"`
	DstX2        int32  `json:"dst_x2"`
	DstY2        int32  `json:"dst_y2"`
	SrcX1        int32  `json:"src_x1"`
	SrcY1        int32  `json:"src_y1"`
	DstAddress   uint64 `json:"dst_address"`
	SrcAddress   uint64 `json:"src_address"`
}

// CtrlSurfDetail summarizes a decoded XY_CTRL_SURF_COPY_BLT.
type CtrlSurfDetail struct {
	Blocks     uint32     `json:"blocks"`
	SrcAccess  AccessType `json:"src_access"`
	DstAccess  AccessType `json:"dst_access"`
	SrcAddress uint64     `json:"src_address"`
	DstAddress uint64     `json:"dst_address"`
	SrcMOCS    uint32     `json:"src_mocs"`
	DstMOCS    uint32     `json:"dst_mocs"`
}

// MemCopyDetail summarizes a decoded MEM_COPY. Pitch follows the shape's
// own convention: matrix instructions store pitch-1 and are reported +1,
// linear ones store the raw field.
type MemCopyDetail struct {
	Mode       MemCopyMode  `json:"mode"`
	Shape      MemCopyShape `json:"shape"`
	Width      uint32       `json:"width"`
	Height     uint32       `json:"height"`
	SrcPitch   uint32       `json:"src_pitch"`
	DstPitch   uint32       `json:"dst_pitch"`
	SrcAddress uint64       `json:"src_address"`
	DstAddress uint64       `json:"dst_address"`
	SrcMOCS    uint32       `json:"src_mocs"`
	DstMOCS    uint32       `json:"dst_mocs"`
}

// MemSetDetail summarizes a decoded MEM_SET.
type MemSetDetail struct {
	Width   uint32 `json:"width"`
	Height  uint32 `json:"height"`
	Pitch   uint32 `json:"pitch"`
	Address uint64 `json:"address"`
	Fill    uint8  `json:"fill"`
	MOCS    uint32 `json:"mocs"`
}

func kindForOpcode(op uint32) (CommandID, bool) {
	switch op {
	case opBlockCopy:
		return CmdBlockCopy, true
	case opFastCopy:
		return CmdFastCopy, true
	case opCtrlSurfCopy:
		return CmdCtrlSurfCopy, true
	case opMemCopy:
		return CmdMemCopy, true
	case opMemSet:
		return CmdMemSet, true
	}
	return 0, false
}

func addr64(lo, hi uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

func decodeBlockCopy(v Variant, w []uint32) BlockCopyDetail {
	d := BlockCopyDetail{
		ColorDepth:  bcColorDepth.get(w[0]),
		SpecialMode: bcSpecialMode.get(w[0]),
		Extended:    len(w) > blockCopyLen+2,
	}
	d.DstX1, d.DstY1 = unpackCoords(w[2])
	d.DstX2, d.DstY2 = unpackCoords(w[3])
	d.SrcX1, d.SrcY1 = unpackCoords(w[7])

	decodeEndpoint := func(pw, ow uint32, mocs field) BlockCopySurface {
		return BlockCopySurface{
			Pitch:       bcPitch.get(pw) + 1,
			AuxMode:     bcAuxMode.get(pw),
			MOCS:        mocs.get(pw),
			Compression: bcCompression.get(pw) != 0,
			TilingEnc:   bcTiling.get(pw),
			XOffset:     bcXOffset.get(ow),
			YOffset:     bcYOffset.get(ow),
			TargetMem:   bcTargetMem.get(ow),
		}
	}
	srcMOCS := bcMOCS
	if v == Xe2 {
		srcMOCS = bcMOCSXe2Src
	}
	d.Dst = decodeEndpoint(w[1], w[6], bcMOCS)
	d.Dst.Address = addr64(w[4], w[5])
	d.Src = decodeEndpoint(w[8], w[11], srcMOCS)
	d.Src.Address = addr64(w[9], w[10])
	return d
}

func decodeFastCopy(v Variant, w []uint32) FastCopyDetail {
	d := FastCopyDetail{
		DepthEnc:     fcColorDepth.get(w[1]),
		DstTilingEnc: fcDstTiling.get(w[0]),
		SrcTilingEnc: fcSrcTiling.get(w[0]),
		DstPitch:     fcPitch.get(w[1]),
		SrcPitch:     fcPitch.get(w[7]),
		DstTypeY:     fcDstTypeY.get(w[1]),
		SrcTypeY:     fcSrcTypeY.get(w[1]),
		DstAddress:   addr64(w[4], w[5]),
		SrcAddress:   addr64(w[8], w[9]),
	}
	if v == Xe2 {
		d.DstMOCS = fcMOCSXe2.get(w[1])
		d.SrcMOCS = fcMOCSXe2.get(w[7])
	} else {
		d.DstMemory = fcDstMemory.get(w[1])
		d.SrcMemory = fcSrcMemory.get(w[1])
	}
	d.DstX1, d.DstY1 = unpackCoords(w[2])
	d.DstX2, d.DstY2 = unpackCoords(w[3])
	d.SrcX1, d.SrcY1 = unpackCoords(w[6])
	return d
}

func decodeCtrlSurf(v Variant, w []uint32) CtrlSurfDetail {
	sizeField := csSizeGen12
	mocsField := csMOCSGen12
	if v == Xe2 {
		sizeField = csSizeXe2
		mocsField = csMOCSXe2
	}
	return CtrlSurfDetail{
		Blocks:     sizeField.get(w[0]) + 1,
		SrcAccess:  AccessType(csSrcAccess.get(w[0])),
		DstAccess:  AccessType(csDstAccess.get(w[0])),
		SrcAddress: addr64(w[1], csAddrHi.get(w[2])),
		DstAddress: addr64(w[3], csAddrHi.get(w[4])),
		SrcMOCS:    mocsField.get(w[2]),
		DstMOCS:    mocsField.get(w[4]),
	}
}

func decodeMemCopy(v Variant, w []uint32) MemCopyDetail {
	d := MemCopyDetail{
		Mode:       MemCopyMode(mcMode.get(w[0])),
		Shape:      MemCopyShape(mcCopyType.get(w[0])),
		Height:     mcHeight.get(w[2]) + 1,
		SrcAddress: addr64(w[5], w[6]),
		DstAddress: addr64(w[7], w[8]),
	}
	d.Width = memCopyWidthField(d.Mode).get(w[1]) + 1
	d.SrcPitch = mcPitch.get(w[3])
	d.DstPitch = mcPitch.get(w[4])
	if d.Shape == ShapeMatrix {
		d.SrcPitch++
		d.DstPitch++
	}
	if v == Xe2 {
		d.DstMOCS = mcDstMOCSXe2.get(w[9])
		d.SrcMOCS = mcSrcMOCSXe2.get(w[9])
	} else {
		d.DstMOCS = mcDstMOCSGen12.get(w[9])
		d.SrcMOCS = mcSrcMOCSGen12.get(w[9])
	}
	return d
}

func decodeMemSet(v Variant, w []uint32) MemSetDetail {
	mocs := msMOCSGen12.get(w[6])
	if v == Xe2 {
		mocs = msMOCSXe2.get(w[6])
	}
	return MemSetDetail{
		Width:   w[1] + 1,
		Height:  w[2] + 1,
		Pitch:   w[3] + 1,
		Address: addr64(w[4], w[5]),
		Fill:    uint8(msFill.get(w[6])),
		MOCS:    mocs,
	}
}

// DecodeBatch walks a batch image from its start and returns the decoded
// instructions up to the MI_BATCH_BUFFER_END terminator. MI_NOOP words are
// skipped. A stream that runs out before the terminator, or an instruction
// whose words extend past the image, fails with ErrTruncatedBatch; a word
// that is neither a known command nor MI_NOOP fails with ErrUnknownCommand.
func DecodeBatch(dev *Device, data []byte) ([]Instruction, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(data)%4, ErrTruncatedBatch)
	}
	nwords := len(data) / 4
	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(data[i*4:])
	}

	var out []Instruction
	for i := 0; i < nwords; {
		w0 := word(i)
		if w0 == MINoop {
			i++
			continue
		}
		if w0 == MIBatchBufferEnd {
			return out, nil
		}
		if clientField.get(w0) != clientBlt {
			return out, fmt.Errorf("word %d (%s): %w", i, hex32(w0), ErrUnknownCommand)
		}
		kind, ok := kindForOpcode(opcodeField.get(w0))
		if !ok {
			return out, fmt.Errorf("word %d opcode %#x: %w", i, opcodeField.get(w0), ErrUnknownCommand)
		}
		n := int(lengthField.get(w0)) + 2
		if i+n > nwords {
			return out, fmt.Errorf("%s needs %d words at word %d of %d: %w",
				kind, n, i, nwords, ErrTruncatedBatch)
		}

		words := make([]uint32, n)
		for j := range words {
			words[j] = word(i + j)
		}
		inst := Instruction{Kind: kind, Offset: uint64(i) * 4, Words: words}
		switch kind {
		case CmdBlockCopy:
			inst.Detail = decodeBlockCopy(dev.Variant(), words)
		case CmdFastCopy:
			inst.Detail = decodeFastCopy(dev.Variant(), words)
		case CmdCtrlSurfCopy:
			inst.Detail = decodeCtrlSurf(dev.Variant(), words)
		case CmdMemCopy:
			inst.Detail = decodeMemCopy(dev.Variant(), words)
		case CmdMemSet:
			inst.Detail = decodeMemSet(dev.Variant(), words)
		}
		out = append(out, inst)
		i += n
	}
	return out, fmt.Errorf("no terminator: %w", ErrTruncatedBatch)
}
