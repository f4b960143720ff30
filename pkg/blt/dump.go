package blt

import (
	"fmt"
	"log/slog"
	"strings"
)

func hex32(v uint32) string {
	return fmt.Sprintf("%#08x", v)
}

func hex64(v uint64) string {
	return fmt.Sprintf("%#x", v)
}

func dumpBlockCopy(log *slog.Logger, v Variant, w []uint32) {
	dstMOCS := bcMOCS.get(w[1])
	srcMOCS := bcMOCS.get(w[8])
	if v == Xe2 {
		srcMOCS = bcMOCSXe2Src.get(w[8])
	}

	log.Info("dw00", "raw", hex32(w[0]),
		"client", clientField.get(w[0]), "opcode", fmt.Sprintf("%#x", opcodeField.get(w[0])),
		"color_depth", bcColorDepth.get(w[0]), "special_mode", bcSpecialMode.get(w[0]),
		"length", lengthField.get(w[0]))
	log.Info("dw01", "raw", hex32(w[1]),
		"dst_pitch", bcPitch.get(w[1]), "aux", bcAuxMode.get(w[1]), "mocs", dstMOCS,
		"compression", bcCompression.get(w[1]), "tiling", bcTiling.get(w[1]),
		"ctrl_surf_type", bcCtrlSurfType.get(w[1]))
	x1, y1 := unpackCoords(w[2])
	x2, y2 := unpackCoords(w[3])
	log.Info("dw02", "raw", hex32(w[2]), "dst_x1", x1, "dst_y1", y1)
	log.Info("dw03", "raw", hex32(w[3]), "dst_x2", x2, "dst_y2", y2)
	log.Info("dw04", "raw", hex32(w[4]), "dst_offset_lo", hex32(w[4]))
	log.Info("dw05", "raw", hex32(w[5]), "dst_offset_hi", hex32(w[5]))
	log.Info("dw06", "raw", hex32(w[6]),
		"x_offset", bcXOffset.get(w[6]), "y_offset", bcYOffset.get(w[6]),
		"target_mem", bcTargetMem.get(w[6]))
	sx1, sy1 := unpackCoords(w[7])
	log.Info("dw07", "raw", hex32(w[7]), "src_x1", sx1, "src_y1", sy1)
	log.Info("dw08", "raw", hex32(w[8]),
		"src_pitch", bcPitch.get(w[8]), "aux", bcAuxMode.get(w[8]), "mocs", srcMOCS,
		"compression", bcCompression.get(w[8]), "tiling", bcTiling.get(w[8]),
		"ctrl_surf_type", bcCtrlSurfType.get(w[8]))
	log.Info("dw09", "raw", hex32(w[9]), "src_offset_lo", hex32(w[9]))
	log.Info("dw10", "raw", hex32(w[10]), "src_offset_hi", hex32(w[10]))
	log.Info("dw11", "raw", hex32(w[11]),
		"x_offset", bcXOffset.get(w[11]), "y_offset", bcYOffset.get(w[11]),
		"target_mem", bcTargetMem.get(w[11]))
}

func dumpBlockCopyExt(log *slog.Logger, w []uint32) {
	for i, name := range [2]string{"src", "dst"} {
		fw := w[i*2]
		log.Info(fmt.Sprintf("dw%d", 12+i*2), "raw", hex32(fw), "surface", name,
			"compression_format", bcxCompressionFormat.get(fw),
			"clear_enable", bcxClearEnable.get(fw),
			"clear_addr_lo", fmt.Sprintf("%#x", bcxClearAddrLo.get(fw)))
		log.Info(fmt.Sprintf("dw%d", 13+i*2), "raw", hex32(w[i*2+1]), "surface", name,
			"clear_addr_hi", fmt.Sprintf("%#x", w[i*2+1]))
	}
	for i, name := range [2]string{"dst", "src"} {
		base := 4 + i*3
		log.Info(fmt.Sprintf("dw%d", 12+base), "raw", hex32(w[base]), "surface", name,
			"width", bcxSurfWidth.get(w[base]), "height", bcxSurfHeight.get(w[base]),
			"type", bcxSurfType.get(w[base]))
		log.Info(fmt.Sprintf("dw%d", 13+base), "raw", hex32(w[base+1]), "surface", name,
			"lod", bcxLOD.get(w[base+1]), "qpitch", bcxQPitch.get(w[base+1]),
			"depth", bcxDepth.get(w[base+1]))
		log.Info(fmt.Sprintf("dw%d", 14+base), "raw", hex32(w[base+2]), "surface", name,
			"halign", bcxHAlign.get(w[base+2]), "valign", bcxVAlign.get(w[base+2]),
			"mip_tail", bcxMipTail.get(w[base+2]),
			"depth_stencil", bcxDepthStencil.get(w[base+2]),
			"array_index", bcxArrayIndex.get(w[base+2]))
	}
}

func dumpCtrlSurfCopy(log *slog.Logger, v Variant, w []uint32) {
	sizeField := csSizeGen12
	mocsField := csMOCSGen12
	if v == Xe2 {
		sizeField = csSizeXe2
		mocsField = csMOCSXe2
	}
	log.Info("dw00", "raw", hex32(w[0]),
		"client", clientField.get(w[0]), "opcode", fmt.Sprintf("%#x", opcodeField.get(w[0])),
		"src_access", csSrcAccess.get(w[0]), "dst_access", csDstAccess.get(w[0]),
		"size_of_ctrl_copy", sizeField.get(w[0]), "length", lengthField.get(w[0]))
	log.Info("dw01", "raw", hex32(w[1]), "src_offset_lo", hex32(w[1]))
	log.Info("dw02", "raw", hex32(w[2]),
		"src_offset_hi", fmt.Sprintf("%#x", csAddrHi.get(w[2])), "src_mocs", mocsField.get(w[2]))
	log.Info("dw03", "raw", hex32(w[3]), "dst_offset_lo", hex32(w[3]))
	log.Info("dw04", "raw", hex32(w[4]),
		"dst_offset_hi", fmt.Sprintf("%#x", csAddrHi.get(w[4])), "dst_mocs", mocsField.get(w[4]))
}

func dumpFastCopy(log *slog.Logger, v Variant, w []uint32) {
	log.Info("dw00", "raw", hex32(w[0]),
		"client", clientField.get(w[0]), "opcode", fmt.Sprintf("%#x", opcodeField.get(w[0])),
		"src_tiling", fcSrcTiling.get(w[0]), "dst_tiling", fcDstTiling.get(w[0]),
		"length", lengthField.get(w[0]))
	attrs := []any{"raw", hex32(w[1]),
		"dst_pitch", fcPitch.get(w[1]), "color_depth", fcColorDepth.get(w[1]),
		"dst_type_y", fcDstTypeY.get(w[1]), "src_type_y", fcSrcTypeY.get(w[1])}
	if v == Xe2 {
		attrs = append(attrs, "dst_mocs", fcMOCSXe2.get(w[1]))
	} else {
		attrs = append(attrs, "dst_memory", fcDstMemory.get(w[1]), "src_memory", fcSrcMemory.get(w[1]))
	}
	log.Info("dw01", attrs...)
	x1, y1 := unpackCoords(w[2])
	x2, y2 := unpackCoords(w[3])
	log.Info("dw02", "raw", hex32(w[2]), "dst_x1", x1, "dst_y1", y1)
	log.Info("dw03", "raw", hex32(w[3]), "dst_x2", x2, "dst_y2", y2)
	log.Info("dw04", "raw", hex32(w[4]), "dst_offset_lo", hex32(w[4]))
	log.Info("dw05", "raw", hex32(w[5]), "dst_offset_hi", hex32(w[5]))
	sx1, sy1 := unpackCoords(w[6])
	log.Info("dw06", "raw", hex32(w[6]), "src_x1", sx1, "src_y1", sy1)
	if v == Xe2 {
		log.Info("dw07", "raw", hex32(w[7]), "src_pitch", fcPitch.get(w[7]), "src_mocs", fcMOCSXe2.get(w[7]))
	} else {
		log.Info("dw07", "raw", hex32(w[7]), "src_pitch", fcPitch.get(w[7]))
	}
	log.Info("dw08", "raw", hex32(w[8]), "src_offset_lo", hex32(w[8]))
	log.Info("dw09", "raw", hex32(w[9]), "src_offset_hi", hex32(w[9]))
}

func dumpMemCopy(log *slog.Logger, v Variant, w []uint32) {
	mode := mcMode.get(w[0])
	widthField := mcByteWidth
	if mode == uint32(ModePage) {
		widthField = mcPageWidth
	}
	dstMOCS := mcDstMOCSGen12.get(w[9])
	srcMOCS := mcSrcMOCSGen12.get(w[9])
	if v == Xe2 {
		dstMOCS = mcDstMOCSXe2.get(w[9])
		srcMOCS = mcSrcMOCSXe2.get(w[9])
	}

	log.Info("dw00", "raw", hex32(w[0]),
		"client", clientField.get(w[0]), "opcode", fmt.Sprintf("%#x", opcodeField.get(w[0])),
		"copy_type", mcCopyType.get(w[0]), "mode", mode, "length", lengthField.get(w[0]))
	log.Info("dw01", "raw", hex32(w[1]), "width", widthField.get(w[1]))
	log.Info("dw02", "raw", hex32(w[2]), "height", mcHeight.get(w[2]))
	log.Info("dw03", "raw", hex32(w[3]), "src_pitch", mcPitch.get(w[3]))
	log.Info("dw04", "raw", hex32(w[4]), "dst_pitch", mcPitch.get(w[4]))
	log.Info("dw05", "raw", hex32(w[5]), "src_offset_lo", hex32(w[5]))
	log.Info("dw06", "raw", hex32(w[6]), "src_offset_hi", hex32(w[6]))
	log.Info("dw07", "raw", hex32(w[7]), "dst_offset_lo", hex32(w[7]))
	log.Info("dw08", "raw", hex32(w[8]), "dst_offset_hi", hex32(w[8]))
	log.Info("dw09", "raw", hex32(w[9]), "dst_mocs", dstMOCS, "src_mocs", srcMOCS)
}

func dumpMemSet(log *slog.Logger, v Variant, w []uint32) {
	mocs := msMOCSGen12.get(w[6])
	if v == Xe2 {
		mocs = msMOCSXe2.get(w[6])
	}
	log.Info("dw00", "raw", hex32(w[0]),
		"client", clientField.get(w[0]), "opcode", fmt.Sprintf("%#x", opcodeField.get(w[0])),
		"length", lengthField.get(w[0]))
	log.Info("dw01", "raw", hex32(w[1]), "width", w[1])
	log.Info("dw02", "raw", hex32(w[2]), "height", w[2])
	log.Info("dw03", "raw", hex32(w[3]), "pitch", w[3])
	log.Info("dw04", "raw", hex32(w[4]), "dst_offset_lo", hex32(w[4]))
	log.Info("dw05", "raw", hex32(w[5]), "dst_offset_hi", hex32(w[5]))
	log.Info("dw06", "raw", hex32(w[6]), "fill", fmt.Sprintf("%#x", msFill.get(w[6])), "mocs", mocs)
}

// DumpSurface logs a surface's identity and geometry under the given label.
func DumpSurface(log *slog.Logger, label string, s *Surface) {
	log.Info("surface", "label", label,
		"handle", s.Buf.Handle(), "size", hex64(s.Buf.Size()),
		"region", s.Region.String(), "mocs", s.MOCS,
		"tiling", s.Tiling.String(), "compression", s.Compression,
		"compression_type", int(s.CompressionType),
		"pitch", s.Pitch, "x_offset", s.XOffset, "y_offset", s.YOffset,
		"rect", fmt.Sprintf("(%d,%d)-(%d,%d)", s.X1, s.Y1, s.X2, s.Y2))
}

// DumpCorruption32 compares two 32bpp surfaces with identical rectangles in
// 8x8 pixel blocks and renders one character per block: '.' when the block
// matches, '0'+count when it differs. The result reads as rows of blocks.
func DumpCorruption32(a, b *Surface) (string, error) {
	const blockDim = 8

	if a.X1 != b.X1 || a.X2 != b.X2 || a.Y1 != b.Y1 || a.Y2 != b.Y2 {
		return "", fmt.Errorf("surface rectangles differ: (%d,%d)-(%d,%d) vs (%d,%d)-(%d,%d)",
			a.X1, a.Y1, a.X2, a.Y2, b.X1, b.Y1, b.X2, b.Y2)
	}

	aData, err := a.Buf.Map()
	if err != nil {
		return "", fmt.Errorf("map surface %d: %w", a.Buf.Handle(), err)
	}
	defer a.Buf.Unmap(aData)
	bData, err := b.Buf.Map()
	if err != nil {
		return "", fmt.Errorf("map surface %d: %w", b.Buf.Handle(), err)
	}
	defer b.Buf.Unmap(bData)

	px := func(data []byte, pos uint32) uint32 {
		off := pos * 4
		return uint32(data[off]) | uint32(data[off+1])<<8 |
			uint32(data[off+2])<<16 | uint32(data[off+3])<<24
	}
	rowStride := a.Pitch / 4

	w, h := int(a.X2), int(a.Y2)
	var sb strings.Builder
	for by := 0; by < h/blockDim; by++ {
		for bx := 0; bx < w/blockDim; bx++ {
			corrupted := 0
			for y := 0; y < blockDim; y++ {
				for x := 0; x < blockDim; x++ {
					pos := uint32(bx*blockDim) + uint32(by*blockDim)*rowStride
					pos += uint32(x) + uint32(y)*rowStride
					if px(aData, pos) != px(bData, pos) {
						corrupted++
					}
				}
			}
			if corrupted == 0 {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(byte('0' + corrupted))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
