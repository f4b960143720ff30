package blt

import "fmt"

const (
	opMemSet = 0x5b

	memSetLen = 5
)

// MEM_SET word 6 fields. The fill byte sits above the MOCS index, whose
// position differs by generation.
var (
	msFill      = bitrange(24, 31)
	msMOCSGen12 = bitrange(0, 6)
	msMOCSXe2   = bitrange(3, 6)
)

// MemSet appends a MEM_SET at pos and returns the new cursor. The fill
// byte is replicated across the destination rectangle described by the
// object's width, height and pitch.
func (e *Encoder) MemSet(op *MemSetOp, pos uint64, terminate bool) (uint64, error) {
	if op == nil || op.Dst.Buf == nil || op.Batch.Buf == nil {
		return pos, fmt.Errorf("mem set: %w", ErrNilDescriptor)
	}

	dstOff, err := e.resolveMem(&op.Dst)
	if err != nil {
		return pos, err
	}

	mocs := msMOCSGen12.place(uint32(op.Dst.MOCS))
	if e.dev.Variant() == Xe2 {
		mocs = msMOCSXe2.place(uint32(op.Dst.MOCS))
	}

	words := [7]uint32{
		clientField.place(clientBlt) | opcodeField.place(opMemSet) | lengthField.place(memSetLen),
		op.Dst.Width - 1,
		op.Dst.Height - 1,
		op.Dst.Pitch - 1,
		uint32(dstOff),
		uint32(dstOff >> 32),
		msFill.place(uint32(op.Fill)) | mocs,
	}

	w, release, err := mapBatch(op.Batch, pos)
	if err != nil {
		return pos, err
	}
	defer release()

	if err := w.writeWords(words[:]...); err != nil {
		return pos, fmt.Errorf("mem set: %w", err)
	}
	if terminate {
		if err := w.terminate(); err != nil {
			return pos, fmt.Errorf("mem set: %w", err)
		}
	}

	if op.Print {
		log := Logger()
		log.Info("mem set", "dst_offset", hex64(dstOff), "fill", fmt.Sprintf("%#02x", op.Fill))
		dumpMemSet(log, e.dev.Variant(), words[:])
	}

	return w.pos, nil
}
