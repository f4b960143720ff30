package blt

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

// TestDecodeBatchChain encodes one instruction of every kind back to back
// and checks the decoder walks the chain with the right kinds, offsets and
// per-kind summaries.
func TestDecodeBatchChain(t *testing.T) {
	t.Parallel()

	for _, ipver := range []uint32{IPVersion(12, 70), IPVersion(20, 4)} {
		dev := NewDevice(ipver)
		batch := newTestBuf(3, 4096)
		res := testResolver()
		res.offsets[10] = 0x400000
		res.offsets[11] = 0x800000
		enc := NewEncoder(dev, res)

		pos, err := enc.BlockCopy(testCopyOp(batch), nil, 0, false)
		if err != nil {
			t.Fatalf("%s block copy: %v", dev.Variant(), err)
		}
		if pos, err = enc.FastCopy(testCopyOp(batch), pos, false); err != nil {
			t.Fatalf("%s fast copy: %v", dev.Variant(), err)
		}
		if pos, err = enc.MemCopy(testMemCopyOp(batch, 16, 1, 16), pos, false); err != nil {
			t.Fatalf("%s mem copy: %v", dev.Variant(), err)
		}
		if pos, err = enc.MemSet(testMemSetOp(batch, 64, 1, 64, 0x7e), pos, false); err != nil {
			t.Fatalf("%s mem set: %v", dev.Variant(), err)
		}
		csOp := &CtrlSurfOp{
			Src:   CtrlSurf{Buf: &sizeBuf{handle: 10, size: uint64(dev.CCSPerPage())}, Access: AccessDirect},
			Dst:   CtrlSurf{Buf: &sizeBuf{handle: 11, size: uint64(dev.CCSPerPage())}, Access: AccessDirect},
			Batch: Batch{Buf: batch},
		}
		if pos, err = enc.CtrlSurfCopy(csOp, pos, true); err != nil {
			t.Fatalf("%s ctrl surf copy: %v", dev.Variant(), err)
		}
		if pos != 180 {
			t.Fatalf("%s cursor = %d, want 180", dev.Variant(), pos)
		}

		insts, err := DecodeBatch(dev, batch.data)
		if err != nil {
			t.Fatalf("%s decode: %v", dev.Variant(), err)
		}

		wantKinds := []CommandID{CmdBlockCopy, CmdFastCopy, CmdMemCopy, CmdMemSet, CmdCtrlSurfCopy}
		wantOffsets := []uint64{0, 48, 88, 128, 156}
		if len(insts) != len(wantKinds) {
			t.Fatalf("%s decoded %d instructions, want %d", dev.Variant(), len(insts), len(wantKinds))
		}
		for i, inst := range insts {
			if inst.Kind != wantKinds[i] {
				t.Fatalf("%s instruction %d kind = %s, want %s", dev.Variant(), i, inst.Kind, wantKinds[i])
			}
			if inst.Offset != wantOffsets[i] {
				t.Fatalf("%s instruction %d offset = %d, want %d", dev.Variant(), i, inst.Offset, wantOffsets[i])
			}
		}

		bc := insts[0].Detail.(BlockCopyDetail)
		if bc.Dst.Pitch != 1024 || bc.Dst.Address != 0x2000 || bc.Src.Address != 0x1000 {
			t.Fatalf("%s block copy detail %+v", dev.Variant(), bc)
		}
		if bc.DstX2 != 256 || bc.DstY2 != 256 {
			t.Fatalf("%s block copy rectangle (%d,%d)", dev.Variant(), bc.DstX2, bc.DstY2)
		}
		if bc.Extended {
			t.Fatalf("%s block copy decoded as extended", dev.Variant())
		}
		fc := insts[1].Detail.(FastCopyDetail)
		if fc.DepthEnc != 3 || fc.DstAddress != 0x2000 {
			t.Fatalf("%s fast copy detail %+v", dev.Variant(), fc)
		}
		mc := insts[2].Detail.(MemCopyDetail)
		if mc.Width != 16 || mc.Height != 1 {
			t.Fatalf("%s mem copy detail %+v", dev.Variant(), mc)
		}
		ms := insts[3].Detail.(MemSetDetail)
		if ms.Fill != 0x7e || ms.Width != 64 {
			t.Fatalf("%s mem set detail %+v", dev.Variant(), ms)
		}
		cs := insts[4].Detail.(CtrlSurfDetail)
		if cs.Blocks != 1 || cs.SrcAddress != 0x400000 {
			t.Fatalf("%s ctrl surf detail %+v", dev.Variant(), cs)
		}
	}
}

func TestDecodeBatchSkipsNoops(t *testing.T) {
	t.Parallel()

	batch := newTestBuf(3, 4096)
	dev := NewDevice(IPVersion(12, 70))
	enc := NewEncoder(dev, testResolver())

	if _, err := enc.MemSet(testMemSetOp(batch, 64, 1, 64, 0x11), 16, true); err != nil {
		t.Fatalf("mem set: %v", err)
	}

	insts, err := DecodeBatch(dev, batch.data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("decoded %d instructions, want 1", len(insts))
	}
	if insts[0].Offset != 16 {
		t.Fatalf("offset = %d, want 16 past the noops", insts[0].Offset)
	}
}

func TestDecodeBatchExtendedBlockCopy(t *testing.T) {
	t.Parallel()

	batch := newTestBuf(3, 4096)
	dev := NewDevice(IPVersion(12, 70))
	enc := NewEncoder(dev, testResolver())

	ext := &BlockCopyExt{
		Src: NewSurfaceExt(8, 256, 256, Surface2D),
		Dst: NewSurfaceExt(8, 256, 256, Surface2D),
	}
	if _, err := enc.BlockCopy(testCopyOp(batch), ext, 0, true); err != nil {
		t.Fatalf("extended block copy: %v", err)
	}

	insts, err := DecodeBatch(dev, batch.data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("decoded %d instructions, want 1", len(insts))
	}
	if len(insts[0].Words) != 22 {
		t.Fatalf("instruction spans %d words, want 22", len(insts[0].Words))
	}
	if d := insts[0].Detail.(BlockCopyDetail); !d.Extended {
		t.Fatalf("extended layout not flagged: %+v", d)
	}
}

func TestDecodeBatchErrors(t *testing.T) {
	t.Parallel()

	dev := NewDevice(IPVersion(12, 70))

	if _, err := DecodeBatch(dev, make([]byte, 6)); !errors.Is(err, ErrTruncatedBatch) {
		t.Fatalf("ragged length error = %v", err)
	}

	batch := newTestBuf(3, 4096)
	enc := NewEncoder(dev, testResolver())
	if _, err := enc.BlockCopy(testCopyOp(batch), nil, 0, false); err != nil {
		t.Fatalf("block copy: %v", err)
	}

	// The instruction announces 12 words; hand the decoder only 10.
	if _, err := DecodeBatch(dev, batch.data[:40]); !errors.Is(err, ErrTruncatedBatch) {
		t.Fatalf("short instruction error = %v", err)
	}

	// A full instruction but no terminator anywhere: the decoded prefix
	// comes back alongside the error.
	insts, err := DecodeBatch(dev, batch.data[:48])
	if !errors.Is(err, ErrTruncatedBatch) {
		t.Fatalf("missing terminator error = %v", err)
	}
	if len(insts) != 1 {
		t.Fatalf("partial decode returned %d instructions, want 1", len(insts))
	}

	bad := make([]byte, 8)
	binary.LittleEndian.PutUint32(bad, 0x7fffffff)
	if _, err := DecodeBatch(dev, bad); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("foreign client error = %v", err)
	}

	binary.LittleEndian.PutUint32(bad, clientField.place(clientBlt)|opcodeField.place(0x50)|2)
	if _, err := DecodeBatch(dev, bad); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("unknown opcode error = %v", err)
	}
}

func TestInstructionJSON(t *testing.T) {
	t.Parallel()

	batch := newTestBuf(3, 4096)
	dev := NewDevice(IPVersion(12, 70))
	enc := NewEncoder(dev, testResolver())
	if _, err := enc.MemSet(testMemSetOp(batch, 64, 1, 64, 0x42), 0, true); err != nil {
		t.Fatalf("mem set: %v", err)
	}
	insts, err := DecodeBatch(dev, batch.data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	raw, err := json.Marshal(insts[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"kind":"mem-set"`) {
		t.Fatalf("kind not marshalled by name: %s", raw)
	}
	if !strings.Contains(string(raw), `"fill":66`) {
		t.Fatalf("detail not inlined: %s", raw)
	}
}
