package blt

import (
	"encoding/binary"
	"fmt"
)

const (
	// MIBatchBufferEnd terminates an instruction stream.
	MIBatchBufferEnd uint32 = 0xa << 23
	// MINoop is skipped by the parser.
	MINoop uint32 = 0
)

// batchWriter is a mapped batch buffer together with its byte cursor.
// Instruction words are stored little-endian. Every append is bounds-checked
// up front so a failed write leaves the buffer untouched.
type batchWriter struct {
	data []byte
	size uint64
	pos  uint64
}

// mapBatch maps the batch for writing and returns the writer plus a release
// function. The release function must run on every exit path.
func mapBatch(b Batch, pos uint64) (*batchWriter, func(), error) {
	if b.Buf == nil {
		return nil, nil, fmt.Errorf("batch: %w", ErrNilDescriptor)
	}
	data, err := b.Buf.Map()
	if err != nil {
		return nil, nil, fmt.Errorf("map batch: %w", err)
	}
	w := &batchWriter{data: data, size: b.Buf.Size(), pos: pos}
	release := func() {
		if err := b.Buf.Unmap(data); err != nil {
			Logger().Warn("batch unmap failed", "error", err)
		}
	}
	return w, release, nil
}

// writeWords appends instruction words at the cursor. The cursor plus the
// write size must stay strictly below the capacity.
func (w *batchWriter) writeWords(words ...uint32) error {
	n := uint64(len(words)) * 4
	if w.pos+n >= w.size {
		return fmt.Errorf("%w: %d bytes at position %d, capacity %d",
			ErrBatchOverflow, n, w.pos, w.size)
	}
	for i, word := range words {
		binary.LittleEndian.PutUint32(w.data[w.pos+uint64(i)*4:], word)
	}
	w.pos += n
	return nil
}

// terminate appends MI_BATCH_BUFFER_END.
func (w *batchWriter) terminate() error {
	return w.writeWords(MIBatchBufferEnd)
}
