// Package submit provides execution backends for encoded batches: a
// Recorder that captures submissions for later inspection and a
// SoftEngine that replays the CPU-expressible subset of the instruction
// set against in-memory buffers.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/copyforge/blt/pkg/blt"
)

var ErrUnmapped = errors.New("address not covered by any submitted object")

// Skip is one decoded instruction the engine left unexecuted.
type Skip struct {
	Kind   blt.CommandID `json:"kind"`
	Offset uint64        `json:"offset"`
	Reason string        `json:"reason"`
}

// Execution reports one soft run of a batch.
type Execution struct {
	ID        string     `json:"id"`
	Engine    blt.Engine `json:"-"`
	ContextID uint32     `json:"context_id"`
	Executed  int        `json:"executed"`
	Skipped   []Skip     `json:"skipped,omitempty"`
}

// SoftEngine is a Submitter that replays batches on the CPU. It executes
// byte-mode linear memory copies, memory sets and uncompressed linear
// block copies; everything else is decoded and reported as skipped.
// Buffers must be registered before the submissions that reference them.
type SoftEngine struct {
	dev *blt.Device

	mu    sync.Mutex
	bufs  map[uint32]blt.Buffer
	execs []Execution
}

func NewSoftEngine(dev *blt.Device) *SoftEngine {
	return &SoftEngine{dev: dev, bufs: make(map[uint32]blt.Buffer)}
}

// Register makes buf addressable by subsequent submissions.
func (e *SoftEngine) Register(buf blt.Buffer) {
	e.mu.Lock()
	e.bufs[buf.Handle()] = buf
	e.mu.Unlock()
}

// Executions returns a copy of the per-submission reports in order.
func (e *SoftEngine) Executions() []Execution {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Execution(nil), e.execs...)
}

// Last returns the most recent execution report.
func (e *SoftEngine) Last() (Execution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.execs) == 0 {
		return Execution{}, false
	}
	return e.execs[len(e.execs)-1], true
}

// span binds one submitted object to its resolved address range.
type span struct {
	base uint64
	buf  blt.Buffer
}

type openMapping struct {
	buf  blt.Buffer
	data []byte
}

// mapper hands out byte views of engine addresses, mapping each involved
// buffer at most once per submission.
type mapper struct {
	spans []span
	open  map[uint32]openMapping
}

func (m *mapper) view(addr, n uint64) ([]byte, error) {
	end := addr + n
	if end < addr {
		return nil, fmt.Errorf("%#x+%d: %w", addr, n, ErrUnmapped)
	}
	for _, s := range m.spans {
		if addr < s.base || end > s.base+s.buf.Size() {
			continue
		}
		om, ok := m.open[s.buf.Handle()]
		if !ok {
			data, err := s.buf.Map()
			if err != nil {
				return nil, fmt.Errorf("map object %d: %w", s.buf.Handle(), err)
			}
			om = openMapping{buf: s.buf, data: data}
			m.open[s.buf.Handle()] = om
		}
		off := addr - s.base
		return om.data[off : off+n], nil
	}
	return nil, fmt.Errorf("%#x+%d: %w", addr, n, ErrUnmapped)
}

func (m *mapper) close() error {
	var first error
	for _, om := range m.open {
		if err := om.buf.Unmap(om.data); err != nil && first == nil {
			first = err
		}
	}
	m.open = nil
	return first
}

func (e *SoftEngine) Submit(ctx context.Context, batch blt.ExecObject, objects []blt.ExecObject, engine blt.Engine, contextID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	bbuf, ok := e.bufs[batch.Handle]
	spans := make([]span, 0, len(objects))
	for _, obj := range objects {
		buf, found := e.bufs[obj.Handle]
		if !found {
			e.mu.Unlock()
			return fmt.Errorf("soft submit: unknown object handle %d", obj.Handle)
		}
		spans = append(spans, span{base: obj.Offset, buf: buf})
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("soft submit: unknown batch handle %d", batch.Handle)
	}

	data, err := bbuf.Map()
	if err != nil {
		return fmt.Errorf("soft submit: map batch %d: %w", batch.Handle, err)
	}
	insts, derr := blt.DecodeBatch(e.dev, data)
	if uerr := bbuf.Unmap(data); uerr != nil && derr == nil {
		derr = uerr
	}
	if derr != nil {
		return fmt.Errorf("soft submit: decode batch %d: %w", batch.Handle, derr)
	}

	exec := Execution{
		ID:        "run_" + uuid.NewString(),
		Engine:    engine,
		ContextID: contextID,
	}
	m := &mapper{spans: spans, open: make(map[uint32]openMapping)}
	err = runBatch(insts, &exec, m)
	if cerr := m.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("soft submit: %w", err)
	}

	e.mu.Lock()
	e.execs = append(e.execs, exec)
	e.mu.Unlock()
	return nil
}

func runBatch(insts []blt.Instruction, exec *Execution, m *mapper) error {
	for _, inst := range insts {
		var (
			reason string
			err    error
		)
		switch d := inst.Detail.(type) {
		case blt.MemSetDetail:
			err = runMemSet(m, d)
		case blt.MemCopyDetail:
			reason, err = runMemCopy(m, d)
		case blt.BlockCopyDetail:
			reason, err = runBlockCopy(m, d)
		case blt.FastCopyDetail:
			reason = "fast copy is decode-only"
		case blt.CtrlSurfDetail:
			reason = "control surface copy is decode-only"
		default:
			reason = "no detail"
		}
		if err != nil {
			return fmt.Errorf("%s at %#x: %w", inst.Kind, inst.Offset, err)
		}
		if reason != "" {
			exec.Skipped = append(exec.Skipped, Skip{Kind: inst.Kind, Offset: inst.Offset, Reason: reason})
			continue
		}
		exec.Executed++
	}
	return nil
}

func runMemSet(m *mapper, d blt.MemSetDetail) error {
	extent := uint64(d.Height-1)*uint64(d.Pitch) + uint64(d.Width)
	dst, err := m.view(d.Address, extent)
	if err != nil {
		return err
	}
	for r := uint64(0); r < uint64(d.Height); r++ {
		row := dst[r*uint64(d.Pitch) : r*uint64(d.Pitch)+uint64(d.Width)]
		for i := range row {
			row[i] = d.Fill
		}
	}
	return nil
}

func runMemCopy(m *mapper, d blt.MemCopyDetail) (string, error) {
	if d.Mode != blt.ModeByte {
		return "page mode", nil
	}
	if d.Shape != blt.ShapeLinear {
		return "matrix shape", nil
	}
	src, err := m.view(d.SrcAddress, uint64(d.Width))
	if err != nil {
		return "", err
	}
	dst, err := m.view(d.DstAddress, uint64(d.Width))
	if err != nil {
		return "", err
	}
	copy(dst, src)
	return "", nil
}

func runBlockCopy(m *mapper, d blt.BlockCopyDetail) (string, error) {
	switch {
	case d.Extended:
		return "extended layout", nil
	case d.SpecialMode != 0:
		return "compression resolve", nil
	case d.Dst.Compression || d.Src.Compression:
		return "compressed surface", nil
	case d.Dst.TilingEnc != 0 || d.Src.TilingEnc != 0:
		return "tiled surface", nil
	}

	bpp := blt.ColorDepth(d.ColorDepth).Bits()
	if bpp == 0 || bpp%8 != 0 {
		return "", fmt.Errorf("color depth %d has no byte width", d.ColorDepth)
	}
	if d.DstX2 <= d.DstX1 || d.DstY2 <= d.DstY1 {
		return "", nil
	}

	px := uint64(bpp / 8)
	w := uint64(d.DstX2-d.DstX1) * px
	h := uint64(d.DstY2 - d.DstY1)
	dstPitch := uint64(d.Dst.Pitch)
	srcPitch := uint64(d.Src.Pitch)

	dst, err := m.view(d.Dst.Address+uint64(d.DstY1)*dstPitch+uint64(d.DstX1)*px, (h-1)*dstPitch+w)
	if err != nil {
		return "", err
	}
	src, err := m.view(d.Src.Address+uint64(d.SrcY1)*srcPitch+uint64(d.SrcX1)*px, (h-1)*srcPitch+w)
	if err != nil {
		return "", err
	}
	for r := uint64(0); r < h; r++ {
		copy(dst[r*dstPitch:r*dstPitch+w], src[r*srcPitch:r*srcPitch+w])
	}
	return "", nil
}
