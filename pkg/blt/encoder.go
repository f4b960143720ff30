package blt

import "fmt"

// Encoder writes copy-engine instructions for one device. It resolves
// surface addresses through the caller-supplied resolver and never touches
// handle lifecycle.
//
// Encoding is synchronous and takes no locks; concurrent calls against the
// same batch are the caller's responsibility, as the cursor is passed
// explicitly.
type Encoder struct {
	dev *Device
	res OffsetResolver
}

// NewEncoder returns an Encoder for dev resolving addresses through res.
func NewEncoder(dev *Device, res OffsetResolver) *Encoder {
	return &Encoder{dev: dev, res: res}
}

// Device returns the device the encoder targets.
func (e *Encoder) Device() *Device {
	return e.dev
}

// resolveSurface returns the surface base address plus its plane offset.
func (e *Encoder) resolveSurface(s *Surface) (uint64, error) {
	off, err := e.res.Resolve(s.Buf.Handle(), s.Buf.Size(), 0, s.PAT)
	if err != nil {
		return 0, fmt.Errorf("resolve surface %d: %w", s.Buf.Handle(), err)
	}
	return off + uint64(s.PlaneOffset), nil
}

func (e *Encoder) resolveMem(m *MemObject) (uint64, error) {
	off, err := e.res.Resolve(m.Buf.Handle(), m.Buf.Size(), 0, m.PAT)
	if err != nil {
		return 0, fmt.Errorf("resolve mem object %d: %w", m.Buf.Handle(), err)
	}
	return off, nil
}

func (e *Encoder) resolveBatch(b Batch, alignment uint64) (uint64, error) {
	off, err := e.res.Resolve(b.Buf.Handle(), b.Buf.Size(), alignment, 0)
	if err != nil {
		return 0, fmt.Errorf("resolve batch %d: %w", b.Buf.Handle(), err)
	}
	return off, nil
}
