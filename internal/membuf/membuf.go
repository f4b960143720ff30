// Package membuf provides handle-addressed memory buffers that stand in
// for driver-managed GPU objects. A Pool issues *Buf values whose
// contents survive map/unmap cycles, so encoded batches and surface data
// can be written, inspected and executed without a kernel driver.
package membuf

import (
	"errors"
	"fmt"
	"sync"
)

var ErrPoolClosed = errors.New("buffer pool closed")

// Pool issues buffers with unique non-zero handles and tracks them until
// Close.
type Pool struct {
	mu     sync.Mutex
	next   uint32
	bufs   map[uint32]*Buf
	closed bool
}

func NewPool() *Pool {
	return &Pool{next: 1, bufs: make(map[uint32]*Buf)}
}

// Create allocates a zero-filled buffer of the given size.
func (p *Pool) Create(size uint64) (*Buf, error) {
	if size == 0 {
		return nil, fmt.Errorf("create buffer: zero size")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("create buffer: %w", ErrPoolClosed)
	}
	b := &Buf{pool: p, handle: p.next, size: size}
	if err := b.alloc(); err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	p.next++
	p.bufs[b.handle] = b
	return b, nil
}

// Lookup returns the buffer bound to handle, if any.
func (p *Pool) Lookup(handle uint32) (*Buf, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.bufs[handle]
	return b, ok
}

// Close releases every outstanding buffer and rejects further Create
// calls. All buffers are torn down even if one release fails; the first
// error wins.
func (p *Pool) Close() error {
	p.mu.Lock()
	bufs := make([]*Buf, 0, len(p.bufs))
	for _, b := range p.bufs {
		bufs = append(bufs, b)
	}
	p.bufs = make(map[uint32]*Buf)
	p.closed = true
	p.mu.Unlock()

	var first error
	for _, b := range bufs {
		if err := b.free(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Buf is one pool allocation. It satisfies the encoder's Buffer
// contract: Map exposes the contents, Unmap releases the mapping, and
// every mapping of the same buffer observes the same bytes.
type Buf struct {
	pool   *Pool
	handle uint32
	size   uint64
	mem    storage
}

func (b *Buf) Handle() uint32 { return b.handle }

func (b *Buf) Size() uint64 { return b.size }

// Close frees the backing storage and drops the pool entry. Outstanding
// mappings stay valid until unmapped.
func (b *Buf) Close() error {
	b.pool.mu.Lock()
	delete(b.pool.bufs, b.handle)
	b.pool.mu.Unlock()
	return b.free()
}
