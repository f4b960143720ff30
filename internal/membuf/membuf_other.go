//go:build !linux

package membuf

import "fmt"

// storage keeps the buffer bytes on the heap. Map hands out the backing
// slice directly, so all mappings alias the same memory.
type storage struct {
	data []byte
}

func (b *Buf) alloc() error {
	b.mem.data = make([]byte, b.size)
	return nil
}

func (b *Buf) free() error {
	b.mem.data = nil
	return nil
}

func (b *Buf) Map() ([]byte, error) {
	if b.mem.data == nil {
		return nil, fmt.Errorf("map buffer %d: storage released", b.handle)
	}
	return b.mem.data, nil
}

func (b *Buf) Unmap(data []byte) error {
	return nil
}
