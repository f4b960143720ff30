//go:build linux

package membuf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// storage keeps the buffer bytes in a memfd. Each Map call creates a
// fresh shared mapping of the fd, so concurrent mappings cohere and the
// contents outlive any single mapping.
type storage struct {
	fd int
}

func (b *Buf) alloc() error {
	fd, err := unix.MemfdCreate(fmt.Sprintf("membuf-%d", b.handle), unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(b.size)); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("ftruncate: %w", err)
	}
	b.mem.fd = fd
	return nil
}

func (b *Buf) free() error {
	if b.mem.fd < 0 {
		return nil
	}
	err := unix.Close(b.mem.fd)
	b.mem.fd = -1
	if err != nil {
		return fmt.Errorf("close buffer %d: %w", b.handle, err)
	}
	return nil
}

func (b *Buf) Map() ([]byte, error) {
	data, err := unix.Mmap(b.mem.fd, 0, int(b.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("map buffer %d: %w", b.handle, err)
	}
	return data, nil
}

func (b *Buf) Unmap(data []byte) error {
	if data == nil {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unmap buffer %d: %w", b.handle, err)
	}
	return nil
}
