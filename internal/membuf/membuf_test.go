package membuf

import (
	"errors"
	"testing"
)

func TestPoolCreateMapPersistence(t *testing.T) {
	t.Parallel()

	p := NewPool()
	defer p.Close()

	b, err := p.Create(4096)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Handle() == 0 {
		t.Fatalf("handle is zero")
	}
	if b.Size() != 4096 {
		t.Fatalf("size = %d, want 4096", b.Size())
	}

	data, err := b.Map()
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(data) != 4096 {
		t.Fatalf("mapped %d bytes, want 4096", len(data))
	}
	for i := range data {
		data[i] = byte(i)
	}
	if err := b.Unmap(data); err != nil {
		t.Fatalf("unmap: %v", err)
	}

	again, err := b.Map()
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	defer b.Unmap(again)
	for i, v := range again {
		if v != byte(i) {
			t.Fatalf("byte %d = %#x after remap, want %#x", i, v, byte(i))
		}
	}
}

func TestPoolSharedMappings(t *testing.T) {
	t.Parallel()

	p := NewPool()
	defer p.Close()

	b, err := p.Create(256)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first, err := b.Map()
	if err != nil {
		t.Fatalf("first map: %v", err)
	}
	defer b.Unmap(first)
	second, err := b.Map()
	if err != nil {
		t.Fatalf("second map: %v", err)
	}
	defer b.Unmap(second)

	first[17] = 0x5a
	if second[17] != 0x5a {
		t.Fatalf("write through first mapping not visible in second: %#x", second[17])
	}
}

func TestPoolHandles(t *testing.T) {
	t.Parallel()

	p := NewPool()
	defer p.Close()

	var handles []uint32
	for i := 0; i < 3; i++ {
		b, err := p.Create(64)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		handles = append(handles, b.Handle())
	}
	for i := 1; i < len(handles); i++ {
		if handles[i] <= handles[i-1] {
			t.Fatalf("handles not ascending: %v", handles)
		}
	}
	for _, h := range handles {
		b, ok := p.Lookup(h)
		if !ok || b.Handle() != h {
			t.Fatalf("lookup %d failed", h)
		}
	}
	if _, ok := p.Lookup(999); ok {
		t.Fatalf("lookup of unknown handle succeeded")
	}
}

func TestPoolCreateZeroSize(t *testing.T) {
	t.Parallel()

	p := NewPool()
	defer p.Close()
	if _, err := p.Create(0); err == nil {
		t.Fatalf("zero-size create succeeded")
	}
}

func TestPoolClose(t *testing.T) {
	t.Parallel()

	p := NewPool()
	b, err := p.Create(128)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("buf close: %v", err)
	}
	if _, ok := p.Lookup(b.Handle()); ok {
		t.Fatalf("closed buffer still resolvable")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("pool close: %v", err)
	}
	if _, err := p.Create(64); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("create after close: %v, want ErrPoolClosed", err)
	}
}
