// Package buffer provides the sentinel-padded byte container consumed by the
// temporal-macro scanner. The allocation always includes one valid byte before
// the live region (a newline) and TailSize valid NUL bytes after it, so the
// scanner can read fixed-width windows near the boundaries without bounds
// checks in its inner loop.
package buffer

import (
	"fmt"
	"io"
	"os"
)

const (
	// HeadSize is the number of sentinel bytes before the live region.
	HeadSize = 1

	// TailSize is the number of sentinel bytes after the live region. The
	// vectorized scanner loads 32 bytes starting anywhere inside the live
	// region, so 31 trailing bytes must stay readable.
	TailSize = 31
)

// Buffer is a byte container with guaranteed sentinels around the live
// region:
//
//   - raw[HeadSize-1] == '\n' (one valid byte before the live region)
//   - raw[HeadSize+size .. HeadSize+size+TailSize-1] == 0
//
// Each Buffer is exclusively owned by its creator; the zero value is a valid
// empty buffer with zero capacity.
type Buffer struct {
	raw      []byte
	size     int
	capacity int
}

// New returns a buffer with the given capacity and size 0.
func New(capacity int) *Buffer {
	b := &Buffer{}
	b.SetCapacity(capacity)
	return b
}

// Size returns how much of the buffer is in use.
func (b *Buffer) Size() int { return b.size }

// Capacity returns the number of live bytes the buffer can hold.
func (b *Buffer) Capacity() int { return b.capacity }

// Bytes returns the live region.
func (b *Buffer) Bytes() []byte {
	if b.raw == nil {
		return nil
	}
	return b.raw[HeadSize : HeadSize+b.size]
}

// Padded returns the whole backing slice including both sentinel regions.
// The live region starts at index HeadSize.
func (b *Buffer) Padded() []byte {
	if b.raw == nil {
		// Keep the sentinel contract even at zero capacity.
		b.SetCapacity(0)
	}
	return b.raw
}

// At reads a byte at a live-region index. Indexes -1 through size+TailSize-1
// are valid reads thanks to the sentinels.
func (b *Buffer) At(i int) byte {
	return b.Padded()[HeadSize+i]
}

// SetSize sets how much of the buffer is in use and re-establishes the
// trailing sentinel region. Panics if n exceeds the capacity.
func (b *Buffer) SetSize(n int) {
	if n > b.capacity {
		panic(fmt.Sprintf("buffer: size %d exceeds capacity %d", n, b.capacity))
	}
	if b.raw == nil {
		b.SetCapacity(0)
	}
	b.size = n
	tail := b.raw[HeadSize+n : HeadSize+n+TailSize]
	for i := range tail {
		tail[i] = 0
	}
}

// SetCapacity reallocates the buffer, preserving live bytes up to the new
// capacity and restoring all sentinels. Shrinking below the current size
// clamps the size.
func (b *Buffer) SetCapacity(capacity int) {
	raw := make([]byte, HeadSize+capacity+TailSize)
	raw[HeadSize-1] = '\n'
	keep := b.size
	if keep > capacity {
		keep = capacity
	}
	if keep > 0 {
		copy(raw[HeadSize:], b.raw[HeadSize:HeadSize+keep])
	}
	b.raw = raw
	b.capacity = capacity
	b.SetSize(keep)
}

// Reset drops the allocation down to zero capacity and size.
func (b *Buffer) Reset() {
	b.size = 0
	b.SetCapacity(0)
}

// ReadFile reads the file at path into a fresh buffer. sizeHint, typically
// the stat-reported size, presizes the buffer; the file may still grow or
// shrink between stat and read.
func ReadFile(path string, sizeHint int64) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if sizeHint <= 0 {
		if fi, err := f.Stat(); err == nil {
			sizeHint = fi.Size()
		}
	}
	b := New(int(sizeHint))

	total := 0
	for {
		if total == b.Capacity() {
			grow := b.Capacity() * 2
			if grow < 1024 {
				grow = 1024
			}
			// SetCapacity preserves only the live region, so mark what has
			// been read so far as live before growing.
			b.SetSize(total)
			b.SetCapacity(grow)
		}
		n, err := f.Read(b.Padded()[HeadSize+total : HeadSize+b.Capacity()])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	b.SetSize(total)
	return b, nil
}
