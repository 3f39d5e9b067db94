package buffer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// checkSentinels verifies the buffer contract: a newline before the live
// region and TailSize NUL bytes after it.
func checkSentinels(t *testing.T, b *Buffer) {
	t.Helper()
	if got := b.At(-1); got != '\n' {
		t.Errorf("lead sentinel = %q, want '\\n'", got)
	}
	for i := 0; i < TailSize; i++ {
		if got := b.At(b.Size() + i); got != 0 {
			t.Errorf("tail sentinel at size+%d = %q, want 0", i, got)
		}
	}
}

func TestNew(t *testing.T) {
	for _, capacity := range []int{0, 1, 7, 31, 32, 4096} {
		b := New(capacity)
		if b.Size() != 0 {
			t.Errorf("New(%d).Size() = %d, want 0", capacity, b.Size())
		}
		if b.Capacity() != capacity {
			t.Errorf("New(%d).Capacity() = %d", capacity, b.Capacity())
		}
		checkSentinels(t, b)
	}
}

func TestSetSize(t *testing.T) {
	b := New(16)
	copy(b.Padded()[HeadSize:], "0123456789abcdef")
	b.SetSize(16)
	checkSentinels(t, b)

	// Shrinking re-establishes the tail over former content.
	b.SetSize(4)
	checkSentinels(t, b)
	if got := string(b.Bytes()); got != "0123" {
		t.Errorf("Bytes() = %q, want %q", got, "0123")
	}
}

func TestSetSizeIdempotent(t *testing.T) {
	b := New(8)
	copy(b.Padded()[HeadSize:], "abcdefgh")
	b.SetSize(8)
	before := string(b.Bytes())

	b.SetSize(b.Size())
	if got := string(b.Bytes()); got != before {
		t.Errorf("SetSize(Size()) changed content: %q -> %q", before, got)
	}
	checkSentinels(t, b)
}

func TestSetSizePanicsBeyondCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SetSize beyond capacity did not panic")
		}
	}()
	New(4).SetSize(5)
}

func TestSetCapacity(t *testing.T) {
	b := New(8)
	copy(b.Padded()[HeadSize:], "abcdefgh")
	b.SetSize(8)

	// Growing preserves content.
	b.SetCapacity(32)
	if got := string(b.Bytes()); got != "abcdefgh" {
		t.Errorf("after grow Bytes() = %q", got)
	}
	checkSentinels(t, b)

	// Shrinking below size clamps size.
	b.SetCapacity(3)
	if b.Size() != 3 {
		t.Errorf("after shrink Size() = %d, want 3", b.Size())
	}
	if got := string(b.Bytes()); got != "abc" {
		t.Errorf("after shrink Bytes() = %q", got)
	}
	checkSentinels(t, b)
}

func TestReset(t *testing.T) {
	b := New(8)
	b.SetSize(8)
	b.Reset()
	if b.Size() != 0 || b.Capacity() != 0 {
		t.Errorf("after Reset size=%d capacity=%d", b.Size(), b.Capacity())
	}
	checkSentinels(t, b)
}

func TestZeroValue(t *testing.T) {
	var b Buffer
	if got := b.At(-1); got != '\n' {
		t.Errorf("zero value lead sentinel = %q", got)
	}
	checkSentinels(t, &b)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("temporal "), 1000)
	path := filepath.Join(dir, "input.cdt")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		sizeHint int64
	}{
		{"exact hint", int64(len(content))},
		{"zero hint", 0},
		{"small hint", 10},
		{"oversized hint", int64(len(content)) * 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ReadFile(path, tt.sizeHint)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if !bytes.Equal(b.Bytes(), content) {
				t.Errorf("ReadFile() content mismatch: got %d bytes, want %d",
					b.Size(), len(content))
			}
			checkSentinels(t, b)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Error("ReadFile() on missing file succeeded")
	}
}
