package hasher

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	a := New()
	a.Bytes([]byte("resource User { name: string! }"))
	b := New()
	b.Bytes([]byte("resource User { name: string! }"))

	if !bytes.Equal(a.Sum(), b.Sum()) {
		t.Error("identical input produced different digests")
	}
}

func TestIncrementalMatchesOneShot(t *testing.T) {
	oneShot := New()
	oneShot.Bytes([]byte("hello world"))

	incremental := New()
	incremental.Bytes([]byte("hello "))
	incremental.Bytes([]byte("world"))

	if oneShot.HexDigest() != incremental.HexDigest() {
		t.Error("incremental absorption diverged from one-shot")
	}
}

func TestDelimiterPreventsConcatenationCollision(t *testing.T) {
	joined := New()
	joined.Bytes([]byte("ab"))

	framed := New()
	framed.Bytes([]byte("a"))
	framed.Delimiter("x")
	framed.Bytes([]byte("b"))

	if joined.HexDigest() == framed.HexDigest() {
		t.Error("delimiter framing is invisible to the digest")
	}

	// Different labels must also separate.
	other := New()
	other.Bytes([]byte("a"))
	other.Delimiter("y")
	other.Bytes([]byte("b"))
	if framed.HexDigest() == other.HexDigest() {
		t.Error("delimiter label is invisible to the digest")
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		same bool
	}{
		{"equal", 42, 42, true},
		{"different", 42, 43, false},
		{"sign", 1, -1, false},
		{"zero vs min", 0, -9223372036854775808, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := New()
			ha.Int(tt.a)
			hb := New()
			hb.Int(tt.b)
			if got := ha.HexDigest() == hb.HexDigest(); got != tt.same {
				t.Errorf("Int(%d) vs Int(%d): equal=%v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	direct := New()
	direct.Bytes([]byte("stream me"))

	streamed := New()
	n, err := io.Copy(streamed, strings.NewReader("stream me"))
	if err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	if n != int64(len("stream me")) {
		t.Errorf("io.Copy copied %d bytes", n)
	}
	if direct.HexDigest() != streamed.HexDigest() {
		t.Error("Write diverged from Bytes")
	}
}

func TestStringMatchesBytes(t *testing.T) {
	a := New()
	a.String("same")
	b := New()
	b.Bytes([]byte("same"))
	if a.HexDigest() != b.HexDigest() {
		t.Error("String diverged from Bytes")
	}
}

func TestSumLeavesAccumulatorUsable(t *testing.T) {
	h := New()
	h.Bytes([]byte("a"))
	first := h.HexDigest()
	if second := h.HexDigest(); second != first {
		t.Error("Sum mutated the accumulator")
	}

	h.Bytes([]byte("b"))
	ab := New()
	ab.Bytes([]byte("ab"))
	if h.HexDigest() != ab.HexDigest() {
		t.Error("absorption after Sum diverged")
	}
}

func TestHexDigestLength(t *testing.T) {
	if got := len(New().HexDigest()); got != 64 {
		t.Errorf("HexDigest length = %d, want 64", got)
	}
}

func TestFromInt(t *testing.T) {
	if FromInt(7) != FromInt(7) {
		t.Error("FromInt not deterministic")
	}
	if FromInt(7) == FromInt(8) {
		t.Error("FromInt(7) == FromInt(8)")
	}
}
