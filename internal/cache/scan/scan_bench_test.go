package scan

import (
	"strings"
	"testing"

	"github.com/conduit-lang/kiln/internal/cache/buffer"
)

func benchInput() *buffer.Buffer {
	chunk := "static int compute(int n) { return n * 31 + offset; } // updated __DATE__\n"
	return bufFrom(strings.Repeat(chunk, 2048))
}

func BenchmarkTemporalBMH(b *testing.B) {
	buf := benchInput()
	b.SetBytes(int64(buf.Size()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		temporalBMH(buf)
	}
}

func BenchmarkTemporalBlock(b *testing.B) {
	buf := benchInput()
	b.SetBytes(int64(buf.Size()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		temporalBlock(buf)
	}
}
