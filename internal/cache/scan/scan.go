// Package scan detects the temporal preprocessor macros __DATE__, __TIME__
// and __TIMESTAMP__ in source buffers. Detection runs on every input on
// every invocation, so there are two interchangeable algorithms: a
// Boyer-Moore-Horspool walk and a 32-byte block path that mimics the
// first/last-character SIMD search from <http://0x80.pl/articles/simd-strfind.html>
// with word-sized operations. Both rely on the buffer's sentinel contract:
// one newline before the live region and at least 31 NUL bytes after it.
package scan

import (
	"golang.org/x/sys/cpu"

	"github.com/conduit-lang/kiln/internal/cache/buffer"
)

// Findings is a bitmask of the temporal macros present in a buffer.
type Findings uint8

const (
	FoundDate Findings = 1 << iota
	FoundTime
	FoundTimestamp
)

// Has reports whether all bits of f2 are set in f.
func (f Findings) Has(f2 Findings) bool { return f&f2 == f2 }

func (f Findings) String() string {
	s := ""
	if f.Has(FoundDate) {
		s += "__DATE__ "
	}
	if f.Has(FoundTime) {
		s += "__TIME__ "
	}
	if f.Has(FoundTimestamp) {
		s += "__TIMESTAMP__ "
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// The needles share an 8-byte profile: '_' at offset 0 and 'E' at offset 5.
// __TIMESTAMP__ is caught through its "__TIMEST" prefix and disambiguated by
// the verifier.
var needles = [3]string{"__DATE__", "__TIME__", "__TIMEST"}

// macroSkip[c] is the Boyer-Moore-Horspool advance for a window whose last
// byte is c, taken as the minimum safe skip over all three needles.
var macroSkip [256]uint8

func init() {
	for c := range macroSkip {
		macroSkip[c] = 8
	}
	for _, n := range needles {
		// The last needle byte does not shorten the skip.
		for pos := 0; pos < len(n)-1; pos++ {
			skip := uint8(len(n) - 1 - pos)
			if skip < macroSkip[n[pos]] {
				macroSkip[n[pos]] = skip
			}
		}
	}
}

// useBlockScan is decided once: the block path touches 32 bytes per step and
// only pays off where the hardware moves 32-byte vectors natively.
var useBlockScan = cpu.X86.HasAVX2

// ForceBlockScan overrides the startup path selection. Both paths return
// identical findings for identical input; this exists for the scanner-path
// configuration override and for tests.
func ForceBlockScan(enabled bool) { useBlockScan = enabled }

// BlockScanEnabled reports whether Temporal uses the block path.
func BlockScanEnabled() bool { return useBlockScan }

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// verify checks a candidate match. p indexes the padded slice at the byte
// after the first '_' of a possible "__MACRO__" (so the remaining needle is
// "_DATE__", "_TIME__" or "_TIMESTAMP__"), and rem is the number of live
// bytes from p to the end of the buffer. Both neighbour reads land on sentinels when the
// match touches a buffer edge, and both sentinels ('\n', NUL) are
// non-identifier bytes.
func verify(padded []byte, p, rem int) Findings {
	if rem < 7 {
		return 0
	}

	var found Findings
	matchLen := 7
	switch {
	case string(padded[p:p+7]) == "_DATE__":
		found = FoundDate
	case string(padded[p:p+7]) == "_TIME__":
		found = FoundTime
	case rem >= 12 && string(padded[p:p+12]) == "_TIMESTAMP__":
		found = FoundTimestamp
		matchLen = 12
	default:
		return 0
	}

	// Reject matches embedded in a longer identifier.
	if isIdentChar(padded[p-2]) || isIdentChar(padded[p+matchLen]) {
		return 0
	}
	return found
}

// temporalBMH is the scalar path: Boyer-Moore-Horspool over the union of the
// three needles. The needles are 8 bytes, so the cursor starts at 7 and each
// position is filtered on 'E' at offset -2 and '_' at offset -7 before the
// verifier runs ('E' is rarer in source text than '_', so it goes first).
func temporalBMH(b *buffer.Buffer) Findings {
	var result Findings

	padded := b.Padded()
	size := b.Size()
	for i := 7; i < size; i += int(macroSkip[padded[buffer.HeadSize+i]]) {
		end := buffer.HeadSize + i
		if padded[end-2] == 'E' && padded[end-7] == '_' {
			result |= verify(padded, end-6, size-i+6)
		}
	}

	return result
}

// Temporal scans a buffer and returns the set of temporal macros that occur
// in it as whole tokens.
func Temporal(b *buffer.Buffer) Findings {
	if useBlockScan {
		return temporalBlock(b)
	}
	return temporalBMH(b)
}
