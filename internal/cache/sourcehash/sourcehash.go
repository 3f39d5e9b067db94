// Package sourcehash turns preprocessed source into cache-key material. A
// source buffer is absorbed into an incremental hash and, when temporal
// macros occur in it, extra entropy is mixed in so that the key changes
// whenever the macro's expansion would change.
package sourcehash

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/kiln/internal/cache/buffer"
	"github.com/conduit-lang/kiln/internal/cache/hasher"
	"github.com/conduit-lang/kiln/internal/cache/scan"
	"github.com/conduit-lang/kiln/internal/cli/config"
)

// timestampLayout is the fixed 24-character local-time rendering used for
// __TIMESTAMP__ entropy, matching the macro's own expansion format.
const timestampLayout = time.ANSIC

// IsPrecompiledHeader reports whether path designates a precompiled header.
func IsPrecompiledHeader(path string) bool {
	return strings.HasSuffix(path, ".gch") ||
		strings.HasSuffix(path, ".pch") ||
		strings.HasSuffix(path, ".pth")
}

// Hasher hashes source inputs. Instances are cheap and hold no state beyond
// their configuration; independent instances may run in parallel on
// independent buffers and hash handles.
type Hasher struct {
	sloppy config.Sloppiness
	log    *zap.Logger

	// Test seams. Production instances use the real clock and filesystem.
	now   func() time.Time
	stat  func(string) (os.FileInfo, error)
	isPCH func(string) bool
}

// New returns a source hasher honoring the given sloppiness flags.
func New(sloppy config.Sloppiness, logger *zap.Logger) *Hasher {
	return &Hasher{
		sloppy: sloppy,
		log:    logger,
		now:    time.Now,
		stat:   os.Stat,
		isPCH:  IsPrecompiledHeader,
	}
}

// HashString absorbs a source buffer into h, mixing in temporal-macro
// entropy as needed. path names the buffer's origin for diagnostics and for
// the __TIMESTAMP__ mtime lookup. On error the findings seen so far are
// returned but the hash state past the buffer absorption is undefined; the
// caller must discard the key.
func (s *Hasher) HashString(h *hasher.Hash, buf *buffer.Buffer, path string) (scan.Findings, error) {
	var findings scan.Findings
	if s.sloppy&config.SloppyTimeMacros == 0 {
		findings = scan.Temporal(buf)
	}

	h.Bytes(buf.Bytes())

	if findings.Has(scan.FoundDate) {
		s.log.Debug("found __DATE__", zap.String("path", path))

		// The key must change whenever the expansion of __DATE__ would.
		now := s.now().Local()
		h.Delimiter("date")
		h.Int(int64(now.Year()))
		h.Int(int64(now.Month()))
		h.Int(int64(now.Day()))
	}
	if findings.Has(scan.FoundTime) {
		// A key valid for one wall-clock second is useless, so no entropy is
		// mixed in. The finding is reported so the caller can disable its
		// assume-unchanged optimization instead.
		s.log.Debug("found __TIME__", zap.String("path", path))
	}
	if findings.Has(scan.FoundTimestamp) {
		s.log.Debug("found __TIMESTAMP__", zap.String("path", path))

		// The key must change whenever the expansion of __TIMESTAMP__ would,
		// which tracks the file's mtime rendered in local time.
		fi, err := s.stat(path)
		if err != nil {
			return findings, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		h.Delimiter("timestamp")
		h.String(fi.ModTime().Local().Format(timestampLayout) + "\n")
	}

	return findings, nil
}

// HashFile reads the file at path and hashes it like HashString. Precompiled
// headers bypass scanning: their raw content is absorbed as-is. sizeHint
// presizes the read buffer and is typically the stat-reported size.
func (s *Hasher) HashFile(h *hasher.Hash, path string, sizeHint int64) (scan.Findings, error) {
	if s.isPCH(path) {
		content, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		h.Bytes(content)
		return 0, nil
	}

	buf, err := buffer.ReadFile(path, sizeHint)
	if err != nil {
		return 0, err
	}
	return s.HashString(h, buf, path)
}
