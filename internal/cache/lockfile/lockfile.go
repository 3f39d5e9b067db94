// Package lockfile serializes access to a cache directory across processes.
//
// A lock on p is a symlink p.lock whose target identifies the owner as
// host:pid:token (a regular file with the same content on Windows, which has
// no usable symlinks for this). A held lock whose owner is dead, or whose
// owner identity stops changing for the caller's staleness budget, is broken
// under a secondary p.lock.lock guard. A p.lock that is not a symlink cannot
// be attributed to an owner and is never broken.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pollInterval = time.Millisecond

// Lock is a lock on a single path. Not safe for concurrent use.
type Lock struct {
	path string
	log  *zap.Logger
}

// New returns an unacquired lock for path.
func New(path string, logger *zap.Logger) *Lock {
	return &Lock{path: path, log: logger}
}

func (l *Lock) lockPath() string { return l.path + ".lock" }

func ownerContent() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString())
}

// makeLock creates the lock artifact with the given content. A nil error
// means the lock was taken; os.ErrExist means somebody holds it.
func makeLock(path, content string) error {
	if runtime.GOOS == "windows" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
		if err != nil {
			return err
		}
		_, werr := f.WriteString(content)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return werr
	}
	return os.Symlink(content, path)
}

// readLock returns the owner content of an existing lock. An error means the
// lock cannot be attributed (gone, or not the artifact we create).
func readLock(path string) (string, error) {
	if runtime.GOOS == "windows" {
		content, err := os.ReadFile(path)
		return string(content), err
	}
	return os.Readlink(path)
}

// ownerDead reports whether the lock content names a process on this host
// that no longer exists.
func ownerDead(content string) bool {
	parts := strings.SplitN(content, ":", 3)
	if len(parts) < 2 {
		return false
	}
	hostname, err := os.Hostname()
	if err != nil || parts[0] != hostname {
		return false
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return errors.Is(proc.Signal(syscall.Signal(0)), os.ErrProcessDone)
}

// Acquire takes the lock, waiting up to staleness for the current owner to
// let go before concluding the lock is stale and breaking it. Returns
// whether the lock was acquired.
func (l *Lock) Acquire(staleness time.Duration) bool {
	lockfile := l.lockPath()
	content := ownerContent()
	var initialContent string
	slept := time.Duration(0)

	for {
		err := makeLock(lockfile, content)
		if err == nil {
			return true
		}
		if !os.IsExist(err) {
			l.log.Warn("failed to create lockfile",
				zap.String("path", lockfile), zap.Error(err))
			return false
		}

		seen, err := readLock(lockfile)
		if err != nil {
			if os.IsNotExist(err) {
				// Released between our attempts.
				continue
			}
			// Not something we created; nobody to attribute it to.
			l.log.Warn("lockfile is not breakable",
				zap.String("path", lockfile), zap.Error(err))
			return false
		}

		if initialContent == "" {
			initialContent = seen
		} else if seen != initialContent {
			// Ownership changed hands; restart the staleness clock.
			initialContent = seen
			slept = 0
		}

		stale := ownerDead(seen) || (slept > staleness && seen == initialContent)
		if stale {
			return l.breakLock(seen, content)
		}

		if slept > staleness {
			return false
		}
		time.Sleep(pollInterval)
		slept += pollInterval
	}
}

// breakLock replaces a stale lock. The guard keeps two breakers from racing:
// whoever holds p.lock.lock owns the replacement of p.lock.
func (l *Lock) breakLock(stale, content string) bool {
	lockfile := l.lockPath()
	guard := lockfile + ".lock"
	l.log.Debug("breaking stale lock",
		zap.String("path", lockfile), zap.String("owner", stale))

	// A leftover guard belongs to a breaker that is itself stale.
	os.Remove(guard)
	if err := makeLock(guard, content); err != nil {
		l.log.Warn("failed to take break guard",
			zap.String("path", guard), zap.Error(err))
		return false
	}
	defer os.Remove(guard)

	if err := os.Remove(lockfile); err != nil && !os.IsNotExist(err) {
		return false
	}
	if err := makeLock(lockfile, content); err != nil {
		return false
	}
	return true
}

// Release removes the lock artifact. Like the acquire side it trusts the
// caller: releasing a lock held by somebody else removes their lock.
func (l *Lock) Release() {
	if err := os.Remove(l.lockPath()); err != nil && !os.IsNotExist(err) {
		l.log.Warn("failed to remove lockfile",
			zap.String("path", l.lockPath()), zap.Error(err))
	}
}
