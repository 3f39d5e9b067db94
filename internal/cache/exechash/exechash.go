// Package exechash hashes the output of compiler check commands. A command's
// combined stdout and stderr is absorbed into an incremental hash in write
// order; the exit status decides whether the absorbed material is usable.
package exechash

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/conduit-lang/kiln/internal/cache/hasher"
)

// compilerToken is replaced by the configured compiler path in every
// argument that equals it exactly.
const compilerToken = "%compiler%"

// FatalError reports an environment failure (pipe or process-creation
// primitive) after which cache correctness cannot be reasoned about. The CLI
// aborts on it; ordinary command failures are a false return instead.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *FatalError) Unwrap() error { return e.Err }

// Runner executes compiler check commands and feeds their output into hash
// handles.
type Runner struct {
	log *zap.Logger
}

// NewRunner returns a command runner.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{log: logger}
}

// splitCommand turns a command string into an argument vector. On Windows
// the command interpreter parses echo itself, so commands that invoke echo
// (directly or through an echo compiler) are routed through cmd.exe with the
// raw command string; this branch is intentionally not unified with the
// POSIX tokenization.
func splitCommand(command, compiler string) ([]string, error) {
	if runtime.GOOS == "windows" {
		command = strings.TrimLeft(command, " \t")
		if strings.HasPrefix(command, "echo") {
			return []string{"cmd.exe", "/c", command}, nil
		}
		if strings.HasPrefix(command, compilerToken) && compiler == "echo" {
			return []string{"cmd.exe", "/c", compiler + command[len(compilerToken):]}, nil
		}
	}

	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %q: %w", command, err)
	}
	for i, arg := range argv {
		if arg == compilerToken {
			argv[i] = compiler
		}
	}
	return argv, nil
}

// HashCommandOutput runs command with every %compiler% argument replaced by
// compiler, absorbing the child's combined stdout and stderr into h until
// EOF, then reaps the child. It returns true iff the output was fully read
// and the child exited with status zero. The returned error is non-nil only
// for fatal environment failures.
func (r *Runner) HashCommandOutput(h *hasher.Hash, command, compiler string) (bool, error) {
	argv, err := splitCommand(command, compiler)
	if err != nil || len(argv) == 0 {
		r.log.Warn("unusable compiler check command",
			zap.String("command", command), zap.Error(err))
		return false, nil
	}
	r.log.Debug("executing compiler check command", zap.Strings("argv", argv))

	pr, pw, err := os.Pipe()
	if err != nil {
		return false, &FatalError{Op: "pipe failed", Err: err}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		// A command that cannot be resolved or exec'd (*exec.Error from
		// lookup, *fs.PathError from fork/exec) is the child dying on a
		// failed exec; anything else is the spawn primitive itself failing.
		var execErr *exec.Error
		var pathErr *fs.PathError
		if errors.As(err, &execErr) || errors.As(err, &pathErr) {
			r.log.Warn("compiler check command failed to exec",
				zap.String("command", argv[0]), zap.Error(err))
			return false, nil
		}
		return false, &FatalError{Op: "spawn failed", Err: err}
	}

	// The child holds its own copy of the write end; ours must go away or
	// the read loop never sees EOF.
	pw.Close()

	// Drain before reaping so a child writing more than one pipe buffer
	// cannot deadlock against us.
	_, copyErr := io.Copy(h, pr)
	pr.Close()
	if copyErr != nil {
		r.log.Warn("error hashing compiler check command output", zap.Error(copyErr))
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.log.Warn("compiler check command failed",
				zap.Int("exit_code", exitErr.ExitCode()))
		} else {
			r.log.Warn("wait failed", zap.Error(err))
		}
		return false, nil
	}

	return copyErr == nil, nil
}

// HashMultiCommandOutput splits commands on ';' and runs each non-empty
// segment. Every segment is attempted even after a failure so the hash is
// populated with whatever material the command list does produce; the result
// is true iff every segment succeeded.
func (r *Runner) HashMultiCommandOutput(h *hasher.Hash, commands, compiler string) (bool, error) {
	ok := true
	for _, command := range strings.Split(commands, ";") {
		if strings.TrimSpace(command) == "" {
			continue
		}
		cmdOK, err := r.HashCommandOutput(h, command, compiler)
		if err != nil {
			return false, err
		}
		if !cmdOK {
			ok = false
		}
	}
	return ok, nil
}
