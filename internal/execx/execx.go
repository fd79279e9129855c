package execx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/linkhoard/linkhoard/internal/errkind"
)

// killGrace is how long a cancelled subprocess gets between SIGTERM and
// SIGKILL.
const killGrace = 5 * time.Second

// Result captures a completed subprocess run.
type Result struct {
	Status int
	Stdout []byte
	Stderr []byte
}

// RunOptions tweaks a single invocation.
type RunOptions struct {
	Env   []string // appended to the parent environment
	Stdin []byte
}

// StartError reports that the binary could not be started at all (missing,
// not executable). Distinct from a run that exited non-zero.
type StartError struct {
	Program string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Program, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitError reports a process that started but exited non-zero or was
// killed by a signal.
type ExitError struct {
	Program  string
	Status   int
	Signaled bool
	Stderr   []byte
}

func (e *ExitError) Error() string {
	tail := stderrTail(e.Stderr)
	if e.Signaled {
		return fmt.Sprintf("%s killed by signal: %s", e.Program, tail)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Program, e.Status, tail)
}

func stderrTail(stderr []byte) string {
	s := bytes.TrimSpace(stderr)
	const max = 400
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return string(s)
}

// Run invokes program with args and waits for completion, capturing both
// output streams. Cancelling ctx sends SIGTERM and escalates to SIGKILL
// after a short grace period. Processes killed by a signal come back as
// transient errors so the task queue retries them.
func Run(ctx context.Context, program string, args []string, opts *RunOptions) (*Result, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts != nil {
		if opts.Env != nil {
			cmd.Env = append(cmd.Environ(), opts.Env...)
		}
		if opts.Stdin != nil {
			cmd.Stdin = bytes.NewReader(opts.Stdin)
		}
	}

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Status = exitErr.ExitCode()
		ee := &ExitError{
			Program:  program,
			Status:   exitErr.ExitCode(),
			Signaled: exitErr.ExitCode() == -1,
			Stderr:   stderr.Bytes(),
		}
		if ee.Signaled {
			return res, errkind.Transient(ee)
		}
		return res, errkind.Permanent(ee)
	}
	return res, errkind.Permanent(&StartError{Program: program, Err: err})
}

// StreamLines invokes program and feeds every stdout line to fn, keeping
// memory bounded regardless of output size. Stderr is discarded. A
// non-zero exit after the stream drains is an error; fn returning an
// error aborts the process.
func StreamLines(ctx context.Context, program string, args []string, fn func(line string) error) error {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killGrace
	cmd.Stderr = io.Discard

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return errkind.Permanent(&StartError{Program: program, Err: err})
	}
	if err := cmd.Start(); err != nil {
		return errkind.Permanent(&StartError{Program: program, Err: err})
	}

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var fnErr error
	for scanner.Scan() {
		if fnErr = fn(scanner.Text()); fnErr != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			break
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if fnErr != nil {
		return fnErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if scanErr != nil {
		return fmt.Errorf("failed to read %s output: %w", program, scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return errkind.Permanent(&ExitError{Program: program, Status: exitErr.ExitCode()})
		}
		return errkind.Permanent(&StartError{Program: program, Err: waitErr})
	}
	return nil
}
