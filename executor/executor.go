// Package executor runs the pipeline's external commands with retry logic,
// output capture, environment injection, and context support for
// cancellation and per-step timeouts.
//
// All captured output passes through the configured redactor before it is
// returned, so resolved secret values never reach logs or the run journal.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Redactor scrubs secret values from captured output.
// *secrets.Redactor satisfies this interface.
type Redactor interface {
	Redact(s string) string
}

// Spec describes one command execution.
type Spec struct {
	// Program is the executable to run.
	Program string

	// Args are the program arguments.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds environment variables appended to the current environment.
	// Secret-bearing variables go here; values are never echoed.
	Env map[string]string

	// Stdin is piped to the process when non-empty.
	Stdin string

	// Timeout bounds a single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration

	// Retries is the number of additional attempts after a failure.
	Retries int

	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration
}

// Result holds the redacted output and exit status of a command execution.
type Result struct {
	// Stdout is the redacted standard output.
	Stdout string

	// Stderr is the redacted standard error.
	Stderr string

	// ExitCode is the process exit code; -1 when the process did not run.
	ExitCode int

	// Attempts is how many attempts were made.
	Attempts int

	// Duration is the wall time of the final attempt.
	Duration time.Duration
}

// Combined returns stdout followed by stderr, for journaling.
func (r *Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner executes Specs. The zero value runs commands without redaction;
// use New with WithRedactor for pipeline use.
type Runner struct {
	redactor Redactor

	// stdoutMirror/stderrMirror optionally receive live output in addition
	// to capture (console streaming). Mirrored output is NOT redacted until
	// capture, so mirrors must only be attached in interactive runs.
	stdoutMirror io.Writer
	stderrMirror io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithRedactor sets the redactor applied to all captured output.
func WithRedactor(r Redactor) Option {
	return func(runner *Runner) {
		runner.redactor = r
	}
}

// WithConsoleMirror streams output to the given writers while capturing.
func WithConsoleMirror(stdout, stderr io.Writer) Option {
	return func(runner *Runner) {
		runner.stdoutMirror = stdout
		runner.stderrMirror = stderr
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the spec, retrying per its retry configuration.
// The returned Result is always non-nil and already redacted, even on error,
// so callers can journal partial output from failed steps.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if spec.Program == "" {
		return &Result{ExitCode: -1}, fmt.Errorf("spec program cannot be empty")
	}

	maxAttempts := spec.Retries + 1
	var lastResult *Result
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := r.runOnce(ctx, spec)
		result.Attempts = attempt
		lastResult, lastErr = result, err

		if err == nil || attempt == maxAttempts {
			return result, err
		}

		delay := spec.RetryDelay
		if delay <= 0 {
			delay = time.Second
		}

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastResult, lastErr
}

func (r *Runner) runOnce(ctx context.Context, spec Spec) (*Result, error) {
	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Program, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = r.wrap(&stdoutBuf, r.stdoutMirror)
	cmd.Stderr = r.wrap(&stderrBuf, r.stderrMirror)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Stdout:   r.redact(stdoutBuf.String()),
		Stderr:   r.redact(stderrBuf.String()),
		Duration: duration,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}

	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return result, fmt.Errorf("command timed out after %s: %w", spec.Timeout, runCtx.Err())
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

func (r *Runner) wrap(buf *bytes.Buffer, mirror io.Writer) io.Writer {
	if mirror == nil {
		return buf
	}
	return io.MultiWriter(buf, mirror)
}

func (r *Runner) redact(s string) string {
	if r.redactor == nil {
		return s
	}
	return r.redactor.Redact(s)
}
