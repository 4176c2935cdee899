package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/secrets"
)

func TestRunCapturesOutput(t *testing.T) {
	ctx := context.Background()
	runner := New()

	result, err := runner.Run(ctx, Spec{Program: "echo", Args: []string{"hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, 1, result.Attempts)
}

func TestRunExitCode(t *testing.T) {
	ctx := context.Background()
	runner := New()

	result, err := runner.Run(ctx, Spec{Program: "sh", Args: []string{"-c", "exit 3"}})
	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunMissingProgram(t *testing.T) {
	ctx := context.Background()
	runner := New()

	result, err := runner.Run(ctx, Spec{Program: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	assert.Equal(t, -1, result.ExitCode)
}

func TestRunEmptySpec(t *testing.T) {
	ctx := context.Background()
	runner := New()

	_, err := runner.Run(ctx, Spec{})
	assert.Error(t, err)
}

func TestRunEnvInjection(t *testing.T) {
	ctx := context.Background()
	runner := New()

	result, err := runner.Run(ctx, Spec{
		Program: "sh",
		Args:    []string{"-c", "printf '%s' \"$RELEASE_TOKEN\""},
		Env:     map[string]string{"RELEASE_TOKEN": "tok-xyz789"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz789", result.Stdout)
}

func TestRunRedactsCapturedOutput(t *testing.T) {
	ctx := context.Background()

	redactor := secrets.NewRedactor()
	redactor.Add("tok-xyz789")
	runner := New(WithRedactor(redactor))

	result, err := runner.Run(ctx, Spec{
		Program: "sh",
		Args:    []string{"-c", "echo publishing with tok-xyz789; echo tok-xyz789 >&2"},
	})
	require.NoError(t, err)
	assert.NotContains(t, result.Stdout, "tok-xyz789")
	assert.NotContains(t, result.Stderr, "tok-xyz789")
	assert.NotContains(t, result.Combined(), "tok-xyz789")
	assert.Contains(t, result.Stdout, "[REDACTED]")
}

func TestRunStdin(t *testing.T) {
	ctx := context.Background()
	runner := New()

	result, err := runner.Run(ctx, Spec{
		Program: "cat",
		Stdin:   "piped input",
	})
	require.NoError(t, err)
	assert.Equal(t, "piped input", result.Stdout)
}

func TestRunTimeout(t *testing.T) {
	ctx := context.Background()
	runner := New()

	start := time.Now()
	_, err := runner.Run(ctx, Spec{
		Program: "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunRetries(t *testing.T) {
	ctx := context.Background()
	runner := New()

	// A command that always fails exhausts all attempts.
	result, err := runner.Run(ctx, Spec{
		Program:    "false",
		Retries:    2,
		RetryDelay: 10 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, 3, result.Attempts)
}

func TestRunRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	runner := New()
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := runner.Run(ctx, Spec{
		Program:    "false",
		Retries:    10,
		RetryDelay: time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
