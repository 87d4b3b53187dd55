package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRunnerCapturesStdout(t *testing.T) {
	r := NewCommandRunner(5*time.Second, "sh", "-c", "echo 'Tctl: +45.0°C'; echo noise >&2")

	out, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Tctl: +45.0°C\n", out, "stderr is discarded")
}

func TestCommandRunnerNonZeroExit(t *testing.T) {
	r := NewCommandRunner(5*time.Second, "sh", "-c", "exit 3")

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "exited with code 3")
}

func TestCommandRunnerMissingBinary(t *testing.T) {
	r := NewCommandRunner(time.Second, "amdtop-no-such-tool")

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Couldn't run amdtop-no-such-tool")
}

func TestCommandRunnerTimeout(t *testing.T) {
	r := NewCommandRunner(50*time.Millisecond, "sleep", "5")

	start := time.Now()
	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestLookPathCheck(t *testing.T) {
	assert.NoError(t, LookPathCheck("sh")(context.Background()))

	err := LookPathCheck("amdtop-no-such-tool")(context.Background())
	require.Error(t, err)
	assert.Equal(t, "amdtop-no-such-tool not found in PATH", err.Error())
}
