package cli

import (
	"context"
	"testing"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRequiresAddress(t *testing.T) {
	withConfigFile(t, "exporter:\n  address: \"\"\n")
	t.Setenv("AMDTOP_EXPORTER_ADDRESS", "")

	prev := serveAddr
	serveAddr = ""
	defer func() { serveAddr = prev }()

	err := serveCommand(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "--metrics-addr")
}
