package command

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	out, err := New().Run(context.Background(), "echo", "hello")

	require.NoError(t, err)
	assert.Contains(t, string(out), "hello")
}

func TestRunMissingTool(t *testing.T) {
	_, err := New().Run(context.Background(), "definitely-not-installed-tool")

	assert.ErrorIs(t, err, exec.ErrNotFound)
}
