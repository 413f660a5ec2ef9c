package process

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/continuity/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := NewRunner()

	t.Run("Captures Stdout", func(t *testing.T) {
		res, err := r.Run(context.Background(), ports.Command{Name: "echo", Line: "echo hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("Passes Arguments via Env Vars", func(t *testing.T) {
		res, err := r.Run(context.Background(), ports.Command{
			Name: "env",
			Line: "echo $CONTINUITY_ARG_MSG $CONTINUITY_ARG_OPTS",
			Env:  map[string]any{"msg": "SecretMessage", "opts": map[string]int{"n": 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, `SecretMessage {"n":1}`, res.Stdout)
	})

	t.Run("Reports Exit Status", func(t *testing.T) {
		res, err := r.Run(context.Background(), ports.Command{Name: "broken", Line: "echo oops >&2; exit 3"})
		assert.ErrorIs(t, err, ErrCommandFailed)
		assert.ErrorContains(t, err, "exit status 3: oops")
		assert.Equal(t, 3, res.ExitCode)
	})

	t.Run("Honors Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := r.Run(ctx, ports.Command{Name: "slow", Line: "sleep 5"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Rejects Empty Line", func(t *testing.T) {
		_, err := r.Run(context.Background(), ports.Command{Name: "empty", Line: "  "})
		assert.ErrorContains(t, err, "empty command line")
	})
}

func TestRunner_DryRun(t *testing.T) {
	r := NewRunner(WithDryRun(true), WithShell("/nonexistent/shell"))

	res, err := r.Run(context.Background(), ports.Command{Name: "restart", Line: "sudo service dvdstore restart"})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
}

func TestRunner_BaseDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	r := NewRunner(WithBaseDir(dir))

	res, err := r.Run(context.Background(), ports.Command{Name: "pwd", Line: "pwd -P"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}
