//go:build !windows

package launcher

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davebream/olaunch/internal/process"
)

func TestExecRunner(t *testing.T) {
	t.Run("reports exit code without error", func(t *testing.T) {
		code, err := ExecRunner{}.Run(context.Background(), process.Command{Path: "/bin/sh", Args: []string{"-c", "exit 3"}})
		require.NoError(t, err)
		assert.Equal(t, 3, code)
	})

	t.Run("passes env, dir and stdio", func(t *testing.T) {
		dir := t.TempDir()
		var stdout bytes.Buffer
		r := ExecRunner{Stdin: strings.NewReader("from-stdin"), Stdout: &stdout}

		code, err := r.Run(context.Background(), process.Command{
			Path: "/bin/sh",
			Args: []string{"-c", `printf '%s|%s|' "$GREETING" "$(pwd -P)"; cat`},
			Env:  []string{"GREETING=hello"},
			Dir:  dir,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, code)

		parts := strings.Split(stdout.String(), "|")
		require.Len(t, parts, 3)
		assert.Equal(t, "hello", parts[0])
		assert.Contains(t, parts[1], strings.TrimPrefix(dir, "/private"))
		assert.Equal(t, "from-stdin", parts[2])
	})
}
