package launcher

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davebream/olaunch/internal/process"
)

func TestExecRunnerMissingProgram(t *testing.T) {
	code, err := ExecRunner{}.Run(context.Background(), process.Command{Path: "/nonexistent/olaunch-entry"})
	require.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestKeyPrompt(t *testing.T) {
	t.Run("returns on newline", func(t *testing.T) {
		var out bytes.Buffer
		p := &KeyPrompt{In: strings.NewReader("\n"), Out: &out}

		require.NoError(t, p.Acknowledge(context.Background()))
		assert.Equal(t, pauseMessage+"\n", out.String())
	})

	t.Run("end of input counts as acknowledgment", func(t *testing.T) {
		var out bytes.Buffer
		p := &KeyPrompt{In: strings.NewReader(""), Out: &out}
		assert.NoError(t, p.Acknowledge(context.Background()))
	})

	t.Run("cancellation unblocks", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		defer r.Close()
		defer w.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var out bytes.Buffer
		err = (&KeyPrompt{In: r, Out: &out}).Acknowledge(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
