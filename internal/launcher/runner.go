package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/davebream/olaunch/internal/process"
)

// EntryRunner runs a program to completion and reports its exit code.
type EntryRunner interface {
	Run(ctx context.Context, cmd process.Command) (int, error)
}

// ExecRunner runs the program in the foreground with the given stdio.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run returns the child's exit code. The error is non-nil only when the
// program could not be started or waited on.
func (r ExecRunner) Run(ctx context.Context, c process.Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	// Ctrl-C belongs to the child; the launcher still has to pause afterwards.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", c, err)
	}
	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("wait %s: %w", c, err)
	}
	return 0, nil
}
