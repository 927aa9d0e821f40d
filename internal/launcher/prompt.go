package launcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const pauseMessage = "Press any key to continue . . . "

// Acknowledger blocks until the user confirms.
type Acknowledger interface {
	Acknowledge(ctx context.Context) error
}

// KeyPrompt waits for a single key when In is a terminal, otherwise for a
// line or end of input.
type KeyPrompt struct {
	In  io.Reader
	Out io.Writer
}

func (p *KeyPrompt) Acknowledge(ctx context.Context) error {
	fmt.Fprint(p.Out, pauseMessage)
	defer fmt.Fprintln(p.Out)

	read := func() error {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		return ignoreEOF(err)
	}
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		if state, err := term.MakeRaw(fd); err == nil {
			// Restored here, not in the reader, so cancellation cannot
			// leave the terminal raw.
			defer term.Restore(fd, state)
			read = func() error {
				var b [1]byte
				_, err := f.Read(b[:])
				return ignoreEOF(err)
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- read() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
