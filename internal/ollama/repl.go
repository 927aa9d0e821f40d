package ollama

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const banner = `Starting chat with %s.
        Special commands:
            !clear - clears the conversation (resets model context)
            !exit - ends the session.
            !history - print the entire conversation
        In long chats, you should periodically clear the conversation, otherwise your chat will start to become slow.
        `

var (
	systemColor    = color.New(color.FgYellow)
	userColor      = color.New(color.FgBlue)
	assistantColor = color.New(color.FgGreen)
)

var roleLabels = map[string]string{
	RoleSystem:    "[System]",
	RoleUser:      "[You]",
	RoleAssistant: "[Assistant]",
}

func colorFor(role string) *color.Color {
	switch role {
	case RoleSystem:
		return systemColor
	case RoleAssistant:
		return assistantColor
	default:
		return userColor
	}
}

// REPL drives a Session from line-oriented input.
type REPL struct {
	Session *Session
	In      io.Reader
	Out     io.Writer
}

// Run prints the banner and handles input until !exit, end of input, or ctx
// is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	userColor.Fprintln(r.Out, fmt.Sprintf(banner, r.Session.Model()))
	fmt.Fprintf(r.Out, "\n%s: %s\n", systemColor.Sprint(roleLabels[RoleSystem]), r.Session.SystemPrompt())
	fmt.Fprintln(r.Out, strings.Repeat("-", 50))

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	for {
		fmt.Fprintf(r.Out, "\n%s ", userColor.Sprint("[You]:"))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.Out, "\nEnding chat session.")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.Out, "\nEnding chat session.")
				return <-readErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if r.Handle(ctx, line) {
			return nil
		}
	}
}

// Handle executes one line of input and reports whether the session should
// end.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	switch {
	case line == "!exit":
		fmt.Fprintln(r.Out, "Ending chat session.")
		return true
	case line == "!history":
		for _, m := range r.Session.History() {
			fmt.Fprintf(r.Out, "\n%s: %s\n", colorFor(m.Role).Sprint(roleLabels[m.Role]), m.Content)
		}
	case strings.ToLower(line) == "!clear":
		r.Session.Clear()
		fmt.Fprintln(r.Out, "Conversation history cleared.")
	default:
		fmt.Fprintf(r.Out, "%s ", assistantColor.Sprint("[Assistant]:"))
		_, err := r.Session.Send(ctx, line, func(chunk string) {
			fmt.Fprint(r.Out, chunk)
		})
		if err != nil {
			fmt.Fprintf(r.Out, "Error communicating with Ollama: %v", err)
		}
		fmt.Fprintln(r.Out)
	}
	return false
}
