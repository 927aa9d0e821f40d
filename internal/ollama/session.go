package ollama

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Session is one conversation: the system prompt followed by alternating
// user and assistant turns.
type Session struct {
	client       Chatter
	model        string
	systemPrompt string
	messages     []Message
}

func NewSession(client Chatter, model, systemPrompt string) *Session {
	s := &Session{client: client, model: model, systemPrompt: systemPrompt}
	s.Clear()
	return s
}

// LoadSystemPrompt reads path and joins its lines with single spaces.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return strings.Join(strings.Split(string(data), "\n"), " "), nil
}

func (s *Session) Model() string        { return s.model }
func (s *Session) SystemPrompt() string { return s.systemPrompt }

// Clear drops every turn, keeping the system prompt.
func (s *Session) Clear() {
	s.messages = []Message{{Role: RoleSystem, Content: s.systemPrompt}}
}

func (s *Session) History() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send adds text as a user turn and streams the reply. On failure the user
// turn is withdrawn so the history stays well-formed.
func (s *Session) Send(ctx context.Context, text string, onChunk func(string)) (string, error) {
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})

	reply, err := s.client.Chat(ctx, ChatRequest{Model: s.model, Messages: s.History()}, onChunk)
	if err != nil {
		s.messages = s.messages[:len(s.messages)-1]
		return "", err
	}
	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: reply})
	return reply, nil
}
