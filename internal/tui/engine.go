package tui

import (
	"context"
	"strings"

	"edgegen/internal/session"
)

// Engine produces a reply stream for a formatted prompt.
type Engine interface {
	Stream(ctx context.Context, prompt string) <-chan session.Event
	Stop()
}

// SessionEngine runs prompts on the current context of a Session.
type SessionEngine struct {
	Session   *session.Session
	MaxTokens int
}

func (e SessionEngine) Stream(ctx context.Context, prompt string) <-chan session.Event {
	_, c := e.Session.Current()
	return e.Session.Stream(ctx, c, session.Request{Prompt: prompt, MaxTokens: e.MaxTokens})
}

func (e SessionEngine) Stop() { e.Session.Stop() }

// Turn is one exchange in the conversation.
type Turn struct {
	Role    string
	Content string
}

// ChatML renders the conversation with the ChatML template and opens an
// assistant turn.
func ChatML(system string, turns []Turn) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString("<|im_start|>system\n" + system + "<|im_end|>\n")
	}
	for _, t := range turns {
		sb.WriteString("<|im_start|>" + t.Role + "\n" + t.Content + "<|im_end|>\n")
	}
	sb.WriteString("<|im_start|>assistant\n")
	return sb.String()
}
