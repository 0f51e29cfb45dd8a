package ai

import "context"

// AI answers on behalf of an assistant. It knows nothing about projects or
// sessions.
type AI interface {
	GetReply(
		ctx context.Context,
		systemPrompt string,
		history []Message,
	) (string, error)
}

// Message is one dialog turn in model-neutral form.
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}
