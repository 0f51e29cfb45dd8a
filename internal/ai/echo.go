package ai

import (
	"context"
	"fmt"
)

// EchoAI repeats the last user turn. It lets the server run without model
// credentials.
type EchoAI struct{}

func (EchoAI) GetReply(_ context.Context, _ string, history []Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return fmt.Sprintf("You said: %s", history[i].Text), nil
		}
	}
	return "Hello! How can I help?", nil
}
