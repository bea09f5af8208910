package outbound

import "context"

// LLMClient is the port to the external language model used by the AI copilot.
//
// Configured returns false when no API key is available; callers must then
// degrade to returning raw data without analysis instead of failing.
type LLMClient interface {
	// Complete sends a system prompt and a user prompt to the model and
	// returns the completion text.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Configured reports whether the client has credentials to reach the model.
	Configured() bool
}
