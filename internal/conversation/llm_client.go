package conversation

import "context"

// Roles carried in an extraction request. System text travels in
// LLMRequest.System; providers that take it inline skip ChatRoleSystem turns.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one prior turn of the booking conversation as sent to the
// extraction engine.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is logged per turn; zero when the provider does not report it.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is the assembled turn context: booking instructions in System,
// the transcript plus the current utterance in Messages.
type LLMRequest struct {
	Model    string
	System   []string
	Messages []ChatMessage
	// Sampling knobs. Zero leaves the provider default.
	MaxTokens   int32
	Temperature float32
	TopP        float32
	// JSONMode asks the provider to reply with a single JSON object.
	JSONMode bool
}

// LLMResponse carries the raw reply. Text is parsed and normalized by the
// orchestrator, never trusted as is.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is the extraction engine: context in, raw text out. Callers must
// not assume the text honours the requested shape.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
