package conversation

import "context"

// Chat roles used in LLMRequest transcripts.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn handed to the model. Unlike the transcript Message
// type it may carry the system role.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMRequest is a provider-neutral completion request. Model is the
// provider-specific model ID; clients with a pinned default accept it empty.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// TokenUsage reports what the provider billed for the call.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMResponse carries the completion text plus accounting metadata.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient abstracts the completion providers (Gemini, Bedrock, fallback
// chains). Implementations must be safe for concurrent use; a nil client is
// handled by callers, which then run deterministic extraction only.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
