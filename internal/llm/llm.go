package llm

import (
	"context"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Options tunes a generator at construction time.
type Options struct {
	Model             string
	SystemInstruction string
	Temperature       float32
	MaxOutputTokens   int32
	// JSONOutput asks the provider for a bare JSON object.
	JSONOutput bool
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
