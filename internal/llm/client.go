package llm

import (
	"context"
)

// LLMClient is the narrow contract for one text-in, text-out model call.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentClient generates from an uploaded document plus a prompt. Only
// providers with a file API implement it; callers type-assert and fall back
// to text-only generation when the provider cannot read documents.
type DocumentClient interface {
	GenerateFromFile(ctx context.Context, prompt, path string) (string, error)
}
