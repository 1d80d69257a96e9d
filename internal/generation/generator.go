package generation

import "context"

// Generator defines the interface for producing raw recipe text from a
// prompt. This interface is the boundary between the task processing core
// and the external inference server, following the hexagonal architecture
// pattern: the scheduler depends on it, never on a concrete backend.
type Generator interface {
	// Generate sends the fixed system prompt plus the task's user prompt to
	// the inference backend and returns the raw assistant text.
	//
	// The returned error is classified: a failed call (network error,
	// non-2xx response, malformed response envelope) wraps ErrRequestFailed
	// so the caller knows no usable output exists and fallback parsing is
	// not an option.
	Generate(ctx context.Context, prompt string) (string, error)
}
