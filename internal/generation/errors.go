package generation

import "errors"

// Common errors returned by Generator implementations
var (
	// ErrRequestFailed is returned when the inference server cannot be
	// reached, responds with a non-2xx status, or returns a body that is
	// not valid JSON. It is distinct from a parse failure on the model's
	// text: when the call itself fails there is nothing to fall back on.
	ErrRequestFailed = errors.New("failed to get response from LLM server")

	// ErrEmptyPrompt is returned when a generator is invoked without a prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
