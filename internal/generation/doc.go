// Package generation defines the interface to external LLM services used to
// turn video transcriptions into structured recipes. It abstracts the
// inference backend (llama.cpp or Gemini) so the task pipeline never couples
// to a specific provider.
package generation
