// Package config handles configuration loading and validation from
// environment variables and optional config files. It provides type-safe
// access to the settings for the HTTP server, the LLM backend, the Mealie
// store, and the scheduler, keeping configuration details separate from
// business logic.
package config
