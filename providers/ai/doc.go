// Package ai defines the shared, provider-agnostic types used across all LLM
// provider families (OpenAI, Anthropic, Gemini, Mistral, Ollama and generic
// OpenAI-compatible hosts). Each family package implements [Codec], which maps
// these types to and from its own wire format, keeping the rest of the
// codebase decoupled from provider-specific details.
//
// Provider identifiers are resolved once through an immutable [Registry]; the
// resulting [ProviderConfig] carries a closed [Family] value that every
// downstream component switches on. Streaming responses are decoded by a
// per-request [DeltaDecoder] that turns raw network chunks into text deltas.
package ai
