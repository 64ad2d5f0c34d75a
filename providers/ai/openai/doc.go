// Package openai implements the OpenAI chat completions wire format: the
// system prompt travels as a leading system message, requests authenticate
// with a Bearer token, streamed text is read from choices[0].delta.content
// and buffered text from choices[0].message.content.
//
// The request builder and extractors are exported because Mistral and the
// generic OpenAI-compatible family reuse the same shape.
package openai
