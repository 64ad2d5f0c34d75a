// Package transport performs provider HTTP calls.
//
// A Transport is built once with a Mode. In ModeDirect requests go straight
// to the provider endpoint. In ModeProxied the formatted body, headers and
// target URL are wrapped in an Envelope and posted to a relay (see
// core/proxy), which keeps API keys off the public network boundary.
//
// Every call moves through the phases
//
//	Idle -> Dispatching -> Streaming | Buffered -> Completed | Failed
//
// and a failed stream in proxied mode is retried once as a buffered call.
package transport
