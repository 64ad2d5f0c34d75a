package transport

import (
	"encoding/json"
	"fmt"
)

// DefaultProxyURL is the relay path used in proxied mode.
const DefaultProxyURL = "http://localhost:8787/api/proxy"

// Envelope is the proxied-mode request body. The relay forwards Data to
// Target with Headers and streams the response back unmodified.
type Envelope struct {
	Target  string            `json:"target"`
	Data    json.RawMessage   `json:"data"`
	Headers map[string]string `json:"headers"`
	Stream  bool              `json:"stream"`
}

// NewEnvelope marshals body into an envelope addressed to target.
func NewEnvelope(target string, body any, headers map[string]string, stream bool) (Envelope, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("error marshaling proxied body: %w", err)
	}
	return Envelope{Target: target, Data: data, Headers: headers, Stream: stream}, nil
}
