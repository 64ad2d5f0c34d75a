package conversation

import "strings"

// StreamingSession owns the text of one assistant reply while it streams.
// The conversation's placeholder message only ever receives snapshots.
type StreamingSession struct {
	MessageID string
	text      strings.Builder
}

func newSession(messageID string) *StreamingSession {
	return &StreamingSession{MessageID: messageID}
}

// Append adds delta and returns the accumulated text.
func (s *StreamingSession) Append(delta string) string {
	s.text.WriteString(delta)
	return s.text.String()
}

// Text returns the accumulated text.
func (s *StreamingSession) Text() string {
	return s.text.String()
}
