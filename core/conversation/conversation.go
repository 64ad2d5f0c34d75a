// Package conversation keeps the chat transcript: the list of
// conversations, which one is active, and the lifecycle of a streamed
// assistant reply.
//
// A Manager owns all conversation state. Readers receive copies; the only
// way to change a conversation is through Manager methods. While a reply
// streams, a StreamingSession owns the in-progress text and commits a
// snapshot of it into the placeholder message after every delta.
package conversation

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/leofalp/aichat/internal/utils"
	"github.com/leofalp/aichat/providers/ai"
)

const (
	// DefaultTitle is the title of a conversation that has not been named.
	DefaultTitle = "New Conversation"

	// titleRunes is the length of a title derived from the first user message.
	titleRunes = 30

	// ErrorPrefix starts every system message recording a failed exchange.
	ErrorPrefix = "Error: "
)

var (
	ErrConversationNotFound = errors.New("aichat: conversation not found")
	ErrEmptyMessage         = errors.New("aichat: message is empty")

	// ErrStreamInProgress is returned when a second reply is started on a
	// conversation that is still streaming.
	ErrStreamInProgress = errors.New("aichat: a reply is already streaming in this conversation")
	ErrNoActiveStream   = errors.New("aichat: no reply is streaming in this conversation")
)

// Conversation is one titled transcript. Timestamp is the last
// modification time.
type Conversation struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Messages  []ai.Message `json:"messages"`
	Timestamp time.Time    `json:"timestamp"`
}

func (c *Conversation) clone() Conversation {
	copied := *c
	copied.Messages = slices.Clone(c.Messages)
	return copied
}

func (c *Conversation) indexOf(messageID string) int {
	return slices.IndexFunc(c.Messages, func(m ai.Message) bool {
		return m.ID == messageID
	})
}

// deriveTitle names an untitled conversation after its first user message.
func (c *Conversation) deriveTitle(content string) {
	if c.Title != DefaultTitle {
		return
	}
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return
	}
	c.Title = utils.TruncateRunes(content, titleRunes, "...")
}

// History returns the messages to send to a provider: blank turns and
// recorded errors are left out.
func History(messages []ai.Message) []ai.Message {
	history := make([]ai.Message, 0, len(messages))
	for _, message := range messages {
		if message.Role == ai.RoleSystem && strings.HasPrefix(message.Content, ErrorPrefix) {
			continue
		}
		history = append(history, message)
	}
	return ai.FilterBlank(history)
}
