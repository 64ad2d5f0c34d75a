package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/core/settings"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/storage"
)

const (
	conversationsKey = "conversations"
	activeKey        = "active"
)

// Sender performs one chat exchange. *client.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, request client.Request) (*ai.ChatResponse, error)
}

// Manager holds every conversation of a session and exactly one active
// conversation. It is safe for concurrent use; independent conversations
// may stream at the same time, but each conversation has at most one reply
// in flight.
type Manager struct {
	mu sync.Mutex

	store     storage.Store
	sender    Sender
	keyPrefix string

	// conversations is ordered newest first and is never empty.
	conversations []*Conversation
	activeID      string
	sessions      map[string]*StreamingSession

	now   func() time.Time
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeyPrefix sets the prefix of the storage keys. The default is "aichat:".
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) {
		m.keyPrefix = prefix
	}
}

// WithClock replaces time.Now for message and conversation timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator replaces the UUID generator for message and conversation ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// New returns a Manager holding one empty default conversation. Call Load
// to restore persisted state. store may be nil, in which case nothing is
// persisted.
func New(store storage.Store, sender Sender, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		sender:    sender,
		keyPrefix: "aichat:",
		sessions:  make(map[string]*StreamingSession),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.addConversation()
	return m
}

/*
	##### PERSISTENCE #####
*/

// Load replaces the in-memory state with the persisted one. A store that
// has never been saved leaves the default conversation in place.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	raw, err := m.store.Load(ctx, m.keyPrefix+conversationsKey)
	if err != nil {
		return fmt.Errorf("error loading conversations: %w", err)
	}
	var conversations []*Conversation
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &conversations); err != nil {
			return fmt.Errorf("error decoding conversations: %w", err)
		}
	}

	var activeID string
	rawActive, err := m.store.Load(ctx, m.keyPrefix+activeKey)
	if err != nil {
		return fmt.Errorf("error loading active conversation: %w", err)
	}
	if len(rawActive) > 0 {
		if err := json.Unmarshal(rawActive, &activeID); err != nil {
			return fmt.Errorf("error decoding active conversation: %w", err)
		}
	}

	conversations = slices.DeleteFunc(conversations, func(c *Conversation) bool {
		return c == nil || c.ID == ""
	})
	if len(conversations) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations = conversations
	m.sessions = make(map[string]*StreamingSession)
	m.activeID = conversations[0].ID
	if m.find(activeID) != nil {
		m.activeID = activeID
	}
	return nil
}

// Save persists every conversation and the active id.
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	raw, err := json.Marshal(m.conversations)
	activeID := m.activeID
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("error encoding conversations: %w", err)
	}

	rawActive, err := json.Marshal(activeID)
	if err != nil {
		return fmt.Errorf("error encoding active conversation: %w", err)
	}

	if err := m.store.Save(ctx, m.keyPrefix+conversationsKey, raw); err != nil {
		return fmt.Errorf("error saving conversations: %w", err)
	}
	if err := m.store.Save(ctx, m.keyPrefix+activeKey, rawActive); err != nil {
		return fmt.Errorf("error saving active conversation: %w", err)
	}
	return nil
}

// saveLogged persists state and logs a failure instead of returning it; the
// transcript stays usable in memory.
func (m *Manager) saveLogged(ctx context.Context) {
	if err := m.Save(ctx); err != nil {
		slog.WarnContext(ctx, "failed to persist conversations", "error", err.Error())
	}
}

/*
	##### CONVERSATIONS #####
*/

// find returns the conversation with id. Callers hold mu.
func (m *Manager) find(id string) *Conversation {
	for _, c := range m.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// addConversation prepends a default conversation and activates it.
// Callers hold mu, or own m exclusively.
func (m *Manager) addConversation() *Conversation {
	c := &Conversation{
		ID:        m.newID(),
		Title:     DefaultTitle,
		Messages:  []ai.Message{},
		Timestamp: m.now(),
	}
	m.conversations = append([]*Conversation{c}, m.conversations...)
	m.activeID = c.ID
	return c
}

// NewConversation creates an empty conversation and makes it active.
func (m *Manager) NewConversation() Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addConversation().clone()
}

// Select makes the conversation with id active.
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(id) == nil {
		return fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	m.activeID = id
	return nil
}

// Delete removes a conversation and any reply streaming into it. Deleting
// the last conversation leaves a fresh default one. When the active
// conversation is deleted the newest remaining one becomes active.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := slices.IndexFunc(m.conversations, func(c *Conversation) bool {
		return c.ID == id
	})
	if index < 0 {
		return fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}

	m.conversations = slices.Delete(m.conversations, index, index+1)
	delete(m.sessions, id)

	if len(m.conversations) == 0 {
		m.addConversation()
		return nil
	}
	if m.activeID == id {
		m.activeID = m.conversations[0].ID
	}
	return nil
}

// Rename sets a conversation's title. A blank title restores DefaultTitle.
func (m *Manager) Rename(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	c.Title = title
	c.Timestamp = m.now()
	return nil
}

// Clear removes every message of a conversation and keeps its title.
func (m *Manager) Clear(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	if _, streaming := m.sessions[id]; streaming {
		return ErrStreamInProgress
	}
	c.Messages = []ai.Message{}
	c.Timestamp = m.now()
	return nil
}

// Active returns a copy of the active conversation.
func (m *Manager) Active() Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(m.activeID).clone()
}

// ActiveID returns the id of the active conversation.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// List returns copies of all conversations, newest first.
func (m *Manager) List() []Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]Conversation, 0, len(m.conversations))
	for _, c := range m.conversations {
		list = append(list, c.clone())
	}
	return list
}

// Get returns a copy of the conversation with id.
func (m *Manager) Get(id string) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return Conversation{}, fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	return c.clone(), nil
}

// AddMessage appends a finished message to a conversation. The first user
// message names a conversation that still has the default title.
func (m *Manager) AddMessage(id string, role ai.MessageRole, content string) (ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return ai.Message{}, fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	return m.appendMessage(c, role, content), nil
}

// appendMessage appends to c. Callers hold mu.
func (m *Manager) appendMessage(c *Conversation, role ai.MessageRole, content string) ai.Message {
	message := ai.Message{
		ID:        m.newID(),
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
	}
	c.Messages = append(c.Messages, message)
	c.Timestamp = message.Timestamp
	if role == ai.RoleUser {
		c.deriveTitle(content)
	}
	return message
}

/*
	##### STREAMING LIFECYCLE #####
*/

// BeginStream appends an empty assistant placeholder and opens a streaming
// session for it. It fails with ErrStreamInProgress if the conversation
// already has one.
func (m *Manager) BeginStream(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.find(id)
	if c == nil {
		return "", fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	return m.beginStream(c)
}

// beginStream is BeginStream for callers holding mu.
func (m *Manager) beginStream(c *Conversation) (string, error) {
	if _, streaming := m.sessions[c.ID]; streaming {
		return "", ErrStreamInProgress
	}
	placeholder := m.appendMessage(c, ai.RoleAssistant, "")
	m.sessions[c.ID] = newSession(placeholder.ID)
	return placeholder.ID, nil
}

// AppendDelta adds delta to the streaming reply and commits the accumulated
// text to the placeholder. Empty deltas are ignored, so every committed
// snapshot is longer than the previous one.
func (m *Manager) AppendDelta(id, delta string) error {
	if delta == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, session, err := m.session(id)
	if err != nil {
		return err
	}
	m.commit(c, session.MessageID, session.Append(delta))
	return nil
}

// FinalizeStream closes the streaming session. A non-nil finalText
// replaces the accumulated text; it is the authoritative reply.
func (m *Manager) FinalizeStream(id string, finalText *string) (ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, session, err := m.session(id)
	if err != nil {
		return ai.Message{}, err
	}
	delete(m.sessions, id)

	text := session.Text()
	if finalText != nil {
		text = *finalText
	}
	m.commit(c, session.MessageID, text)
	c.Timestamp = m.now()

	index := c.indexOf(session.MessageID)
	if index < 0 {
		return ai.Message{}, fmt.Errorf("%w: placeholder %q", ErrNoActiveStream, session.MessageID)
	}
	return c.Messages[index], nil
}

// AbortStream closes the streaming session and removes its placeholder.
func (m *Manager) AbortStream(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, session, err := m.session(id)
	if err != nil {
		return err
	}
	delete(m.sessions, id)

	if index := c.indexOf(session.MessageID); index >= 0 {
		c.Messages = slices.Delete(c.Messages, index, index+1)
	}
	return nil
}

// Streaming reports whether a reply is streaming into the conversation.
func (m *Manager) Streaming(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// session returns the conversation and its open session. Callers hold mu.
func (m *Manager) session(id string) (*Conversation, *StreamingSession, error) {
	c := m.find(id)
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrConversationNotFound, id)
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrNoActiveStream
	}
	return c, session, nil
}

// commit writes a snapshot of the session text into the placeholder.
func (m *Manager) commit(c *Conversation, messageID, text string) {
	if index := c.indexOf(messageID); index >= 0 {
		c.Messages[index].Content = text
	}
}

/*
	##### EXCHANGE #####
*/

// SendMessage runs one exchange on the active conversation: it records the
// user message, obtains the reply (streamed or buffered, per s) and records
// it. onChunk, when set, receives every streamed delta.
//
// On failure the streaming placeholder is removed, a system message
// "Error: <reason>" is appended, and the error is returned. State is
// persisted either way; a persistence failure is logged, not returned.
func (m *Manager) SendMessage(ctx context.Context, s settings.Settings, content string, onChunk func(string)) (ai.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return ai.Message{}, ErrEmptyMessage
	}

	m.mu.Lock()
	c := m.find(m.activeID)
	id := c.ID
	if _, streaming := m.sessions[id]; streaming {
		m.mu.Unlock()
		return ai.Message{}, ErrStreamInProgress
	}
	m.appendMessage(c, ai.RoleUser, content)
	history := History(c.Messages)
	if s.UseStreaming {
		if _, err := m.beginStream(c); err != nil {
			m.mu.Unlock()
			return ai.Message{}, err
		}
	}
	m.mu.Unlock()

	defer m.saveLogged(ctx)

	forward := func(delta string) {
		if err := m.AppendDelta(id, delta); err != nil {
			slog.DebugContext(ctx, "dropping delta", "conversation", id, "error", err.Error())
			return
		}
		if onChunk != nil {
			onChunk(delta)
		}
	}

	response, err := m.sender.SendMessage(ctx, s.Request(history, forward))
	if err != nil {
		if s.UseStreaming {
			if abortErr := m.AbortStream(id); abortErr != nil {
				slog.DebugContext(ctx, "stream already closed", "conversation", id, "error", abortErr.Error())
			}
		}
		m.recordError(id, err)
		return ai.Message{}, err
	}

	if s.UseStreaming {
		return m.FinalizeStream(id, &response.Content)
	}
	return m.AddMessage(id, ai.RoleAssistant, response.Content)
}

// recordError appends the failure to the transcript.
func (m *Manager) recordError(id string, err error) {
	if _, addErr := m.AddMessage(id, ai.RoleSystem, ErrorPrefix+err.Error()); addErr != nil {
		slog.Warn("failed to record error", "conversation", id, "error", addErr.Error())
	}
}
