package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leofalp/aichat/core/conversation"
)

const helpText = `Commands:
  /new             start a new conversation
  /list            list conversations, newest first
  /switch <n|id>   switch to a conversation
  /rename <title>  rename the active conversation
  /clear           remove every message of the active conversation
  /delete [n|id]   delete a conversation (default: the active one)
  /history         print the active conversation
  /help            show this help
  /quit            exit`

// runCommand executes a slash command. It reports whether the REPL should
// exit.
func runCommand(m *conversation.Manager, input string, out io.Writer) (quit bool, err error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(out, helpText)

	case "/new":
		c := m.NewConversation()
		fmt.Fprintf(out, "Started %s\n", c.ID)

	case "/list":
		activeID := m.ActiveID()
		for i, c := range m.List() {
			marker := " "
			if c.ID == activeID {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %d. %s (%d messages)\n", marker, i+1, c.Title, len(c.Messages))
		}

	case "/switch":
		id, err := resolveID(m, arg)
		if err != nil {
			return false, err
		}
		if err := m.Select(id); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Switched to %q\n", m.Active().Title)

	case "/rename":
		if err := m.Rename(m.ActiveID(), arg); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Renamed to %q\n", m.Active().Title)

	case "/clear":
		if err := m.Clear(m.ActiveID()); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Cleared")

	case "/delete":
		id := m.ActiveID()
		if arg != "" {
			if id, err = resolveID(m, arg); err != nil {
				return false, err
			}
		}
		if err := m.Delete(id); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Deleted; now in %q\n", m.Active().Title)

	case "/history":
		for _, message := range m.Active().Messages {
			fmt.Fprintf(out, "[%s] %s\n", message.Role, message.Content)
		}

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

// resolveID accepts a 1-based position from /list or a conversation id.
func resolveID(m *conversation.Manager, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing conversation number or id")
	}
	list := m.List()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return "", fmt.Errorf("%w: no conversation #%d", conversation.ErrConversationNotFound, n)
		}
		return list[n-1].ID, nil
	}
	return arg, nil
}
