package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leofalp/aichat/core/conversation"
	"github.com/leofalp/aichat/core/settings"
	"github.com/leofalp/aichat/providers/ai"
	"github.com/leofalp/aichat/providers/storage/inmemory"
)

func TestRunCommand_ConversationLifecycle(t *testing.T) {
	m := conversation.New(inmemory.New(), nil)
	first := m.ActiveID()
	var out bytes.Buffer

	steps := []string{"/new", "/rename Photosynthesis", "/list", "/switch 2"}
	for _, step := range steps {
		if _, err := runCommand(m, step, &out); err != nil {
			t.Fatalf("%s returned error: %v", step, err)
		}
	}

	if m.ActiveID() != first {
		t.Errorf("/switch 2 must select the older conversation")
	}
	if !strings.Contains(out.String(), "* 1. Photosynthesis") {
		t.Errorf("list output = %q", out.String())
	}

	if _, err := runCommand(m, "/delete 1", &out); err != nil {
		t.Fatal(err)
	}
	if len(m.List()) != 1 || m.ActiveID() != first {
		t.Errorf("after delete: %d conversations, active %q", len(m.List()), m.ActiveID())
	}

	if _, err := runCommand(m, "/delete", &out); err != nil {
		t.Fatal(err)
	}
	if len(m.List()) != 1 || m.ActiveID() == first {
		t.Error("deleting the last conversation must leave a fresh one")
	}
}

func TestRunCommand_ClearAndHistory(t *testing.T) {
	m := conversation.New(nil, nil)
	if _, err := m.AddMessage(m.ActiveID(), ai.RoleUser, "What is osmosis?"); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if _, err := runCommand(m, "/history", &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "[user] What is osmosis?") {
		t.Errorf("history output = %q", out.String())
	}

	if _, err := runCommand(m, "/clear", &out); err != nil {
		t.Fatal(err)
	}
	if len(m.Active().Messages) != 0 {
		t.Error("/clear left messages behind")
	}
}

func TestRunCommand_Errors(t *testing.T) {
	m := conversation.New(nil, nil)
	var out bytes.Buffer

	if _, err := runCommand(m, "/switch 9", &out); !errors.Is(err, conversation.ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
	if _, err := runCommand(m, "/switch", &out); err == nil {
		t.Error("expected error for missing argument")
	}
	if _, err := runCommand(m, "/dance", &out); err == nil {
		t.Error("expected error for unknown command")
	}
	if quit, err := runCommand(m, "/quit", &out); !quit || err != nil {
		t.Errorf("/quit = %v, %v", quit, err)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []settings.StorageConfig{
		{Driver: "memory"},
		{Driver: "file", DSN: filepath.Join(dir, "conversations")},
		{Driver: "sqlite", DSN: filepath.Join(dir, "aichat.db")},
	}
	for _, cfg := range tests {
		t.Run(cfg.Driver, func(t *testing.T) {
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				t.Fatalf("openStore returned error: %v", err)
			}
			defer closeStore()

			if err := store.Save(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Save returned error: %v", err)
			}
			value, err := store.Load(ctx, "k")
			if err != nil || string(value) != "v" {
				t.Errorf("Load = %q, %v", value, err)
			}
		})
	}

	if _, closeStore, err := openStore(ctx, settings.StorageConfig{Driver: "floppy"}); err == nil {
		t.Error("expected error for unknown driver")
	} else {
		closeStore()
	}
}
