// Command aichat is an interactive terminal tutor. It keeps conversations
// in the configured store and talks to any registered provider.
//
//	AICHAT_PROVIDER=claude-3-haiku AICHAT_API_KEY=... aichat -topic chemistry
//
// Lines starting with / are commands; see /help.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/leofalp/aichat/core/client"
	"github.com/leofalp/aichat/core/client/middleware"
	"github.com/leofalp/aichat/core/conversation"
	"github.com/leofalp/aichat/core/settings"
	"github.com/leofalp/aichat/core/transport"
	"github.com/leofalp/aichat/providers/observability/slogobs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aichat:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	provider := flag.String("provider", "", "provider id (overrides config)")
	topic := flag.String("topic", "", "subject the tutor teaches")
	lessonFile := flag.String("lesson", "", "HTML file of the lesson being studied")
	listProviders := flag.Bool("providers", false, "list provider ids and exit")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		return err
	}
	if *provider != "" {
		cfg.Settings.Provider = *provider
	}
	if *topic != "" {
		cfg.Settings.Topic = *topic
	}
	if *lessonFile != "" {
		lesson, err := os.ReadFile(*lessonFile)
		if err != nil {
			return fmt.Errorf("error reading lesson: %w", err)
		}
		cfg.Settings.LessonContext = string(lesson)
	}

	observer := slogobs.New(
		slogobs.WithLevel(slogobs.ParseLevel(cfg.Log.Level)),
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
	)
	slog.SetDefault(observer.Logger())

	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	if *listProviders {
		for _, id := range registry.IDs() {
			fmt.Println(id)
		}
		return nil
	}

	tr, err := cfg.NewTransport(transport.WithObserver(observer))
	if err != nil {
		return err
	}
	middlewares, err := cfg.Middlewares()
	if err != nil {
		return err
	}
	middlewares = append(middlewares, middleware.NewLoggingMiddleware(observer.Logger(), middleware.LogLevelStandard))

	chatClient := client.New(
		client.WithRegistry(registry),
		client.WithTransport(tr),
		client.WithObserver(observer),
		client.WithMiddleware(middlewares...),
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := conversation.New(store, chatClient, conversation.WithKeyPrefix(cfg.Storage.KeyPrefix))
	if err := manager.Load(ctx); err != nil {
		return err
	}

	return repl(ctx, manager, cfg.Settings, os.Stdout)
}

func repl(ctx context.Context, manager *conversation.Manager, s settings.Settings, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := filepath.Join(os.TempDir(), ".aichat_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return
		}
		defer f.Close()
		line.WriteHistory(f)
	}()

	fmt.Fprintf(out, "aichat (%s). /help for commands.\n", s.Provider)
	for {
		prompt := fmt.Sprintf("[%s] > ", manager.Active().Title)
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := runCommand(manager, input, out)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
			if quit {
				return manager.Save(ctx)
			}
			continue
		}

		send(ctx, manager, s, input, out)
	}
}

// send runs one exchange. Ctrl+C cancels the request in flight.
func send(ctx context.Context, manager *conversation.Manager, s settings.Settings, input string, out io.Writer) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var printed strings.Builder
	message, err := manager.SendMessage(ctx, s, input, func(delta string) {
		printed.WriteString(delta)
		fmt.Fprint(out, delta)
	})
	if printed.Len() > 0 {
		fmt.Fprintln(out)
	}
	switch {
	case err != nil:
		fmt.Fprintln(out, conversation.ErrorPrefix+err.Error())
	case printed.Len() == 0:
		fmt.Fprintln(out, message.Content)
	case printed.String() != message.Content:
		// A proxied stream that failed midway was replaced by a buffered reply.
		fmt.Fprintln(out, "--- stream interrupted, full reply:")
		fmt.Fprintln(out, message.Content)
	}
}
