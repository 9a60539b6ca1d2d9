package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Yashorr/deadline-detector/internal/analyzer"
	"github.com/Yashorr/deadline-detector/internal/chat"
	"github.com/Yashorr/deadline-detector/internal/credential"
	"github.com/Yashorr/deadline-detector/internal/logging"
	"github.com/Yashorr/deadline-detector/internal/model"
	"github.com/Yashorr/deadline-detector/internal/notify"
	"github.com/Yashorr/deadline-detector/internal/sched"
	"github.com/Yashorr/deadline-detector/internal/store"
	"github.com/Yashorr/deadline-detector/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "deadlined:", err)
		os.Exit(1)
	}
}

func run() error {
	// A local .env may carry GEMINI_API_KEY and the DEADLINEWATCHER_*
	// overrides; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "set-key" {
		return setKey(os.Args[2:])
	}

	cfgPath := os.Getenv("DEADLINEWATCHER_CONFIG")
	if cfgPath == "" {
		cfgPath = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	apiKey, err := credential.Get(credential.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("no Gemini API key: set GEMINI_API_KEY or run `deadlined set-key`: %w", err)
	}

	for _, p := range []string{cfg.Store.DeadlinesPath, cfg.Store.HistoryPath, cfg.Chat.SessionDBPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("creating data directory for %s: %w", p, err)
		}
	}

	// Corrupt state here is fatal: starting empty over a non-empty file
	// would re-detect old deadlines and lose alert history.
	deadlines, err := store.Open(cfg.Store.DeadlinesPath)
	if err != nil {
		return err
	}

	history, err := store.OpenHistory(cfg.Store.HistoryPath)
	if err != nil {
		return err
	}
	defer history.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := analyzer.NewGeminiCompleter(ctx, apiKey, cfg.AI.Model)
	if err != nil {
		return err
	}
	an := analyzer.New(completer, logger.Named("analyzer"))

	session, err := chat.NewWhatsAppSession(cfg.Chat.SessionDBPath, logger.Named("chat"))
	if err != nil {
		return err
	}
	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer session.Disconnect()

	notifier := notify.New(session, cfg.Chat.SelfChatID, history, logger.Named("notify"))
	scheduler := sched.New(deadlines, notifier, logger.Named("sched"))
	watcher := watch.New(
		session, an, deadlines, scheduler, notifier,
		cfg.Chat.GroupName, logger.Named("watch"),
	)

	watcher.Run(ctx)
	logger.Info("shutting down")
	return nil
}

// setKey stores the Gemini API key in the system keyring.
func setKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: deadlined set-key <gemini-api-key>")
	}
	if err := credential.Set(credential.GeminiAPIKey, args[0]); err != nil {
		return err
	}
	fmt.Println("API key stored in system keyring.")
	return nil
}
