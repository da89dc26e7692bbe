package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"persona_chat/internal/assets"
	"persona_chat/internal/config"
	"persona_chat/internal/db"
	chatsvc "persona_chat/internal/services/chat"
)

var (
	debug     bool
	storeKind string
	seedPath  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with simulated AI personas in the terminal",
	Long: `chat keeps a list of AI conversations in memory, lets you open one,
send messages and configure the persona behind it. Replies are simulated:
every message is answered with a fixed placeholder after a short delay.

Type /help inside the session for the list of commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if !cmd.Flags().Changed("debug") {
			debug = cfg.Debug
		}
		if !cmd.Flags().Changed("store") {
			storeKind = cfg.MessageStore
		}
		if !cmd.Flags().Changed("seed") {
			seedPath = cfg.SeedPath
		}

		zcfg := zap.NewProductionConfig()
		zcfg.OutputPaths = []string{"stderr"}
		if debug {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (default from CHAT_DEBUG)")
	rootCmd.Flags().StringVar(&storeKind, "store", config.StoreMemory, "message store: memory or sqlite (default from CHAT_MESSAGE_STORE)")
	rootCmd.Flags().StringVar(&seedPath, "seed", "", "TOML file with the initial conversations (default from CHAT_SEED_FILE)")
}

func run(ctx context.Context) error {
	cfg := config.Load()
	cfg.MessageStore = strings.ToLower(strings.TrimSpace(storeKind))
	cfg.SeedPath = seedPath

	seed, err := config.LoadSeed(cfg.SeedPath)
	if err != nil {
		return err
	}

	log, err := openMessageLog(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Warn("failed to close message log", zap.Error(err))
		}
	}()

	service, err := chatsvc.NewService(ctx, cfg, seed, chatsvc.Deps{
		Log:    log,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer service.Close()

	logger.Info("session started",
		zap.String("store", cfg.MessageStore),
		zap.Int("conversations", len(seed)),
		zap.Duration("reply_delay", cfg.ReplyDelay))

	session := newSession(service, assets.NewPicker(cfg), os.Stdout, logger)
	return session.run(ctx, os.Stdin)
}

func openMessageLog(cfg config.Config) (db.MessageLog, error) {
	switch cfg.MessageStore {
	case config.StoreSQLite:
		return db.OpenSQLite(cfg.DatabasePath)
	case config.StoreMemory, "":
		return db.NewMemoryLog(), nil
	default:
		return nil, fmt.Errorf("unknown message store %q", cfg.MessageStore)
	}
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("chat failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
