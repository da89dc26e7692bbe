package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultReplyText   = "Получил твоё сообщение! Сейчас обрабатываю... ✨"
	DefaultPersonality = "Дружелюбный помощник"
	DefaultReplyDelay  = 1000 * time.Millisecond

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Debug              bool
	ReplyDelay         time.Duration
	ReplyText          string
	DefaultPersonality string
	HistoryWindow      int
	MessageStore       string
	DatabasePath       string
	SeedPath           string
	AvatarMaxBytes     int64
	VoiceMaxBytes      int64
}

func Load() Config {
	cfg := Config{
		Debug:              os.Getenv("CHAT_DEBUG") == "1",
		ReplyDelay:         time.Duration(getenvInt("CHAT_REPLY_DELAY_MS", int(DefaultReplyDelay/time.Millisecond))) * time.Millisecond,
		ReplyText:          getenv("CHAT_REPLY_TEXT", DefaultReplyText),
		DefaultPersonality: getenv("CHAT_DEFAULT_PERSONALITY", DefaultPersonality),
		HistoryWindow:      getenvInt("CHAT_HISTORY_WINDOW", 10),
		MessageStore:       strings.ToLower(getenv("CHAT_MESSAGE_STORE", StoreMemory)),
		DatabasePath:       getenv("CHAT_DATABASE_PATH", ":memory:"),
		SeedPath:           os.Getenv("CHAT_SEED_FILE"),
		AvatarMaxBytes:     int64(getenvInt("CHAT_AVATAR_MAX_BYTES", 10<<20)),
		VoiceMaxBytes:      int64(getenvInt("CHAT_VOICE_MAX_BYTES", 5<<20)),
	}

	if cfg.ReplyDelay < 0 {
		cfg.ReplyDelay = 0
	}
	if cfg.HistoryWindow < 1 {
		cfg.HistoryWindow = 10
	}
	if cfg.MessageStore != StoreMemory && cfg.MessageStore != StoreSQLite {
		cfg.MessageStore = StoreMemory
	}
	if cfg.AvatarMaxBytes < 1 {
		cfg.AvatarMaxBytes = 10 << 20
	}
	if cfg.VoiceMaxBytes < 1 {
		cfg.VoiceMaxBytes = 5 << 20
	}

	return cfg
}

func getenv(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func getenvInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
