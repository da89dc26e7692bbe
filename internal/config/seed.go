package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrInvalidSeed = errors.New("invalid seed")

//go:embed seed.toml
var defaultSeed string

// SeedChat is one conversation of the startup directory. Greeting, when set,
// becomes the first assistant message of that conversation.
type SeedChat struct {
	ID           int64  `toml:"id"`
	Name         string `toml:"name"`
	Avatar       string `toml:"avatar"`
	LastMessage  string `toml:"last_message"`
	LastActivity string `toml:"last_activity"`
	Unread       int    `toml:"unread"`
	Personality  string `toml:"personality"`
	Greeting     string `toml:"greeting"`
}

type seedFile struct {
	Chats []SeedChat `toml:"chat"`
}

// LoadSeed returns the embedded seed when path is empty, otherwise the seed
// decoded from the TOML file at path.
func LoadSeed(path string) ([]SeedChat, error) {
	var file seedFile
	if path == "" {
		if _, err := toml.Decode(defaultSeed, &file); err != nil {
			return nil, fmt.Errorf("decode embedded seed: %w", err)
		}
	} else {
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("decode seed %s: %w", path, err)
		}
	}
	if err := ValidateSeed(file.Chats); err != nil {
		return nil, err
	}
	return file.Chats, nil
}

func ValidateSeed(chats []SeedChat) error {
	seen := make(map[int64]struct{}, len(chats))
	for i, chat := range chats {
		if chat.ID < 1 {
			return fmt.Errorf("%w: chat #%d has non-positive id %d", ErrInvalidSeed, i, chat.ID)
		}
		if _, dup := seen[chat.ID]; dup {
			return fmt.Errorf("%w: duplicate chat id %d", ErrInvalidSeed, chat.ID)
		}
		seen[chat.ID] = struct{}{}
		if strings.TrimSpace(chat.Name) == "" {
			return fmt.Errorf("%w: chat %d has no name", ErrInvalidSeed, chat.ID)
		}
		if chat.Unread < 0 {
			return fmt.Errorf("%w: chat %d has negative unread count", ErrInvalidSeed, chat.ID)
		}
	}
	return nil
}
