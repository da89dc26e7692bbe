package db

import (
	"context"
	"errors"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVoice Kind = "voice"
)

func (k Kind) Valid() bool {
	return k == KindText || k == KindImage || k == KindVoice
}

// Message is immutable once appended. ID is unique within ChatID and grows
// with every append.
type Message struct {
	ID        int64
	ChatID    int64
	Sender    Sender
	Kind      Kind
	Body      string
	CreatedAt time.Time
}

// MessageLog is an append-only, per-conversation message log. Append ignores
// msg.ID and assigns max(existing id)+1 for msg.ChatID atomically.
type MessageLog interface {
	Append(ctx context.Context, msg Message) (Message, error)
	List(ctx context.Context, chatID int64) ([]Message, error)
	Close() error
}

func validate(msg Message) error {
	if !msg.Sender.Valid() {
		return errors.New("message sender must be user or assistant")
	}
	if !msg.Kind.Valid() {
		return errors.New("message kind must be text, image or voice")
	}
	return nil
}
