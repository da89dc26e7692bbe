package db

import (
	"context"
	"fmt"
	"sync"
)

type MemoryLog struct {
	mu       sync.RWMutex
	messages map[int64][]Message
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{messages: make(map[int64][]Message)}
}

func (l *MemoryLog) Append(_ context.Context, msg Message) (Message, error) {
	if err := validate(msg); err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	chatLog := l.messages[msg.ChatID]
	msg.ID = 1
	if n := len(chatLog); n > 0 {
		msg.ID = chatLog[n-1].ID + 1
	}
	l.messages[msg.ChatID] = append(chatLog, msg)
	return msg, nil
}

func (l *MemoryLog) List(_ context.Context, chatID int64) ([]Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	chatLog := l.messages[chatID]
	out := make([]Message, len(chatLog))
	copy(out, chatLog)
	return out, nil
}

func (l *MemoryLog) Close() error {
	return nil
}
