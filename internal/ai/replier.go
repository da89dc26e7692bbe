package ai

import (
	"context"
	"fmt"
	"strings"

	"persona_chat/internal/db"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request is what a Replier sees: the system prompt first, then the most
// recent history in chronological order.
type Request struct {
	ConversationID int64
	Personality    string
	Messages       []Message
}

type Replier interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// Placeholder answers every request with the same text.
type Placeholder struct {
	Text string
}

func (p Placeholder) Reply(context.Context, Request) (string, error) {
	return p.Text, nil
}

func SystemPrompt(personality string) string {
	return fmt.Sprintf("Ты - AI-ассистент с характером: %s. Отвечай естественно, дружелюбно и полезно. Используй эмодзи где уместно.", personality)
}

// BuildRequest keeps at most window user/assistant messages from history.
func BuildRequest(conversationID int64, personality string, history []db.Message, window int) Request {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt(personality)})
	for _, row := range history {
		if row.Kind != db.KindText || strings.TrimSpace(row.Body) == "" {
			continue
		}
		role := RoleAssistant
		if row.Sender == db.SenderUser {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: row.Body})
	}
	if window > 0 && len(messages) > window+1 {
		trimmed := make([]Message, 0, window+1)
		trimmed = append(trimmed, messages[0])
		trimmed = append(trimmed, messages[len(messages)-window:]...)
		messages = trimmed
	}
	return Request{ConversationID: conversationID, Personality: personality, Messages: messages}
}
