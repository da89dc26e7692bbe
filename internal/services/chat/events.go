package chat

import (
	"sync"

	"persona_chat/internal/db"
)

type EventType string

const (
	EventMessageAppended     EventType = "message_appended"
	EventSelectionChanged    EventType = "selection_changed"
	EventConfigToggled       EventType = "config_toggled"
	EventPersonaUpdated      EventType = "persona_updated"
	EventConversationCreated EventType = "conversation_created"
	EventConversationRead    EventType = "conversation_read"
)

// Event is published after the mutation it describes has completed.
// Message is set only for EventMessageAppended.
type Event struct {
	Type           EventType
	ConversationID int64
	Message        *db.Message
}

type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func newHub() *hub {
	return &hub{subs: make(map[int]func(Event))}
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

func (h *hub) publish(event Event) {
	h.mu.RLock()
	subs := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()
	for _, fn := range subs {
		fn(event)
	}
}
