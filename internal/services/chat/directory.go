package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"persona_chat/internal/config"
)

const (
	defaultAvatar     = "🤖"
	activityLabelForm = "15:04"
	maxNameLength     = 200
)

type Conversation struct {
	ID             int64
	Name           string
	Avatar         string
	LastMessage    string
	LastActivity   string
	LastActivityAt time.Time
	Unread         int
	Personality    string
}

// Directory holds the conversations of a session in insertion order.
// Conversations are never removed.
type Directory struct {
	mu                 sync.RWMutex
	chats              []Conversation
	index              map[int64]int
	defaultPersonality string
}

func NewDirectory(seed []config.SeedChat, defaultPersonality string) *Directory {
	d := &Directory{
		chats:              make([]Conversation, 0, len(seed)),
		index:              make(map[int64]int, len(seed)),
		defaultPersonality: defaultPersonality,
	}
	for _, s := range seed {
		if _, dup := d.index[s.ID]; dup {
			continue
		}
		avatar := s.Avatar
		if avatar == "" {
			avatar = defaultAvatar
		}
		personality := s.Personality
		if personality == "" {
			personality = defaultPersonality
		}
		unread := s.Unread
		if unread < 0 {
			unread = 0
		}
		d.index[s.ID] = len(d.chats)
		d.chats = append(d.chats, Conversation{
			ID:           s.ID,
			Name:         s.Name,
			Avatar:       avatar,
			LastMessage:  s.LastMessage,
			LastActivity: s.LastActivity,
			Unread:       unread,
			Personality:  personality,
		})
	}
	return d
}

func (d *Directory) List() []Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Conversation, len(d.chats))
	copy(out, d.chats)
	return out
}

func (d *Directory) Get(id int64) (Conversation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return Conversation{}, false
	}
	return d.chats[i], true
}

func (d *Directory) Exists(id int64) bool {
	_, ok := d.Get(id)
	return ok
}

func (d *Directory) PersonalityOf(id int64) (string, bool) {
	chat, ok := d.Get(id)
	if !ok {
		return "", false
	}
	return chat.Personality, true
}

// Search matches query against names and personalities, ignoring case and
// Unicode compatibility forms. An empty query returns every conversation.
func (d *Directory) Search(query string) []Conversation {
	needle := foldForSearch(query)
	if needle == "" {
		return d.List()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Conversation, 0)
	for _, chat := range d.chats {
		if strings.Contains(foldForSearch(chat.Name), needle) || strings.Contains(foldForSearch(chat.Personality), needle) {
			out = append(out, chat)
		}
	}
	return out
}

func foldForSearch(value string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(value)))
}

func (d *Directory) Create(name, personality string) (Conversation, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return Conversation{}, ErrEmptyName
	}
	if len(trimmedName) > maxNameLength {
		return Conversation{}, fmt.Errorf("conversation name is too long (%d bytes, max %d)", len(trimmedName), maxNameLength)
	}
	trimmedPersonality := strings.TrimSpace(personality)
	if trimmedPersonality == "" {
		trimmedPersonality = d.defaultPersonality
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	var nextID int64 = 1
	for _, chat := range d.chats {
		if chat.ID >= nextID {
			nextID = chat.ID + 1
		}
	}
	chat := Conversation{
		ID:          nextID,
		Name:        trimmedName,
		Avatar:      defaultAvatar,
		Personality: trimmedPersonality,
	}
	d.index[chat.ID] = len(d.chats)
	d.chats = append(d.chats, chat)
	return chat, nil
}

// RecordActivity updates the preview of id and, when unread is set, bumps its
// unread counter.
func (d *Directory) RecordActivity(id int64, preview string, at time.Time, unread bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[id]
	if !ok {
		return false
	}
	chat := &d.chats[i]
	chat.LastMessage = preview
	chat.LastActivityAt = at
	chat.LastActivity = at.Format(activityLabelForm)
	if unread {
		chat.Unread++
	}
	return true
}

// SetPersonality replaces the persona description shown for id and matched
// by Search.
func (d *Directory) SetPersonality(id int64, text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[id]
	if !ok {
		return false
	}
	d.chats[i].Personality = text
	return true
}

func (d *Directory) MarkRead(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[id]
	if !ok {
		return false
	}
	d.chats[i].Unread = 0
	return true
}
