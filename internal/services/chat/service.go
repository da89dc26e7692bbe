package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"persona_chat/internal/ai"
	"persona_chat/internal/config"
	"persona_chat/internal/db"
)

type Message = db.Message

const previewLength = 80

type Deps struct {
	Log     db.MessageLog
	Replier ai.Replier
	Clock   clockwork.Clock
	Logger  *zap.Logger
}

// Service routes user intent to the directory, selection, persona and
// conversation components and notifies subscribers after every change.
type Service struct {
	cfg           config.Config
	logger        *zap.Logger
	directory     *Directory
	selection     *SelectionController
	personas      *PersonaConfig
	conversations *ConversationStore
	events        *hub
}

// Snapshot is a consistent copy of the state a renderer needs.
type Snapshot struct {
	Conversations []Conversation
	Selection     Selection
	ConfigOpen    bool
	Active        *Conversation
	Messages      []Message
	Persona       PersonaSettings
}

func NewService(ctx context.Context, cfg config.Config, seed []config.SeedChat, deps Deps) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Replier == nil {
		deps.Replier = ai.Placeholder{Text: cfg.ReplyText}
	}
	directory := NewDirectory(seed, cfg.DefaultPersonality)
	personas := NewPersonaConfig(directory, cfg.DefaultPersonality)
	s := &Service{
		cfg:       cfg,
		logger:    deps.Logger,
		directory: directory,
		selection: NewSelectionController(directory),
		personas:  personas,
		events:    newHub(),
	}
	s.conversations = NewConversationStore(ConversationOptions{
		Log:           deps.Log,
		Personas:      personas,
		Replier:       deps.Replier,
		Clock:         deps.Clock,
		Logger:        deps.Logger,
		ReplyDelay:    cfg.ReplyDelay,
		HistoryWindow: cfg.HistoryWindow,
		OnAppend:      s.messageAppended,
	})

	if err := s.seedGreetings(ctx, seed); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) seedGreetings(ctx context.Context, seed []config.SeedChat) error {
	for _, chat := range seed {
		if chat.Greeting == "" {
			continue
		}
		existing, err := s.conversations.Messages(ctx, chat.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := s.conversations.AppendGreeting(ctx, chat.ID, chat.Greeting); err != nil {
			return fmt.Errorf("seed greeting: %w", err)
		}
	}
	return nil
}

// messageAppended keeps directory previews in sync. Assistant messages that
// land outside the active conversation count as unread.
func (s *Service) messageAppended(msg Message) {
	activeID, active := s.selection.Current().ID()
	unread := msg.Sender == db.SenderAssistant && (!active || activeID != msg.ChatID)
	s.directory.RecordActivity(msg.ChatID, preview(msg.Body, previewLength), msg.CreatedAt, unread)
	s.events.publish(Event{Type: EventMessageAppended, ConversationID: msg.ChatID, Message: &msg})
}

func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.events.subscribe(fn)
}

func (s *Service) ListConversations() []Conversation {
	return s.directory.List()
}

func (s *Service) SearchConversations(query string) []Conversation {
	return s.directory.Search(query)
}

func (s *Service) Conversation(id int64) (Conversation, bool) {
	return s.directory.Get(id)
}

func (s *Service) CreateConversation(name, personality string) (Conversation, error) {
	created, err := s.directory.Create(name, personality)
	if err != nil {
		return Conversation{}, err
	}
	s.logger.Info("conversation created", zap.Int64("conversation_id", created.ID), zap.String("name", created.Name))
	s.events.publish(Event{Type: EventConversationCreated, ConversationID: created.ID})
	return created, nil
}

// SelectConversation only changes the selection; unknown ids are ignored.
func (s *Service) SelectConversation(id int64) bool {
	before := s.selection.Current()
	if !s.selection.Select(id) {
		s.logger.Debug("ignoring unknown conversation", zap.Int64("conversation_id", id))
		return false
	}
	if before != s.selection.Current() {
		s.events.publish(Event{Type: EventSelectionChanged, ConversationID: id})
	}
	return true
}

// OpenConversation selects id and marks it read, as a click in the list does.
func (s *Service) OpenConversation(id int64) bool {
	if !s.SelectConversation(id) {
		return false
	}
	s.MarkRead(id)
	return true
}

func (s *Service) MarkRead(id int64) bool {
	if !s.directory.MarkRead(id) {
		return false
	}
	s.events.publish(Event{Type: EventConversationRead, ConversationID: id})
	return true
}

func (s *Service) ClearSelection() {
	before := s.selection.Current()
	s.selection.Clear()
	if before.Active() {
		s.events.publish(Event{Type: EventSelectionChanged})
	}
}

func (s *Service) Selection() Selection {
	return s.selection.Current()
}

func (s *Service) OpenConfig() bool {
	if !s.selection.OpenConfig() {
		return false
	}
	id, _ := s.selection.Current().ID()
	s.events.publish(Event{Type: EventConfigToggled, ConversationID: id})
	return true
}

func (s *Service) CloseConfig() {
	wasOpen := s.selection.ConfigOpen()
	s.selection.CloseConfig()
	if wasOpen {
		id, _ := s.selection.Current().ID()
		s.events.publish(Event{Type: EventConfigToggled, ConversationID: id})
	}
}

func (s *Service) ConfigOpen() bool {
	return s.selection.ConfigOpen()
}

// SendMessage appends text to the active conversation. The simulated reply
// goes to that conversation even if the selection changes before it arrives.
func (s *Service) SendMessage(ctx context.Context, text string) (Message, bool, error) {
	return s.conversations.AppendUserMessage(ctx, s.selection.Current(), text)
}

func (s *Service) Messages(ctx context.Context, id int64) ([]Message, error) {
	return s.conversations.Messages(ctx, id)
}

func (s *Service) Settings(id int64) PersonaSettings {
	return s.personas.Settings(id)
}

func (s *Service) UpdatePersonality(id int64, text string) bool {
	return s.personaChanged(id, s.personas.UpdatePersonality(id, text))
}

func (s *Service) SetAvatarAsset(id int64, ref AssetRef) bool {
	return s.personaChanged(id, s.personas.SetAvatarAsset(id, ref))
}

func (s *Service) SetVoiceAsset(id int64, ref AssetRef) bool {
	return s.personaChanged(id, s.personas.SetVoiceAsset(id, ref))
}

// SavePersona is the explicit save of the configuration modal.
func (s *Service) SavePersona(id int64, settings PersonaSettings) bool {
	return s.personaChanged(id, s.personas.Save(id, settings))
}

func (s *Service) personaChanged(id int64, changed bool) bool {
	if !changed {
		s.logger.Debug("ignoring persona update for unknown conversation", zap.Int64("conversation_id", id))
		return false
	}
	s.directory.SetPersonality(id, s.personas.Settings(id).Personality)
	s.events.publish(Event{Type: EventPersonaUpdated, ConversationID: id})
	return true
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Conversations: s.directory.List(),
		Selection:     s.selection.Current(),
		ConfigOpen:    s.selection.ConfigOpen(),
	}
	id, ok := snap.Selection.ID()
	if !ok {
		return snap, nil
	}
	if chat, found := s.directory.Get(id); found {
		snap.Active = &chat
	}
	messages, err := s.conversations.Messages(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Messages = messages
	snap.Persona = s.personas.Settings(id)
	return snap, nil
}

func (s *Service) PendingReplies() int {
	return s.conversations.PendingReplies()
}

func (s *Service) WaitReplies() {
	s.conversations.WaitReplies()
}

// Close drops undelivered replies. The message log is owned by the caller.
func (s *Service) Close() {
	if dropped := s.conversations.Stop(); dropped > 0 {
		s.logger.Info("closing with undelivered replies", zap.Int("count", dropped))
	}
}

func preview(text string, limit int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if limit <= 0 || len(runes) <= limit {
		return trimmed
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
