package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"persona_chat/internal/ai"
	"persona_chat/internal/config"
	"persona_chat/internal/db"
	"persona_chat/internal/schedule"
)

const SimulatedReplyTask = "chat:simulated_reply"

type ConversationOptions struct {
	Log           db.MessageLog
	Personas      *PersonaConfig
	Replier       ai.Replier
	Clock         clockwork.Clock
	Logger        *zap.Logger
	ReplyDelay    time.Duration
	HistoryWindow int
	// OnAppend runs after every successful append, including delivered replies.
	OnAppend func(db.Message)
}

// ConversationStore owns the message logs and the simulated reply that
// follows every accepted user message.
type ConversationStore struct {
	log      db.MessageLog
	personas *PersonaConfig
	replier  ai.Replier
	clock    clockwork.Clock
	logger   *zap.Logger
	delay    time.Duration
	window   int
	onAppend func(db.Message)
	queue    *schedule.Queue
}

func NewConversationStore(opts ConversationOptions) *ConversationStore {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Log == nil {
		opts.Log = db.NewMemoryLog()
	}
	if opts.Replier == nil {
		opts.Replier = ai.Placeholder{Text: config.DefaultReplyText}
	}
	s := &ConversationStore{
		log:      opts.Log,
		personas: opts.Personas,
		replier:  opts.Replier,
		clock:    opts.Clock,
		logger:   opts.Logger,
		delay:    opts.ReplyDelay,
		window:   opts.HistoryWindow,
		onAppend: opts.OnAppend,
	}
	s.queue = schedule.NewQueue(opts.Clock, s.deliverReply, opts.Logger.Named("replies"))
	return s
}

// AppendUserMessage appends text from the user to the active conversation and
// schedules exactly one reply for that conversation. Blank text or an idle
// selection is ignored and reported with ok == false.
func (s *ConversationStore) AppendUserMessage(ctx context.Context, active Selection, text string) (Message, bool, error) {
	chatID, ok := active.ID()
	if !ok {
		s.logger.Debug("ignoring message without active conversation")
		return Message{}, false, nil
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("ignoring blank message", zap.Int64("conversation_id", chatID))
		return Message{}, false, nil
	}

	msg, err := s.append(ctx, db.Message{
		ChatID:    chatID,
		Sender:    db.SenderUser,
		Kind:      db.KindText,
		Body:      text,
		CreatedAt: s.clock.Now(),
	}, true)
	if err != nil {
		return Message{}, false, err
	}

	if err := s.scheduleReply(ctx, chatID); err != nil {
		s.logger.Error("simulated reply not scheduled", zap.Int64("conversation_id", chatID), zap.Error(err))
	}
	return msg, true, nil
}

// AppendGreeting adds an assistant message without scheduling anything or
// running OnAppend. It is used to seed conversations at startup.
func (s *ConversationStore) AppendGreeting(ctx context.Context, chatID int64, text string) (Message, error) {
	return s.append(ctx, db.Message{
		ChatID:    chatID,
		Sender:    db.SenderAssistant,
		Kind:      db.KindText,
		Body:      text,
		CreatedAt: s.clock.Now(),
	}, false)
}

// Messages returns the log of chatID oldest first; empty when nothing was sent.
func (s *ConversationStore) Messages(ctx context.Context, chatID int64) ([]Message, error) {
	messages, err := s.log.List(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("list conversation %d: %w", chatID, err)
	}
	return messages, nil
}

func (s *ConversationStore) scheduleReply(ctx context.Context, chatID int64) error {
	history, err := s.log.List(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	personality := ""
	if s.personas != nil {
		personality = s.personas.Settings(chatID).Personality
	}
	req := ai.BuildRequest(chatID, personality, history, s.window)
	body, err := s.replier.Reply(ctx, req)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	_, err = s.queue.Enqueue(ctx, schedule.Task{
		Type:           SimulatedReplyTask,
		ConversationID: chatID,
		Body:           body,
	}, schedule.Option{ProcessIn: s.delay})
	return err
}

func (s *ConversationStore) deliverReply(ctx context.Context, task schedule.Task) error {
	_, err := s.append(ctx, db.Message{
		ChatID:    task.ConversationID,
		Sender:    db.SenderAssistant,
		Kind:      db.KindText,
		Body:      task.Body,
		CreatedAt: s.clock.Now(),
	}, true)
	return err
}

func (s *ConversationStore) append(ctx context.Context, msg db.Message, notify bool) (Message, error) {
	stored, err := s.log.Append(ctx, msg)
	if err != nil {
		return Message{}, fmt.Errorf("append to conversation %d: %w", msg.ChatID, err)
	}
	s.logger.Debug("message appended",
		zap.Int64("conversation_id", stored.ChatID),
		zap.Int64("message_id", stored.ID),
		zap.String("sender", string(stored.Sender)))
	if notify && s.onAppend != nil {
		s.onAppend(stored)
	}
	return stored, nil
}

// PendingReplies counts replies that were scheduled but not delivered yet.
func (s *ConversationStore) PendingReplies() int {
	return s.queue.Pending()
}

// WaitReplies blocks until every scheduled reply was delivered.
func (s *ConversationStore) WaitReplies() {
	s.queue.Wait()
}

// Stop drops undelivered replies; it returns how many were dropped.
func (s *ConversationStore) Stop() int {
	return s.queue.Stop()
}
