package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"persona_chat/internal/assets"
	"persona_chat/internal/db"
	chatsvc "persona_chat/internal/services/chat"
)

const helpText = `commands:
  /list                      show conversations
  /search <text>             filter conversations by name or personality
  /open <id>                 open a conversation
  /close                     close the current conversation
  /new <name> | <character>  create a conversation
  /history                   print the current conversation
  /config                    open persona settings
  /done                      close persona settings
  /settings                  show persona settings
  /persona <text>            set the personality (empty clears it)
  /avatar <path>|-           pick or clear the avatar image
  /voice <path>|-            pick or clear the voice sample
  /quit                      leave, waiting for pending replies
anything else is sent as a message`

// session renders service state as plain text lines. Writes may come from
// the reply timer, so out is guarded.
type session struct {
	service *chatsvc.Service
	picker  *assets.Picker
	logger  *zap.Logger

	mu  sync.Mutex
	out io.Writer
}

func newSession(service *chatsvc.Service, picker *assets.Picker, out io.Writer, logger *zap.Logger) *session {
	return &session{service: service, picker: picker, out: out, logger: logger}
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	unsubscribe := s.service.Subscribe(s.onEvent)
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	s.printConversations(s.service.ListConversations())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				s.service.WaitReplies()
				return nil
			}
			if err := s.handle(ctx, line); err != nil {
				s.logger.Warn("command failed", zap.String("input", line), zap.Error(err))
				s.printf("error: %v", err)
			}
		}
	}
}

func (s *session) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		_, ok, err := s.service.SendMessage(ctx, line)
		if err != nil {
			return err
		}
		if !ok && !s.service.Selection().Active() {
			s.printf("open a conversation first (/list, /open <id>)")
		}
		return nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/help":
		s.printf("%s", helpText)
	case "/list":
		s.printConversations(s.service.ListConversations())
	case "/search":
		s.printConversations(s.service.SearchConversations(arg))
	case "/open":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("bad conversation id %q", arg)
		}
		if !s.service.OpenConversation(id) {
			s.printf("no conversation %d", id)
			return nil
		}
		return s.printHistory(ctx)
	case "/close":
		s.service.ClearSelection()
		s.printf("no conversation open")
	case "/new":
		name, personality, _ := strings.Cut(arg, "|")
		created, err := s.service.CreateConversation(name, personality)
		if err != nil {
			return err
		}
		s.printf("created %d %s", created.ID, created.Name)
	case "/history":
		return s.printHistory(ctx)
	case "/config":
		if !s.service.OpenConfig() {
			s.printf("open a conversation first")
		}
	case "/done":
		s.service.CloseConfig()
	case "/settings":
		id, ok := s.service.Selection().ID()
		if !ok {
			s.printf("open a conversation first")
			return nil
		}
		settings := s.service.Settings(id)
		s.printf("personality: %s\navatar: %s\nvoice: %s", settings.Personality, settings.Avatar, settings.Voice)
	case "/persona":
		return s.withActive(func(id int64) error {
			s.service.UpdatePersonality(id, arg)
			return nil
		})
	case "/avatar", "/voice":
		kind := assets.KindAvatar
		if command == "/voice" {
			kind = assets.KindVoice
		}
		return s.withActive(func(id int64) error {
			ref := chatsvc.NoAsset()
			if arg != "-" && arg != "" {
				asset, err := s.picker.Capture(arg, kind)
				if err != nil {
					return err
				}
				ref = chatsvc.AssetOf(asset)
			}
			if kind == assets.KindVoice {
				s.service.SetVoiceAsset(id, ref)
			} else {
				s.service.SetAvatarAsset(id, ref)
			}
			return nil
		})
	default:
		s.printf("unknown command %s, try /help", command)
	}
	return nil
}

func (s *session) withActive(fn func(id int64) error) error {
	id, ok := s.service.Selection().ID()
	if !ok {
		s.printf("open a conversation first")
		return nil
	}
	return fn(id)
}

func (s *session) onEvent(event chatsvc.Event) {
	switch event.Type {
	case chatsvc.EventMessageAppended:
		activeID, active := s.service.Selection().ID()
		if active && activeID == event.ConversationID {
			s.printMessage(*event.Message)
			return
		}
		if chat, ok := s.service.Conversation(event.ConversationID); ok {
			s.printf("* new message in %s (%d unread)", chat.Name, chat.Unread)
		}
	case chatsvc.EventPersonaUpdated:
		s.printf("* persona settings saved")
	case chatsvc.EventConfigToggled:
		if s.service.ConfigOpen() {
			s.printf("* persona settings open: /persona, /avatar, /voice, /done")
		}
	}
}

func (s *session) printConversations(chats []chatsvc.Conversation) {
	if len(chats) == 0 {
		s.printf("no conversations")
		return
	}
	for _, chat := range chats {
		unread := ""
		if chat.Unread > 0 {
			unread = fmt.Sprintf(" [%d]", chat.Unread)
		}
		s.printf("%d %s %s%s (%s) %s: %s", chat.ID, chat.Avatar, chat.Name, unread, chat.Personality, chat.LastActivity, chat.LastMessage)
	}
}

func (s *session) printHistory(ctx context.Context) error {
	snap, err := s.service.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.Active == nil {
		s.printf("no conversation open")
		return nil
	}
	s.printf("== %s %s", snap.Active.Avatar, snap.Active.Name)
	for _, msg := range snap.Messages {
		s.printMessage(msg)
	}
	return nil
}

func (s *session) printMessage(msg chatsvc.Message) {
	who := "🤖"
	if msg.Sender == db.SenderUser {
		who = "👤"
	}
	s.printf("[%s] %s %s", msg.CreatedAt.Format("15:04"), who, msg.Body)
}
