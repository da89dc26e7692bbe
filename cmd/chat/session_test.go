package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"persona_chat/internal/assets"
	"persona_chat/internal/config"
	"persona_chat/internal/db"
	chatsvc "persona_chat/internal/services/chat"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSession(t *testing.T) (*session, *chatsvc.Service, *syncBuffer) {
	t.Helper()
	cfg := config.Config{
		ReplyText:          "placeholder reply",
		DefaultPersonality: config.DefaultPersonality,
		HistoryWindow:      10,
		AvatarMaxBytes:     1 << 20,
		VoiceMaxBytes:      1 << 20,
	}
	seed, err := config.LoadSeed("")
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	service, err := chatsvc.NewService(context.Background(), cfg, seed, chatsvc.Deps{Log: db.NewMemoryLog(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(service.Close)

	out := &syncBuffer{}
	return newSession(service, assets.NewPicker(cfg), out, logger), service, out
}

func TestSessionSendAndReply(t *testing.T) {
	s, service, out := newTestSession(t)
	input := strings.NewReader("/open 1\nhi\n/quit\n")

	require.NoError(t, s.run(context.Background(), input))

	text := out.String()
	assert.Contains(t, text, "== 🤖 AI Ассистент")
	assert.Contains(t, text, "👤 hi")
	assert.Contains(t, text, "🤖 placeholder reply")

	got, err := service.Messages(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSessionRequiresOpenConversation(t *testing.T) {
	s, service, out := newTestSession(t)

	require.NoError(t, s.run(context.Background(), strings.NewReader("hello\n/persona x\n")))

	assert.Contains(t, out.String(), "open a conversation first")
	assert.Zero(t, service.PendingReplies())
	assert.Equal(t, "Дружелюбный помощник", service.Settings(1).Personality)
}

func TestSessionPersonaCommands(t *testing.T) {
	s, service, out := newTestSession(t)
	avatar := filepath.Join(t.TempDir(), "face.png")
	require.NoError(t, os.WriteFile(avatar, []byte("png"), 0o644))

	input := strings.NewReader(strings.Join([]string{
		"/open 2",
		"/config",
		"/persona Мрачный поэт",
		"/avatar " + avatar,
		"/voice " + avatar,
		"/done",
		"/settings",
	}, "\n"))
	require.NoError(t, s.run(context.Background(), input))

	settings := service.Settings(2)
	assert.Equal(t, "Мрачный поэт", settings.Personality)
	asset, ok := settings.Avatar.Get()
	require.True(t, ok)
	assert.Equal(t, "face.png", asset.Name)
	assert.False(t, settings.Voice.Present())
	assert.False(t, service.ConfigOpen())
	assert.Contains(t, out.String(), "unsupported media type")
	assert.Contains(t, out.String(), "avatar: face.png (3 B)")
}

func TestSessionCreateAndSearch(t *testing.T) {
	s, _, out := newTestSession(t)

	input := strings.NewReader("/new Помощник | Весёлый\n/search весёлый\n/open 9\n")
	require.NoError(t, s.run(context.Background(), input))

	text := out.String()
	assert.Contains(t, text, "created 4 Помощник")
	assert.Contains(t, text, "4 🤖 Помощник (Весёлый)")
	assert.Contains(t, text, "no conversation 9")
}
