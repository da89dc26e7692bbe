package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap/zaptest"

	"persona_chat/internal/config"
	"persona_chat/internal/db"
)

const testReply = "Получил твоё сообщение! Сейчас обрабатываю... ✨"

func testConfig() config.Config {
	return config.Config{
		ReplyDelay:         time.Second,
		ReplyText:          testReply,
		DefaultPersonality: config.DefaultPersonality,
		HistoryWindow:      10,
	}
}

func testSeed(t *testing.T) []config.SeedChat {
	t.Helper()
	seed, err := config.LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	return seed
}

func newTestService(t *testing.T, log db.MessageLog) (*Service, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	if log == nil {
		log = db.NewMemoryLog()
	}
	service, err := NewService(context.Background(), testConfig(), testSeed(t), Deps{
		Log:    log,
		Clock:  clock,
		Logger: zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(service.Close)
	return service, clock
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "chat.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
