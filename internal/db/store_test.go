package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logImplementations(t *testing.T) map[string]MessageLog {
	t.Helper()
	return map[string]MessageLog{
		"memory": NewMemoryLog(),
		"sqlite": newTestStore(t, filepath.Join(t.TempDir(), "chat.sqlite")),
		"sqlite-in-memory": newTestStore(t, ":memory:"),
	}
}

func TestAppendAllocatesPerChatIDs(t *testing.T) {
	for name, log := range logImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			first, err := log.Append(ctx, Message{ChatID: 1, Sender: SenderAssistant, Kind: KindText, Body: "hello", CreatedAt: now})
			require.NoError(t, err)
			second, err := log.Append(ctx, Message{ID: 99, ChatID: 1, Sender: SenderUser, Kind: KindText, Body: "hi", CreatedAt: now})
			require.NoError(t, err)
			other, err := log.Append(ctx, Message{ChatID: 2, Sender: SenderUser, Kind: KindText, Body: "elsewhere", CreatedAt: now})
			require.NoError(t, err)

			assert.Equal(t, int64(1), first.ID)
			assert.Equal(t, int64(2), second.ID)
			assert.Equal(t, int64(1), other.ID)

			messages, err := log.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, messages, 2)
			assert.Equal(t, "hello", messages[0].Body)
			assert.Equal(t, SenderAssistant, messages[0].Sender)
			assert.Equal(t, "hi", messages[1].Body)
			assert.WithinDuration(t, now, messages[1].CreatedAt, time.Millisecond)
		})
	}
}

func TestListUnknownChatIsEmpty(t *testing.T) {
	for name, log := range logImplementations(t) {
		t.Run(name, func(t *testing.T) {
			messages, err := log.List(context.Background(), 42)
			require.NoError(t, err)
			assert.NotNil(t, messages)
			assert.Empty(t, messages)
		})
	}
}

func TestAppendRejectsUnknownSender(t *testing.T) {
	for name, log := range logImplementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := log.Append(context.Background(), Message{ChatID: 1, Sender: "system", Kind: KindText, Body: "x"})
			require.Error(t, err)
		})
	}
}

func TestConcurrentAppendsKeepIDsDense(t *testing.T) {
	for name, log := range logImplementations(t) {
		t.Run(name, func(t *testing.T) {
			const writers = 16
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := log.Append(context.Background(), Message{ChatID: 5, Sender: SenderUser, Kind: KindText, Body: "x", CreatedAt: time.Now()})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			messages, err := log.List(context.Background(), 5)
			require.NoError(t, err)
			require.Len(t, messages, writers)
			for i, msg := range messages {
				assert.Equal(t, int64(i+1), msg.ID)
			}
		})
	}
}

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
