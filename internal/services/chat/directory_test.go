package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona_chat/internal/config"
)

func TestDirectoryListKeepsSeedOrder(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	chats := dir.List()

	require.Len(t, chats, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{chats[0].ID, chats[1].ID, chats[2].ID})
	assert.Equal(t, "AI Ассистент", chats[0].Name)
	assert.Equal(t, 2, chats[0].Unread)
	assert.Equal(t, "2 мин назад", chats[0].LastActivity)
}

func TestDirectoryListReturnsCopy(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	chats := dir.List()
	chats[0].Name = "changed"

	got, ok := dir.Get(1)
	require.True(t, ok)
	assert.Equal(t, "AI Ассистент", got.Name)
}

func TestDirectorySeedFallbacks(t *testing.T) {
	dir := NewDirectory([]config.SeedChat{{ID: 4, Name: "Bare", Unread: -3}}, "default persona")

	got, ok := dir.Get(4)
	require.True(t, ok)
	assert.Equal(t, "🤖", got.Avatar)
	assert.Equal(t, "default persona", got.Personality)
	assert.Zero(t, got.Unread)
}

func TestDirectorySearch(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	cases := []struct {
		query string
		want  []int64
	}{
		{query: "", want: []int64{1, 2, 3}},
		{query: "ассистент", want: []int64{1}},
		{query: "  AI ", want: []int64{1, 2, 3}},
		{query: "учитель", want: []int64{3}},
		{query: "ＡＩ Наставник", want: []int64{3}},
		{query: "nothing", want: []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got := make([]int64, 0)
			for _, chat := range dir.Search(tc.query) {
				got = append(got, chat.ID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDirectoryCreate(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	created, err := dir.Create("  Мой помощник  ", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "Мой помощник", created.Name)
	assert.Equal(t, config.DefaultPersonality, created.Personality)
	assert.Zero(t, created.Unread)

	chats := dir.List()
	require.Len(t, chats, 4)
	assert.Equal(t, created, chats[3])
}

func TestDirectoryCreateRejectsBlankName(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	_, err := dir.Create("   ", "kind")
	require.ErrorIs(t, err, ErrEmptyName)
	assert.Len(t, dir.List(), 3)
}

func TestDirectoryRecordActivityAndMarkRead(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)
	at := time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC)

	require.True(t, dir.RecordActivity(2, "new picture", at, true))
	got, _ := dir.Get(2)
	assert.Equal(t, "new picture", got.LastMessage)
	assert.Equal(t, "09:05", got.LastActivity)
	assert.Equal(t, at, got.LastActivityAt)
	assert.Equal(t, 1, got.Unread)

	require.True(t, dir.MarkRead(2))
	got, _ = dir.Get(2)
	assert.Zero(t, got.Unread)

	assert.False(t, dir.RecordActivity(99, "x", at, true))
	assert.False(t, dir.MarkRead(99))
}

func TestDirectorySetPersonality(t *testing.T) {
	dir := NewDirectory(testSeed(t), config.DefaultPersonality)

	require.True(t, dir.SetPersonality(2, "Строгий экзаменатор"))
	got, _ := dir.Get(2)
	assert.Equal(t, "Строгий экзаменатор", got.Personality)
	assert.Empty(t, dir.Search("художник"))

	assert.False(t, dir.SetPersonality(99, "x"))
}
