package app

import (
	"testing"

	"learning_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestRosterCache_Replace(t *testing.T) {
	cache := NewRosterCache()
	cache.Replace([]domain.DirectoryEntry{
		{UserID: "u1", Username: "Miss Lin"},
		{UserID: "u2", Username: "Bob"},
	})
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, "Miss Lin", cache.DisplayName("u1"))

	// 整份替換，不是增量合併
	cache.Replace([]domain.DirectoryEntry{
		{UserID: "u3", Username: "Carol"},
	})
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Lookup("u1")
	assert.False(t, ok)
}

// 查不到或名稱為空時退回原始 id
func TestRosterCache_DisplayNameFallback(t *testing.T) {
	cache := NewRosterCache()
	assert.Equal(t, "u9", cache.DisplayName("u9"))

	cache.Replace([]domain.DirectoryEntry{{UserID: "u1", Username: ""}})
	assert.Equal(t, "u1", cache.DisplayName("u1"))
}
