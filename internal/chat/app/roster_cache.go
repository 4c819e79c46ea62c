package app

import (
	"sync"

	"learning_chat_service/internal/chat/domain"
)

// RosterCache 目錄的本地快照，讀多寫少所以用 RWMutex。
// 每次 roster snapshot 到達時整份替換，不做增量更新。
type RosterCache struct {
	mu      sync.RWMutex
	entries map[string]domain.DirectoryEntry
}

// NewRosterCache create RosterCache
func NewRosterCache() *RosterCache {
	return &RosterCache{entries: map[string]domain.DirectoryEntry{}}
}

// Replace 以新的 snapshot 整份替換快取內容
func (c *RosterCache) Replace(entries []domain.DirectoryEntry) {
	next := make(map[string]domain.DirectoryEntry, len(entries))
	for _, e := range entries {
		next[e.UserID] = e
	}
	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
}

// DisplayName 回傳 userID 的顯示名稱，查不到時退回原始 id，
// 讓 roster 尚未載入或帳號已刪除時仍有東西可顯示
func (c *RosterCache) DisplayName(userID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[userID]; ok && e.Username != "" {
		return e.Username
	}
	return userID
}

// Lookup 回傳 userID 對應的目錄項目
func (c *RosterCache) Lookup(userID string) (domain.DirectoryEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	return e, ok
}

// Len 目前快取的項目數
func (c *RosterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
