package domain

// Conversation 兩人對話的 summary 文件，_id 即 conversation key
type Conversation struct {
	ID                string   `bson:"_id" json:"id"`
	Participants      []string `bson:"participants" json:"participants"`
	LastMessage       string   `bson:"last_message" json:"last_message"`
	LastMessageTime   int64    `bson:"last_message_time" json:"last_message_time"`
	LastMessageSeenBy []string `bson:"last_message_seen_by" json:"last_message_seen_by"`
}

// Unread reports whether the latest message has not been seen by userID
func (c *Conversation) Unread(userID string) bool {
	for _, id := range c.LastMessageSeenBy {
		if id == userID {
			return false
		}
	}
	return true
}

// Peer returns the other participant of a two-party conversation
func (c *Conversation) Peer(userID string) string {
	for _, id := range c.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}

// Message 隸屬於單一 conversation 的訊息，寫入後不可變
type Message struct {
	ID             string `bson:"_id,omitempty" json:"id"`
	ConversationID string `bson:"conversation_id" json:"conversation_id"`
	SenderID       string `bson:"sender_id" json:"sender_id"`
	Text           string `bson:"text" json:"text"`
	Timestamp      int64  `bson:"timestamp" json:"timestamp"`
}

// DirectoryEntry 使用者目錄的投影，roster 訂閱的資料單位
type DirectoryEntry struct {
	UserID   string `bson:"_id" json:"user_id"`
	Username string `bson:"username" json:"username"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	UserType string `bson:"user_type,omitempty" json:"user_type,omitempty"`
}

// MessageSentEvent 送出訊息後發佈到 Kafka 的事件，外部通知管線消費
type MessageSentEvent struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp"`
}
