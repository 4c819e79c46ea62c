package domain

// Action websocket request action
type Action string

const (
	// OpenRoster websocket action open_roster
	OpenRoster Action = "open_roster"
	// OpenRecent websocket action open_recent
	OpenRecent Action = "open_recent"
	// OpenMessages websocket action open_messages
	OpenMessages Action = "open_messages"
	// CloseMessages websocket action close_messages
	CloseMessages Action = "close_messages"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MarkSeen websocket action mark_seen
	MarkSeen Action = "mark_seen"

	// SnapshotRoster server push snapshot_roster
	SnapshotRoster Action = "snapshot_roster"
	// SnapshotRecent server push snapshot_recent
	SnapshotRecent Action = "snapshot_recent"
	// SnapshotMessages server push snapshot_messages
	SnapshotMessages Action = "snapshot_messages"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	PeerID         string `json:"peer_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	UserType       string `json:"user_type"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
