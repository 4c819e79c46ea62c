package app

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"learning_chat_service/internal/chat/domain"
	"learning_chat_service/pkg/logger"
	"learning_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	subs      *SubscriptionManager
	messageUC *SendMessageUseCase
	readUC    *ReadStateUseCase
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	subs *SubscriptionManager,
	messageUC *SendMessageUseCase,
	readUC *ReadStateUseCase,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		subs:      subs,
		messageUC: messageUC,
		readUC:    readUC,
	}
}

// connState 單一連線持有的訂閱與快取。
// handles 對應元件生命週期：roster / recent 跟著連線，
// messages 跟著目前打開的對話畫面
type connState struct {
	conn *websocket.Conn
	// connID 作為訂閱的 subscriber 鍵。
	// 同一使用者多裝置連線時，各連線的訂閱互不干擾。
	connID string
	userID string

	writeMu sync.Mutex

	roster *RosterCache

	mu            sync.Mutex
	rosterHandle  *Handle
	recentHandle  *Handle
	messageHandle *Handle
	openConvID    string
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUserID)
	userID, ok := tokenUser.(string)
	logger.Log.Info("websocket handle userID", zap.String("userID", userID), zap.String("ok", strconv.FormatBool(ok)))

	st := &connState{
		conn:   conn,
		connID: uuid.New().String(),
		userID: userID,
		roster: NewRosterCache(),
	}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", userID))
		st.cancelAll()
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	//fiber會自動處理回傳pong,故需要SetPongHandler另外接出
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	//client發出ping
	//fiber會自動處理ping,故需要SetPingHandler另外接出
	conn.SetPingHandler(func(appData string) error {
		logger.Log.Infof("Received PING:", appData)
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				pingMsg := "ping message"
				if err := conn.WriteMessage(websocket.PingMessage, []byte(pingMsg)); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
				logger.Log.Infof("%s Ping sent", userID)
			case <-ctxClose.Done():
				logger.Log.Infof("Ping goroutine cancelled for user:", userID)
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived, //1005 c.WriteMessage(websocket.CloseMessage, []byte{})
			) {
				logger.Log.Errorf("Connection closed:", err)
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctxClose, st, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, st *connState, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, st, msg)
	default:
		h.sendError(st, "unknown action")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, st *connState, msg []byte) {

	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	//訂閱使用者目錄,推送完整roster snapshot
	case string(domain.OpenRoster):
		err := h.openRoster(ctx, st, req.UserType)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//訂閱自己的最近對話列表
	case string(domain.OpenRecent):
		err := h.openRecent(ctx, st)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//進入對話畫面,訂閱該對話的訊息
	case string(domain.OpenMessages):
		convID, err := h.openMessages(ctx, st, req)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversation_id"] = convID
		}

	//離開對話畫面
	case string(domain.CloseMessages):
		st.mu.Lock()
		handle := st.messageHandle
		st.messageHandle = nil
		st.openConvID = ""
		st.mu.Unlock()
		if handle != nil {
			handle.Cancel()
		}
		resp.Success = true

	//傳送訊息,message寫入db並更新對話摘要
	case string(domain.SendMessage):
		sent, err := h.sendMessage(ctx, st, req)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message_id"] = sent.ID
			resp.Payload["conversation_id"] = sent.ConversationID
		}

	//將自己併入對話的已讀集合
	case string(domain.MarkSeen):
		err := h.readUC.MarkSeen(ctx, req.ConversationID, st.userID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	default:
		h.sendError(st, "unknown message types ")
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("UserID", st.userID), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	h.sendResponse(st, resp)
}

func (h *ChatWebsocketHandler) openRoster(ctx context.Context, st *connState, userType string) error {
	deliver := func(entries []domain.DirectoryEntry) {
		st.roster.Replace(entries)
		h.sendResponse(st, domain.WSResponse{
			Action:  string(domain.SnapshotRoster),
			Success: true,
			Payload: map[string]interface{}{"entries": entries},
		})
	}
	onErr := func(err error) { h.sendError(st, err.Error()) }

	var handle *Handle
	var err error
	if userType != "" {
		handle, err = h.subs.OpenRosterByType(ctx, st.connID, userType, deliver, onErr)
	} else {
		handle, err = h.subs.OpenRoster(ctx, st.connID, deliver, onErr)
	}
	if err != nil {
		return err
	}

	// 過濾與不過濾是不同的 query,切換時要取消舊 handle,
	// 否則兩條訂閱同時派發,roster 快取會來回互蓋
	st.mu.Lock()
	prev := st.rosterHandle
	st.rosterHandle = handle
	st.mu.Unlock()
	if prev != nil && prev != handle {
		prev.Cancel()
	}
	return nil
}

func (h *ChatWebsocketHandler) openRecent(ctx context.Context, st *connState) error {
	handle, err := h.subs.OpenRecentConversations(ctx, st.connID, st.userID,
		func(convs []domain.Conversation) {
			items := make([]map[string]interface{}, 0, len(convs))
			for _, c := range convs {
				peer := c.Peer(st.userID)
				items = append(items, map[string]interface{}{
					"conversation_id":   c.ID,
					"peer_id":           peer,
					"peer_name":         st.roster.DisplayName(peer),
					"last_message":      c.LastMessage,
					"last_message_time": c.LastMessageTime,
					"unread":            c.Unread(st.userID),
					"last_message_seen": c.LastMessageSeenBy,
				})
			}
			h.sendResponse(st, domain.WSResponse{
				Action:  string(domain.SnapshotRecent),
				Success: true,
				Payload: map[string]interface{}{"conversations": items},
			})
		},
		func(err error) { h.sendError(st, err.Error()) },
	)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.recentHandle = handle
	st.mu.Unlock()
	return nil
}

func (h *ChatWebsocketHandler) openMessages(ctx context.Context, st *connState, req domain.WSRequest) (string, error) {
	convID := req.ConversationID
	if convID == "" {
		id, err := domain.ResolveConversationKey(st.userID, req.PeerID)
		if err != nil {
			return "", err
		}
		convID = id
	}

	handle, err := h.subs.OpenMessages(ctx, st.connID, convID,
		func(msgs []domain.Message) {
			h.sendResponse(st, domain.WSResponse{
				Action:  string(domain.SnapshotMessages),
				Success: true,
				Payload: map[string]interface{}{
					"conversation_id": convID,
					"messages":        msgs,
				},
			})
			// 對話畫面開著時,snapshot送達即視為已讀
			if err := h.readUC.MarkSeen(ctx, convID, st.userID); err != nil {
				logger.Log.Warn("mark seen after snapshot failed",
					zap.String("conversation_id", convID),
					zap.String("userID", st.userID),
					zap.Error(err),
				)
			}
		},
		func(err error) { h.sendError(st, err.Error()) },
	)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	prev := st.messageHandle
	st.messageHandle = handle
	st.openConvID = convID
	st.mu.Unlock()
	if prev != nil && prev != handle {
		prev.Cancel()
	}
	return convID, nil
}

func (h *ChatWebsocketHandler) sendMessage(ctx context.Context, st *connState, req domain.WSRequest) (domain.Message, error) {
	convID := req.ConversationID
	if convID == "" {
		id, err := domain.ResolveConversationKey(st.userID, req.PeerID)
		if err != nil {
			return domain.Message{}, err
		}
		convID = id
	}
	return h.messageUC.Send(ctx, convID, st.userID, req.PeerID, req.Content)
}

// cancelAll 連線結束時取消全部訂閱,確保不會再推送到已關閉的連線
func (st *connState) cancelAll() {
	st.mu.Lock()
	handles := []*Handle{st.rosterHandle, st.recentHandle, st.messageHandle}
	st.rosterHandle, st.recentHandle, st.messageHandle = nil, nil, nil
	st.openConvID = ""
	st.mu.Unlock()

	for _, h := range handles {
		if h != nil {
			h.Cancel()
		}
	}
}

// sendResponse - 發送 JSON 給前端
// snapshot由訂閱goroutine併發推送,寫入需加鎖
func (h *ChatWebsocketHandler) sendResponse(st *connState, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	if err := st.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(st *connState, errorMsg string) {
	resp := domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
	h.sendResponse(st, resp)
}
