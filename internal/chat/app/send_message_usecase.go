package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"learning_chat_service/internal/chat/domain"
	"learning_chat_service/internal/chat/repository"
	"learning_chat_service/pkg/apperr"
	"learning_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// EventWriter 對外事件流的最小介面，由 kafka writer 實作
type EventWriter interface {
	WriteJSON(ctx context.Context, key string, value any) error
}

// SendMessageUseCase 送出訊息並維護對話摘要
type SendMessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	pubsub   repository.PubSub
	events   EventWriter
}

// NewSendMessageUseCase create SendMessageUseCase
func NewSendMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	pubsub repository.PubSub,
	events EventWriter,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		pubsub:   pubsub,
		events:   events,
	}
}

// Send 驗證後先 append 訊息、再 upsert 對話摘要。
// convID 必須等於兩位參與者推導出的 conversation key。
// 摘要的 seen 集合重設為只含寄件者。
// 任一寫入失敗都回傳錯誤給呼叫端，不得吞掉。
func (uc *SendMessageUseCase) Send(ctx context.Context, convID, senderID, peerID, text string) (domain.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Message{}, apperr.InvalidArg("message text must not be blank")
	}

	resolved, err := domain.ResolveConversationKey(senderID, peerID)
	if err != nil {
		return domain.Message{}, err
	}
	if convID != resolved {
		return domain.Message{}, apperr.InvalidArg("conversation id does not match participants")
	}

	now := time.Now().UnixMilli()
	msg := domain.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Text:           trimmed,
		Timestamp:      now,
	}

	if err := uc.msgRepo.Append(ctx, &msg); err != nil {
		return domain.Message{}, apperr.Internal("failed to append message", err)
	}

	summary := domain.Conversation{
		ID:                convID,
		Participants:      []string{senderID, peerID},
		LastMessage:       trimmed,
		LastMessageTime:   msg.Timestamp,
		LastMessageSeenBy: []string{senderID},
	}
	if err := uc.convRepo.UpsertSummary(ctx, &summary); err != nil {
		// 訊息已寫入但摘要沒跟上，回報給呼叫端重試
		return msg, apperr.Internal("failed to upsert conversation summary", err)
	}

	uc.notify(ctx, convID, senderID, peerID)
	uc.emit(ctx, msg, peerID)

	return msg, nil
}

// notify 讓訊息與最近列表的訂閱者重新查詢
func (uc *SendMessageUseCase) notify(ctx context.Context, convID string, participants ...string) {
	if err := uc.pubsub.Publish(ctx, ConversationChannel(convID), "changed"); err != nil {
		logger.Log.Warn("failed to publish conversation invalidation",
			zap.String("conversation_id", convID),
			zap.Error(err),
		)
	}
	for _, uid := range participants {
		if err := uc.pubsub.Publish(ctx, RecentChannel(uid), "changed"); err != nil {
			logger.Log.Warn("failed to publish recent invalidation",
				zap.String("user_id", uid),
				zap.Error(err),
			)
		}
	}
}

// emit 把 message_sent 事件送進 kafka，失敗只記 log 不影響主流程
func (uc *SendMessageUseCase) emit(ctx context.Context, msg domain.Message, recipientID string) {
	if uc.events == nil {
		return
	}
	evt := domain.MessageSentEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		RecipientID:    recipientID,
		Text:           msg.Text,
		Timestamp:      msg.Timestamp,
	}
	if err := uc.events.WriteJSON(ctx, msg.ConversationID, evt); err != nil {
		payload, _ := json.Marshal(evt)
		logger.Log.Warn("failed to emit message_sent event",
			zap.ByteString("event", payload),
			zap.Error(err),
		)
	}
}
