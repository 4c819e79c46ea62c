package app

import (
	"context"

	"learning_chat_service/internal/chat/repository"
	"learning_chat_service/pkg/apperr"
	"learning_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ReadStateUseCase 維護對話摘要的已讀集合
type ReadStateUseCase struct {
	convRepo repository.ConversationRepository
	pubsub   repository.PubSub
}

// NewReadStateUseCase create ReadStateUseCase
func NewReadStateUseCase(convRepo repository.ConversationRepository, pubsub repository.PubSub) *ReadStateUseCase {
	return &ReadStateUseCase{convRepo: convRepo, pubsub: pubsub}
}

// MarkSeen 把 userID 併入已讀集合。冪等：重複呼叫不改變結果，
// 也不會動到摘要的其他欄位。對話不存在時建立只含已讀集合的殼。
func (uc *ReadStateUseCase) MarkSeen(ctx context.Context, convID, userID string) error {
	if convID == "" || userID == "" {
		return apperr.InvalidArg("conversation id and user id must not be blank")
	}

	if err := uc.convRepo.MarkSeen(ctx, convID, userID); err != nil {
		return apperr.Internal("failed to mark conversation seen", err)
	}

	// 已讀狀態只影響最近列表的未讀標記，通知雙方的 recent 訂閱
	conv, err := uc.convRepo.FindByID(ctx, convID)
	if err != nil || conv == nil {
		if err != nil {
			logger.Log.Warn("failed to load conversation after mark seen",
				zap.String("conversation_id", convID),
				zap.Error(err),
			)
		}
		return nil
	}
	for _, uid := range conv.Participants {
		if err := uc.pubsub.Publish(ctx, RecentChannel(uid), "changed"); err != nil {
			logger.Log.Warn("failed to publish recent invalidation",
				zap.String("user_id", uid),
				zap.Error(err),
			)
		}
	}
	return nil
}
