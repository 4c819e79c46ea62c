package repository

import (
	"context"

	"learning_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition conversation summary 存取
type ConversationRepository interface {
	// UpsertSummary 以 merge 語義更新 summary，只覆寫指定欄位，不存在則建立
	UpsertSummary(ctx context.Context, conv *domain.Conversation) error
	// MarkSeen 將 userID 加入 seen-set，重複寫入無額外效果
	MarkSeen(ctx context.Context, convID, userID string) error
	// FindByParticipant 查 userID 參與的所有 conversation，依最後訊息時間降冪
	FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	FindByID(ctx context.Context, convID string) (*domain.Conversation, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *conversationRepository) UpsertSummary(ctx context.Context, conv *domain.Conversation) error {
	filter := bson.M{"_id": conv.ID}
	// $set 只覆寫 summary 欄位，保留其他欄位
	update := bson.M{"$set": bson.M{
		"participants":         conv.Participants,
		"last_message":         conv.LastMessage,
		"last_message_time":    conv.LastMessageTime,
		"last_message_seen_by": conv.LastMessageSeenBy,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) MarkSeen(ctx context.Context, convID, userID string) error {
	filter := bson.M{"_id": convID}
	update := bson.M{"$addToSet": bson.M{"last_message_seen_by": userID}}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.M{"last_message_time": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, convID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": convID}).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}
