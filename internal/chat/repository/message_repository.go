package repository

import (
	"context"
	"time"

	"learning_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message 存取，訊息寫入後不可變
type MessageRepository interface {
	// Append 新增一則訊息，id 與 timestamp 由伺服器在寫入時指派
	Append(ctx context.Context, msg *domain.Message) error
	// ListByConversation 查 conversation 下所有訊息，依 timestamp 升冪
	ListByConversation(ctx context.Context, convID string) ([]domain.Message, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID string) ([]domain.Message, error) {
	filter := bson.M{"conversation_id": convID}
	// 同一毫秒的訊息以 _id 決定先後，排序才穩定
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
