package repository

import (
	"context"

	"learning_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DirectoryRepository definition 使用者目錄投影的存取
type DirectoryRepository interface {
	FindAll(ctx context.Context) ([]domain.DirectoryEntry, error)
	FindByUserType(ctx context.Context, userType string) ([]domain.DirectoryEntry, error)
	// Upsert 由 member service 在註冊 / 修改個人資料時寫入
	Upsert(ctx context.Context, entry *domain.DirectoryEntry) error
}

type directoryRepository struct {
	coll *mongo.Collection
}

// NewMongoDirectoryRepository create a DirectoryRepository
func NewMongoDirectoryRepository(db *mongo.Database) DirectoryRepository {
	return &directoryRepository{
		coll: db.Collection("users"),
	}
}

func (r *directoryRepository) FindAll(ctx context.Context) ([]domain.DirectoryEntry, error) {
	return r.find(ctx, bson.M{})
}

func (r *directoryRepository) FindByUserType(ctx context.Context, userType string) ([]domain.DirectoryEntry, error) {
	return r.find(ctx, bson.M{"user_type": userType})
}

func (r *directoryRepository) find(ctx context.Context, filter bson.M) ([]domain.DirectoryEntry, error) {
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var entries []domain.DirectoryEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *directoryRepository) Upsert(ctx context.Context, entry *domain.DirectoryEntry) error {
	filter := bson.M{"_id": entry.UserID}
	update := bson.M{"$set": bson.M{
		"username":  entry.Username,
		"email":     entry.Email,
		"user_type": entry.UserType,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	return err
}
