package app

import (
	"context"
	"errors"
	"testing"

	"learning_chat_service/internal/chat/domain"
	"learning_chat_service/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

// 測試 ReadStateUseCase.MarkSeen
func TestReadStateUseCase_MarkSeen(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	pubsub := newFakePubSub()

	mockConvRepo.On("MarkSeen", ctx, "alice_bob", "alice").Return(nil)
	mockConvRepo.On("FindByID", ctx, "alice_bob").Return(&domain.Conversation{
		ID:                "alice_bob",
		Participants:      []string{"alice", "bob"},
		LastMessage:       "hi",
		LastMessageSeenBy: []string{"bob", "alice"},
	}, nil)

	uc := NewReadStateUseCase(mockConvRepo, pubsub)
	err := uc.MarkSeen(ctx, "alice_bob", "alice")

	assert.NoError(t, err)
	published := pubsub.published()
	assert.Contains(t, published, RecentChannel("alice"))
	assert.Contains(t, published, RecentChannel("bob"))

	mockConvRepo.AssertExpectations(t)
}

// 重複 mark seen 也要成功，結果不變
func TestReadStateUseCase_MarkSeenIdempotent(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockConvRepo.On("MarkSeen", ctx, "alice_bob", "alice").Return(nil).Twice()
	mockConvRepo.On("FindByID", ctx, "alice_bob").Return(&domain.Conversation{
		ID:           "alice_bob",
		Participants: []string{"alice", "bob"},
	}, nil)

	uc := NewReadStateUseCase(mockConvRepo, newFakePubSub())
	assert.NoError(t, uc.MarkSeen(ctx, "alice_bob", "alice"))
	assert.NoError(t, uc.MarkSeen(ctx, "alice_bob", "alice"))

	mockConvRepo.AssertExpectations(t)
}

func TestReadStateUseCase_MarkSeenBlankArgs(t *testing.T) {
	uc := NewReadStateUseCase(new(MockConversationRepository), newFakePubSub())

	err := uc.MarkSeen(context.Background(), "", "alice")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))

	err = uc.MarkSeen(context.Background(), "alice_bob", "")
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidArgument))
}

// 對話不存在時仍算成功，只是沒有人可通知
func TestReadStateUseCase_MarkSeenMissingConversation(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	pubsub := newFakePubSub()

	mockConvRepo.On("MarkSeen", ctx, "alice_bob", "alice").Return(nil)
	mockConvRepo.On("FindByID", ctx, "alice_bob").Return(nil, nil)

	uc := NewReadStateUseCase(mockConvRepo, pubsub)
	err := uc.MarkSeen(ctx, "alice_bob", "alice")

	assert.NoError(t, err)
	assert.Empty(t, pubsub.published())
}

func TestReadStateUseCase_MarkSeenRepoFailure(t *testing.T) {
	ctx := context.Background()

	mockConvRepo := new(MockConversationRepository)
	mockConvRepo.On("MarkSeen", ctx, "alice_bob", "alice").Return(errors.New("mongo down"))

	uc := NewReadStateUseCase(mockConvRepo, newFakePubSub())
	err := uc.MarkSeen(ctx, "alice_bob", "alice")

	assert.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInternal))
}
