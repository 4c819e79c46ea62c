package app

import (
	"context"
	"sync"

	"learning_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// UpsertSummary moke upsert conversation summary
func (m *MockConversationRepository) UpsertSummary(ctx context.Context, conv *domain.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// MarkSeen moke add user to seen set
func (m *MockConversationRepository) MarkSeen(ctx context.Context, convID, userID string) error {
	args := m.Called(ctx, convID, userID)
	return args.Error(0)
}

// FindByParticipant moke find conversations by participant
func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, convID string) (*domain.Conversation, error) {
	args := m.Called(ctx, convID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Append moke append msg
func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// ListByConversation moke list msg by conversation
func (m *MockMessageRepository) ListByConversation(ctx context.Context, convID string) ([]domain.Message, error) {
	args := m.Called(ctx, convID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDirectoryRepository Mock DirectoryRepository
type MockDirectoryRepository struct {
	mock.Mock
}

// FindAll moke find all directory entries
func (m *MockDirectoryRepository) FindAll(ctx context.Context) ([]domain.DirectoryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.DirectoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByUserType moke find directory entries by user_type
func (m *MockDirectoryRepository) FindByUserType(ctx context.Context, userType string) ([]domain.DirectoryEntry, error) {
	args := m.Called(ctx, userType)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.DirectoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

// Upsert moke upsert directory entry
func (m *MockDirectoryRepository) Upsert(ctx context.Context, entry *domain.DirectoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockEventWriter Mock EventWriter
type MockEventWriter struct {
	mock.Mock
}

// WriteJSON moke write event
func (m *MockEventWriter) WriteJSON(ctx context.Context, key string, value any) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// fakePubSub 測試用的 in-memory pub/sub，Publish 直接同步派發給訂閱者
type fakePubSub struct {
	mu       sync.Mutex
	handlers map[string][]subscription
	log      []string
}

type subscription struct {
	ctx     context.Context
	handler func(payload []byte)
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{handlers: map[string][]subscription{}}
}

func (f *fakePubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	f.log = append(f.log, channel)
	subs := append([]subscription(nil), f.handlers[channel]...)
	f.mu.Unlock()

	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		s.handler([]byte("changed"))
	}
	return nil
}

func (f *fakePubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[channel] = append(f.handlers[channel], subscription{ctx: ctx, handler: handler})
	return nil
}

func (f *fakePubSub) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}
