package bdd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"learning_chat_service/internal/chat/app"
	"learning_chat_service/internal/chat/domain"
	"learning_chat_service/pkg/logger"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

func TestFeatures(t *testing.T) {
	logger.SetNewNop()

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Paths:  []string{"./featureFiles"}, // 指向 feature 檔相對路徑
			Format: "pretty",
			Output: os.Stdout, // 將結果輸出到終端
		},
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

// InitializeScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeScenario(s *godog.ScenarioContext) {
	w := &messagingWorld{}
	s.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		w.reset()
		return ctx, nil
	})

	s.Step(`^"([^"]*)" 傳送訊息 "([^"]*)" 給 "([^"]*)"$`, w.sendsMessageTo)
	s.Step(`^"([^"]*)" 與 "([^"]*)" 的對話摘要應為 "([^"]*)"$`, w.conversationSummaryShouldBe)
	s.Step(`^"([^"]*)" 的最近對話應顯示未讀$`, w.recentShouldBeUnread)
	s.Step(`^"([^"]*)" 的最近對話不應顯示未讀$`, w.recentShouldNotBeUnread)
	s.Step(`^"([^"]*)" 將與 "([^"]*)" 的對話標為已讀$`, w.marksConversationSeen)
}

// messagingWorld 每個 scenario 共用的 in-memory 環境，
// 用真正的 UseCase 跑在記憶體 repository 上
type messagingWorld struct {
	convRepo *memoryConversationRepo
	msgRepo  *memoryMessageRepo
	sendUC   *app.SendMessageUseCase
	readUC   *app.ReadStateUseCase
}

func (w *messagingWorld) reset() {
	w.convRepo = &memoryConversationRepo{convs: map[string]*domain.Conversation{}}
	w.msgRepo = &memoryMessageRepo{}
	pubsub := &noopPubSub{}
	w.sendUC = app.NewSendMessageUseCase(w.convRepo, w.msgRepo, pubsub, nil)
	w.readUC = app.NewReadStateUseCase(w.convRepo, pubsub)
}

func (w *messagingWorld) sendsMessageTo(sender, text, peer string) error {
	convID, err := domain.ResolveConversationKey(sender, peer)
	if err != nil {
		return err
	}
	_, err = w.sendUC.Send(context.Background(), convID, sender, peer, text)
	return err
}

func (w *messagingWorld) conversationSummaryShouldBe(a, b, expected string) error {
	convID, err := domain.ResolveConversationKey(a, b)
	if err != nil {
		return err
	}
	conv, err := w.convRepo.FindByID(context.Background(), convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", convID)
	}
	if conv.LastMessage != expected {
		return fmt.Errorf("expected last message %q, but got %q", expected, conv.LastMessage)
	}
	return nil
}

func (w *messagingWorld) recentShouldBeUnread(user string) error {
	return w.checkUnread(user, true)
}

func (w *messagingWorld) recentShouldNotBeUnread(user string) error {
	return w.checkUnread(user, false)
}

func (w *messagingWorld) checkUnread(user string, expected bool) error {
	convs, err := w.convRepo.FindByParticipant(context.Background(), user)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		return fmt.Errorf("no conversations for %s", user)
	}
	if got := convs[0].Unread(user); got != expected {
		return fmt.Errorf("expected unread=%v for %s, but got %v", expected, user, got)
	}
	return nil
}

func (w *messagingWorld) marksConversationSeen(user, peer string) error {
	convID, err := domain.ResolveConversationKey(user, peer)
	if err != nil {
		return err
	}
	return w.readUC.MarkSeen(context.Background(), convID, user)
}

// === in-memory repositories ===

type memoryConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
}

func (r *memoryConversationRepo) UpsertSummary(_ context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *conv
	r.convs[conv.ID] = &c
	return nil
}

func (r *memoryConversationRepo) MarkSeen(_ context.Context, convID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[convID]
	if !ok {
		r.convs[convID] = &domain.Conversation{ID: convID, LastMessageSeenBy: []string{userID}}
		return nil
	}
	for _, id := range conv.LastMessageSeenBy {
		if id == userID {
			return nil
		}
	}
	conv.LastMessageSeenBy = append(conv.LastMessageSeenBy, userID)
	return nil
}

func (r *memoryConversationRepo) FindByParticipant(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range r.convs {
		for _, p := range conv.Participants {
			if p == userID {
				out = append(out, *conv)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime > out[j].LastMessageTime })
	return out, nil
}

func (r *memoryConversationRepo) FindByID(_ context.Context, convID string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[convID]
	if !ok {
		return nil, nil
	}
	c := *conv
	return &c, nil
}

type memoryMessageRepo struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (r *memoryMessageRepo) Append(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	r.msgs = append(r.msgs, *msg)
	return nil
}

func (r *memoryMessageRepo) ListByConversation(_ context.Context, convID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

type noopPubSub struct{}

func (noopPubSub) Publish(context.Context, string, interface{}) error { return nil }
func (noopPubSub) Subscribe(context.Context, string, func(payload []byte)) error {
	return nil
}
