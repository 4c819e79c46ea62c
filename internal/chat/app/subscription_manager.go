package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"learning_chat_service/internal/chat/domain"
	"learning_chat_service/internal/chat/repository"
	"learning_chat_service/pkg/apperr"
	"learning_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// 失效通知用的 channel 命名
const (
	rosterChannel       = "chat:roster"
	recentChannelPrefix = "chat:recent:"
	convChannelPrefix   = "chat:conv:"
)

// RecentChannel 使用者最近對話列表的失效 channel
func RecentChannel(userID string) string {
	return recentChannelPrefix + userID
}

// ConversationChannel 單一對話訊息列表的失效 channel
func ConversationChannel(convID string) string {
	return convChannelPrefix + convID
}

// RosterChannel 使用者目錄的失效 channel
func RosterChannel() string {
	return rosterChannel
}

// Handle 一條活動中的訂閱，由開啟者持有。
// 開啟與取消必須成對：元件卸載時沒有 Cancel 會洩漏連線，
// 並且可能把 snapshot 派發給已經不存在的消費者。
type Handle struct {
	key       string
	mu        sync.Mutex
	done      bool
	gen       uint64
	delivered uint64
	cancel    context.CancelFunc
	release   func()
}

// Cancel 同步停止此訂閱。返回後不會再有任何 snapshot / error 回調。
// 不可在 snapshot 回調內呼叫。
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	h.mu.Unlock()

	h.cancel()
	if h.release != nil {
		h.release()
	}
}

// nextGen 取得本次 refresh 的序號。序號在查詢開始前取得，
// 讓晚開始的查詢一定拿到較大的序號。
func (h *Handle) nextGen() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	return h.gen
}

// deliver 在持有鎖的情況下執行回調，Cancel 後不再派發。
// 序號落後於已派發 snapshot 的結果直接丟棄，
// 舊查詢不可蓋掉較新的完整 snapshot。
func (h *Handle) deliver(gen uint64, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done || gen <= h.delivered {
		return
	}
	h.delivered = gen
	fn()
}

// SubscriptionManager 建立伺服器端過濾的 live query，
// 每次底層資料變動時重新查詢並推送完整 snapshot（push，不是 poll）。
type SubscriptionManager struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	dirRepo  repository.DirectoryRepository
	pubsub   repository.PubSub

	mu     sync.Mutex
	active map[string]*Handle // subscriber|query -> handle
}

// NewSubscriptionManager create SubscriptionManager
func NewSubscriptionManager(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	dirRepo repository.DirectoryRepository,
	pubsub repository.PubSub,
) *SubscriptionManager {
	return &SubscriptionManager{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		dirRepo:  dirRepo,
		pubsub:   pubsub,
		active:   map[string]*Handle{},
	}
}

// OpenRoster 訂閱全部使用者目錄，每次變動推送完整 roster snapshot
func (m *SubscriptionManager) OpenRoster(
	ctx context.Context,
	subscriberID string,
	deliver func([]domain.DirectoryEntry),
	onErr func(error),
) (*Handle, error) {
	refresh := func(ctx context.Context, h *Handle, gen uint64) {
		entries, err := m.dirRepo.FindAll(ctx)
		if err != nil {
			m.fail(h, gen, onErr, err)
			return
		}
		h.deliver(gen, func() { deliver(entries) })
	}
	return m.open(ctx, subscriberID, "roster", rosterChannel, refresh)
}

// OpenRosterByType 同 OpenRoster，但只回傳特定 user_type 的項目
func (m *SubscriptionManager) OpenRosterByType(
	ctx context.Context,
	subscriberID, userType string,
	deliver func([]domain.DirectoryEntry),
	onErr func(error),
) (*Handle, error) {
	refresh := func(ctx context.Context, h *Handle, gen uint64) {
		entries, err := m.dirRepo.FindByUserType(ctx, userType)
		if err != nil {
			m.fail(h, gen, onErr, err)
			return
		}
		h.deliver(gen, func() { deliver(entries) })
	}
	return m.open(ctx, subscriberID, "roster:"+userType, rosterChannel, refresh)
}

// OpenRecentConversations 訂閱 userID 參與的對話列表，
// 依最後訊息時間降冪，重複紀錄以 (id, sorted participants) 去重
func (m *SubscriptionManager) OpenRecentConversations(
	ctx context.Context,
	subscriberID, userID string,
	deliver func([]domain.Conversation),
	onErr func(error),
) (*Handle, error) {
	refresh := func(ctx context.Context, h *Handle, gen uint64) {
		convs, err := m.convRepo.FindByParticipant(ctx, userID)
		if err != nil {
			m.fail(h, gen, onErr, err)
			return
		}
		unique := dedupeConversations(convs)
		h.deliver(gen, func() { deliver(unique) })
	}
	return m.open(ctx, subscriberID, "recent:"+userID, RecentChannel(userID), refresh)
}

// OpenMessages 訂閱單一對話下的訊息列表，依 timestamp 升冪
func (m *SubscriptionManager) OpenMessages(
	ctx context.Context,
	subscriberID, convID string,
	deliver func([]domain.Message),
	onErr func(error),
) (*Handle, error) {
	refresh := func(ctx context.Context, h *Handle, gen uint64) {
		msgs, err := m.msgRepo.ListByConversation(ctx, convID)
		if err != nil {
			m.fail(h, gen, onErr, err)
			return
		}
		h.deliver(gen, func() { deliver(msgs) })
	}
	return m.open(ctx, subscriberID, "messages:"+convID, ConversationChannel(convID), refresh)
}

// open 建立訂閱。同一 (subscriber, query) 只允許一條 handle，
// 重新開啟會先取消舊的，避免重複派發與洩漏。
// 開啟本身不阻塞：初始 snapshot 以非同步方式送出。
func (m *SubscriptionManager) open(
	ctx context.Context,
	subscriberID, queryKey, channel string,
	refresh func(context.Context, *Handle, uint64),
) (*Handle, error) {
	key := subscriberID + "|" + queryKey

	m.mu.Lock()
	prev := m.active[key]
	m.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	subCtx, cancel := context.WithCancel(ctx)
	h := &Handle{key: key, cancel: cancel}
	h.release = func() {
		m.mu.Lock()
		if m.active[key] == h {
			delete(m.active, key)
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.active[key] = h
	m.mu.Unlock()

	run := func() { refresh(subCtx, h, h.nextGen()) }
	if err := m.pubsub.Subscribe(subCtx, channel, func(_ []byte) {
		run()
	}); err != nil {
		h.Cancel()
		return nil, apperr.Unavailable("failed to open subscription", err)
	}

	// 初始 snapshot
	go run()

	return h, nil
}

// fail 傳輸層錯誤只會讓該 handle 停止更新，不會讓程序崩潰
func (m *SubscriptionManager) fail(h *Handle, gen uint64, onErr func(error), err error) {
	logger.Log.Error("subscription refresh failed",
		zap.String("handle", h.key),
		zap.Error(err),
	)
	if onErr == nil {
		return
	}
	h.deliver(gen, func() { onErr(apperr.Unavailable("subscription refresh failed", err)) })
}

// dedupeConversations 以 (id, sorted participants) 為複合鍵去重，保留先出現者
func dedupeConversations(convs []domain.Conversation) []domain.Conversation {
	seen := map[string]bool{}
	out := make([]domain.Conversation, 0, len(convs))
	for _, c := range convs {
		p := append([]string(nil), c.Participants...)
		sort.Strings(p)
		key := c.ID + "-" + strings.Join(p, domain.KeySeparator)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
