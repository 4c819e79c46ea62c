package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	chatdomain "learning_chat_service/internal/chat/domain"
	"learning_chat_service/internal/member/domain"
	"learning_chat_service/pkg/encrypt"
	"learning_chat_service/pkg/logger"
	token "learning_chat_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func mustToken(t *testing.T, memberID, role string) string {
	t.Helper()
	tok, err := token.GenerateJWT(memberID, role, "member_service_test")
	assert.NoError(t, err)
	return tok
}

// MockMemberRepo Mock MemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) CreateMember(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) UpdateProfile(ctx context.Context, memberID string, update *domain.ProfileUpdate) error {
	args := m.Called(ctx, memberID, update)
	return args.Error(0)
}
func (m *MockMemberRepo) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	args := m.Called(ctx, memberQuery)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRedisRepo 針對 MemberSession 的 Mock
type MockRedisRepo struct {
	mock.Mock
}

// Set 模擬 Redis Set 操作
func (m *MockRedisRepo) Set(ctx context.Context, key string, value domain.MemberSession, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get 模擬 Redis Get 操作
func (m *MockRedisRepo) Get(ctx context.Context, key string) (domain.MemberSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(domain.MemberSession), args.Error(1)
	}
	return domain.MemberSession{}, args.Error(1)
}

// Del 模擬 Redis Del 操作
func (m *MockRedisRepo) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ExtendTTL 模擬 Redis ExtendTTL 操作
func (m *MockRedisRepo) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// GetTTL 模擬 Redis GetTTL 操作
func (m *MockRedisRepo) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

// MockDirectoryRepo Mock chat 目錄投影
type MockDirectoryRepo struct {
	mock.Mock
}

func (m *MockDirectoryRepo) FindAll(ctx context.Context) ([]chatdomain.DirectoryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]chatdomain.DirectoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockDirectoryRepo) FindByUserType(ctx context.Context, userType string) ([]chatdomain.DirectoryEntry, error) {
	args := m.Called(ctx, userType)
	if args.Get(0) != nil {
		return args.Get(0).([]chatdomain.DirectoryEntry), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockDirectoryRepo) Upsert(ctx context.Context, entry *chatdomain.DirectoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockPubSub Mock 失效通知
type MockPubSub struct {
	mock.Mock
}

func (m *MockPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockImageStore Mock 頭像儲存
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.Error(0)
}
func (m *MockImageStore) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func TestMemberUseCase_Register(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	password := "!!Securepassword111"

	logger.SetNewNop()

	// **情境 1: 註冊成功，且同步目錄投影**
	t.Run("成功註冊", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockDir := new(MockDirectoryRepo)
		mockPub := new(MockPubSub)

		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, errors.New("not found")).Once()
		mockRepo.On("CreateMember", ctx, mock.Anything).Return(nil).Once()
		mockDir.On("Upsert", ctx, mock.MatchedBy(func(e *chatdomain.DirectoryEntry) bool {
			return e.Username == "bob" && e.Email == email && e.UserType == "student"
		})).Return(nil).Once()
		mockPub.On("Publish", ctx, "chat:roster", mock.Anything).Return(nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, mockDir, mockPub, nil)
		err := uc.Register(ctx, RegisterParam{
			Email:    email,
			Username: "bob",
			Phone:    "0912345678",
			Password: password,
			UserType: "student",
		})

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockDir.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	// **情境 2: Email 已存在**
	t.Run("Email 已存在", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		existingUser := &domain.Member{
			ID:       1,
			MemberID: "AAA",
			Email:    email,
			Status:   domain.MemberStatusOffLine,
		}

		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).
			Return(existingUser, nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, nil, nil, nil)
		err := uc.Register(ctx, RegisterParam{Email: email, Password: password})

		assert.EqualError(t, err, "email already exists")
		mockRepo.AssertNotCalled(t, "CreateMember", mock.Anything, mock.Anything)
	})
}

func TestMemberUseCase_Login(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	password := "!!Securepassword111"

	logger.SetNewNop()

	hashed, err := encrypt.HashPassword(password)
	assert.NoError(t, err)

	member := &domain.Member{
		ID:       1,
		MemberID: "m-1",
		Email:    email,
		Username: "bob",
		Password: hashed,
		UserType: "student",
	}

	// **情境 1: 登入成功，建立 session**
	t.Run("成功登入", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRedis := new(MockRedisRepo)

		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(member, nil).Once()
		mockRedis.On("Set", mock.Anything, "m-1", mock.Anything, time.Hour).Return(nil).Once()
		mockRepo.On("UpdateMemberStatus", ctx, mock.MatchedBy(func(m *domain.Member) bool {
			return m.Status == domain.MemberStatusOnLine
		})).Return(nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword, nil, nil, nil)
		token, err := uc.Login(ctx, email, password)

		assert.NoError(t, err)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
		mockRedis.AssertExpectations(t)
	})

	// **情境 2: 密碼錯誤**
	t.Run("密碼錯誤", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(member, nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, nil, nil, nil)
		_, err := uc.Login(ctx, email, "wrong-password")

		assert.Error(t, err)
	})

	// **情境 3: 查無使用者**
	t.Run("查無使用者", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, errors.New("not found")).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, nil, nil, nil)
		_, err := uc.Login(ctx, email, password)

		assert.EqualError(t, err, "user not found")
	})
}

func TestMemberUseCase_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	memberID := "m-1"
	newName := "bobby"

	logger.SetNewNop()

	mockRepo := new(MockMemberRepo)
	mockDir := new(MockDirectoryRepo)
	mockPub := new(MockPubSub)

	update := &domain.ProfileUpdate{Username: &newName}
	mockRepo.On("UpdateProfile", ctx, memberID, update).Return(nil).Once()
	mockRepo.On("FindByMember", ctx, &domain.MemberQuery{MemberID: &memberID}).Return(&domain.Member{
		MemberID: memberID,
		Email:    "test@example.com",
		Username: newName,
		UserType: "student",
	}, nil).Once()
	mockDir.On("Upsert", ctx, mock.MatchedBy(func(e *chatdomain.DirectoryEntry) bool {
		return e.UserID == memberID && e.Username == newName
	})).Return(nil).Once()
	mockPub.On("Publish", ctx, "chat:roster", mock.Anything).Return(nil).Once()

	uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, mockDir, mockPub, nil)
	err := uc.UpdateProfile(ctx, memberID, update)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockDir.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestMemberUseCase_ListDirectory(t *testing.T) {
	ctx := context.Background()
	entries := []chatdomain.DirectoryEntry{
		{UserID: "m-1", Username: "bobby", UserType: "student"},
		{UserID: "m-2", Username: "amy", UserType: "teacher"},
	}

	t.Run("查詢全部目錄", func(t *testing.T) {
		mockDir := new(MockDirectoryRepo)
		mockDir.On("FindAll", ctx).Return(entries, nil).Once()

		uc := NewMemberUseCase(new(MockMemberRepo), time.Hour, new(MockRedisRepo), encrypt.HashPassword, mockDir, nil, nil)
		got, err := uc.ListDirectory(ctx, "")

		assert.NoError(t, err)
		assert.Equal(t, entries, got)
		mockDir.AssertExpectations(t)
	})

	t.Run("依 user_type 過濾", func(t *testing.T) {
		mockDir := new(MockDirectoryRepo)
		mockDir.On("FindByUserType", ctx, "teacher").Return(entries[1:], nil).Once()

		uc := NewMemberUseCase(new(MockMemberRepo), time.Hour, new(MockRedisRepo), encrypt.HashPassword, mockDir, nil, nil)
		got, err := uc.ListDirectory(ctx, "teacher")

		assert.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, "amy", got[0].Username)
		mockDir.AssertExpectations(t)
	})
}

func TestMemberUseCase_UploadProfileImage(t *testing.T) {
	ctx := context.Background()
	memberID := "m-1"

	logger.SetNewNop()

	mockRepo := new(MockMemberRepo)
	mockDir := new(MockDirectoryRepo)
	mockPub := new(MockPubSub)
	mockImages := new(MockImageStore)

	body := bytes.NewReader([]byte("fake image bytes"))
	mockImages.On("UploadObject", ctx, "profile/m-1/avatar.png", body, int64(16), "image/png").Return(nil).Once()
	mockImages.On("PresignGetURL", ctx, "profile/m-1/avatar.png", 24*time.Hour).Return("https://minio/avatar.png", nil).Once()

	mockRepo.On("UpdateProfile", ctx, memberID, mock.MatchedBy(func(u *domain.ProfileUpdate) bool {
		return u.ProfileImage != nil && *u.ProfileImage == "https://minio/avatar.png"
	})).Return(nil).Once()
	mockRepo.On("FindByMember", ctx, &domain.MemberQuery{MemberID: &memberID}).Return(&domain.Member{
		MemberID: memberID,
		Username: "bob",
	}, nil).Once()
	mockDir.On("Upsert", ctx, mock.Anything).Return(nil).Once()
	mockPub.On("Publish", ctx, "chat:roster", mock.Anything).Return(nil).Once()

	uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword, mockDir, mockPub, mockImages)
	url, err := uc.UploadProfileImage(ctx, memberID, "avatar.png", body, 16, "image/png")

	assert.NoError(t, err)
	assert.Equal(t, "https://minio/avatar.png", url)
	mockImages.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestMemberUseCase_Logout(t *testing.T) {
	ctx := context.Background()

	logger.SetNewNop()

	mockRepo := new(MockMemberRepo)
	mockRedis := new(MockRedisRepo)

	uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword, nil, nil, nil)

	// 先用 Login 流程以外的方式取得合法 token
	t.Run("無效 token", func(t *testing.T) {
		err := uc.Logout(ctx, "not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("成功登出", func(t *testing.T) {
		tok := mustToken(t, "m-1", "student")
		mockRedis.On("Del", mock.Anything, "m-1").Return(nil).Once()
		mockRepo.On("UpdateMemberStatus", ctx, mock.MatchedBy(func(m *domain.Member) bool {
			return m.MemberID == "m-1" && m.Status == domain.MemberStatusOffLine
		})).Return(nil).Once()

		err := uc.Logout(ctx, tok)
		assert.NoError(t, err)
		mockRedis.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})
}

func TestMemberUseCase_CheckSessionTimeout(t *testing.T) {
	ctx := context.Background()

	logger.SetNewNop()

	mockRedis := new(MockRedisRepo)
	uc := NewMemberUseCase(new(MockMemberRepo), time.Hour, mockRedis, encrypt.HashPassword, nil, nil, nil)

	tok := mustToken(t, "m-1", "student")

	t.Run("session 還有效", func(t *testing.T) {
		mockRedis.On("GetTTL", mock.Anything, "m-1").Return(10*time.Minute, nil).Once()
		expired, err := uc.CheckSessionTimeout(ctx, tok)
		assert.NoError(t, err)
		assert.False(t, expired)
	})

	t.Run("session 已逾時", func(t *testing.T) {
		mockRedis.On("GetTTL", mock.Anything, "m-1").Return(time.Duration(-1), nil).Once()
		expired, err := uc.CheckSessionTimeout(ctx, tok)
		assert.NoError(t, err)
		assert.True(t, expired)
	})
}
