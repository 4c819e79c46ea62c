package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	chatapp "learning_chat_service/internal/chat/app"
	chatdomain "learning_chat_service/internal/chat/domain"
	chatrepo "learning_chat_service/internal/chat/repository"
	"learning_chat_service/internal/member/domain"
	"learning_chat_service/internal/member/repository"
	"learning_chat_service/pkg/database"
	"learning_chat_service/pkg/logger"
	token "learning_chat_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileImageStore 個人頭像的物件儲存介面，由 MinIO client 實作
type ProfileImageStore interface {
	UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// RegisterParam 註冊所需欄位
type RegisterParam struct {
	Email    string
	Username string
	Phone    string
	Password string
	UserType string
}

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, param RegisterParam) error
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, memberID string) error
	CheckSessionTimeout(ctx context.Context, token string) (bool, error)
	ReconnectSession(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, memberID string, update *domain.ProfileUpdate) error
	UploadProfileImage(ctx context.Context, memberID, fileName string, file io.Reader, size int64, contentType string) (string, error)
	ListDirectory(ctx context.Context, userType string) ([]chatdomain.DirectoryEntry, error)
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionTTL   time.Duration
	redisRepo    database.RedisRepository[domain.MemberSession]
	hashPassword func(string) (string, error)
	directory    chatrepo.DirectoryRepository
	pubsub       chatrepo.PubSub
	images       ProfileImageStore
}

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	hashPassword func(string) (string, error),
	directory chatrepo.DirectoryRepository,
	pubsub chatrepo.PubSub,
	images ProfileImageStore,
) MemberUseCase {
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionTTL:   sessionTTL,
		redisRepo:    redisRepo,
		hashPassword: hashPassword,
		directory:    directory,
		pubsub:       pubsub,
		images:       images,
	}
}

// Register 建立新使用者並同步 chat 目錄投影
func (m *memberUseCase) Register(ctx context.Context, param RegisterParam) error {
	// 檢查 email 是否已存在
	if _, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &param.Email}); err == nil {
		return errors.New("email already exists")
	}

	pw, err := m.hashPassword(param.Password)
	if err != nil {
		logger.Log.Errorf("password err :", err)
		return err
	}

	member := domain.Member{
		MemberID:  uuid.New().String(),
		Email:     param.Email,
		Username:  param.Username,
		Phone:     param.Phone,
		Password:  pw,
		UserType:  param.UserType,
		CreatedAt: time.Now(),
	}

	logger.Log.Info(fmt.Sprintf("usecase Register : %s %s", member.MemberID, member.Email))

	if err := m.memberRepo.CreateMember(ctx, &member); err != nil {
		return err
	}

	return m.syncDirectory(ctx, &member)
}

// FindMember 用query條件來尋找使用者
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login 驗證密碼並建立 session
func (m *memberUseCase) Login(ctx context.Context, email, password string) (string, error) {
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		logger.Log.Error("email can't find!!!")
		return "", errors.New("user not found")
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Error("password can't match!!!")
		return "", err
	}

	member.Status = domain.MemberStatusOnLine

	t, err := token.GenerateJWTWrapper(member.MemberID, member.UserType)
	if err != nil {
		return "", err
	}
	now := time.Now()
	session := domain.MemberSession{
		Token:        t,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}

	m.redisRepo.Set(context.Background(), member.MemberID, session, m.sessionTTL)

	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return "", err
	}

	return t, nil
}

// Logout 清除 session 並更新狀態
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("Logout err :", zap.String("err", err.Error()))
		return err
	}
	logger.Log.Debug("logout", zap.String("member token info", fmt.Sprintf("%v", tokenInfo)))

	m.redisRepo.Del(context.Background(), tokenInfo.UserID)

	if err := m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: tokenInfo.UserID,
		Status:   domain.MemberStatusOffLine,
	}); err != nil {
		return err
	}
	return nil
}

// ForceLogout 直接把該 memberID 下的 session 清除
func (m *memberUseCase) ForceLogout(ctx context.Context, memberID string) error {
	m.redisRepo.Del(context.Background(), memberID)

	if err := m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: memberID,
		Status:   domain.MemberStatusOffLine,
	}); err != nil {
		return err
	}
	return nil
}

// CheckSessionTimeout 檢查 session 是否已逾時
func (m *memberUseCase) CheckSessionTimeout(ctx context.Context, t string) (bool, error) {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("CheckSessionTimeout err :", zap.String("err", err.Error()))
		return true, err
	}

	ttl, err := m.redisRepo.GetTTL(context.Background(), tokenInfo.UserID)
	if err != nil {
		return true, err
	}

	if ttl > 0 {
		return false, nil
	}
	return true, nil
}

// ReconnectSession 使用者重新連線時延長 session
func (m *memberUseCase) ReconnectSession(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("ReconnectSession err :", zap.String("err", err.Error()))
		return err
	}

	m.redisRepo.ExtendTTL(context.Background(), tokenInfo.UserID, m.sessionTTL)

	return nil
}

// UpdateProfile 合併更新個人資料，nil 欄位不動，並同步目錄投影
func (m *memberUseCase) UpdateProfile(ctx context.Context, memberID string, update *domain.ProfileUpdate) error {
	if err := m.memberRepo.UpdateProfile(ctx, memberID, update); err != nil {
		return err
	}

	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		return err
	}
	return m.syncDirectory(ctx, member)
}

// UploadProfileImage 上傳頭像到物件儲存，回傳可存取的 URL
func (m *memberUseCase) UploadProfileImage(ctx context.Context, memberID, fileName string, file io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("profile/%s/%s", memberID, fileName)
	if err := m.images.UploadObject(ctx, objectName, file, size, contentType); err != nil {
		return "", err
	}

	url, err := m.images.PresignGetURL(ctx, objectName, 24*time.Hour)
	if err != nil {
		return "", err
	}

	if err := m.UpdateProfile(ctx, memberID, &domain.ProfileUpdate{ProfileImage: &url}); err != nil {
		return "", err
	}
	return url, nil
}

// ListDirectory 查詢目錄投影，userType 為空時回傳全部
func (m *memberUseCase) ListDirectory(ctx context.Context, userType string) ([]chatdomain.DirectoryEntry, error) {
	if m.directory == nil {
		return nil, errors.New("directory is not configured")
	}
	if userType == "" {
		return m.directory.FindAll(ctx)
	}
	return m.directory.FindByUserType(ctx, userType)
}

// syncDirectory 會員資料異動後更新 mongo 的目錄投影，讓 roster 訂閱者看到
func (m *memberUseCase) syncDirectory(ctx context.Context, member *domain.Member) error {
	if m.directory == nil {
		return nil
	}
	if err := m.directory.Upsert(ctx, &chatdomain.DirectoryEntry{
		UserID:   member.MemberID,
		Username: member.Username,
		Email:    member.Email,
		UserType: member.UserType,
	}); err != nil {
		return err
	}

	if m.pubsub != nil {
		if err := m.pubsub.Publish(ctx, chatapp.RosterChannel(), "changed"); err != nil {
			logger.Log.Warn("failed to publish roster invalidation", zap.Error(err))
		}
	}
	return nil
}
