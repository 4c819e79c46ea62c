package domain

import (
	"time"

	"learning_chat_service/pkg/encrypt"
)

// MemberStatus 用來表示使用者狀態
type MemberStatus int

// 状态: 0=offline, 1=online, 2=ban ,3=delete
const (
	// MemberStatusOffLine 用來表示使用者狀態為離線
	MemberStatusOffLine MemberStatus = iota
	// MemberStatusOnLine 用來表示使用者狀態為上線
	MemberStatusOnLine
	// MemberStatusBan 用來表示使用者狀態為封鎖
	MemberStatusBan
	// MemberStatusDelete 用來表示使用者狀態為刪除
	MemberStatusDelete
)

// Member 用來表示使用者
type Member struct {
	ID           int64
	MemberID     string
	Email        string
	Username     string
	Phone        string
	ProfileImage string
	Password     string
	UserType     string
	Status       MemberStatus
	CreatedAt    time.Time
}

// MemberSession 用來表示使用者的 Session
type MemberSession struct {
	Token        string    `json:"Token"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsPasswordMatch 密碼驗證
func (m *Member) IsPasswordMatch(inputPwd string) error {
	err := encrypt.CheckPassword(m.Password, inputPwd)
	return err
}

// IsExpired 檢查 Session 是否已過期
func (s *MemberSession) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}

// MemberQuery join conditions are used to query members
type MemberQuery struct {
	ID       *int64  `db:"id"`
	MemberID *string `db:"member_id"`
	Email    *string `db:"email"`
	Username *string `db:"username"`
}

// ProfileUpdate 個人資料的部分更新，nil 欄位保持原值
type ProfileUpdate struct {
	Username     *string
	Phone        *string
	ProfileImage *string
}
