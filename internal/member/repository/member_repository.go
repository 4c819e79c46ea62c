package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"learning_chat_service/internal/member/domain"
)

// MemberRepository definition get Member info
type MemberRepository interface {
	CreateMember(ctx context.Context, member *domain.Member) error
	UpdateMemberStatus(ctx context.Context, member *domain.Member) error
	UpdateProfile(ctx context.Context, memberID string, update *domain.ProfileUpdate) error
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) CreateMember(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO member(member_id, email, username, phone, profile_image, password, user_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		member.MemberID, member.Email, member.Username, member.Phone,
		member.ProfileImage, member.Password, member.UserType, member.CreatedAt,
	)
	return err
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx, "UPDATE member SET status = $1 WHERE member_id = $2", member.Status, member.MemberID)
	return err
}

// UpdateProfile 只更新有帶值的欄位，合併語義
func (r *memberRepository) UpdateProfile(ctx context.Context, memberID string, update *domain.ProfileUpdate) error {
	queryStr := "UPDATE member SET"
	params := []interface{}{}
	paramCount := 1

	if update.Username != nil {
		queryStr += fmt.Sprintf(" username = $%d,", paramCount)
		params = append(params, *update.Username)
		paramCount++
	}
	if update.Phone != nil {
		queryStr += fmt.Sprintf(" phone = $%d,", paramCount)
		params = append(params, *update.Phone)
		paramCount++
	}
	if update.ProfileImage != nil {
		queryStr += fmt.Sprintf(" profile_image = $%d,", paramCount)
		params = append(params, *update.ProfileImage)
		paramCount++
	}
	if len(params) == 0 {
		return nil
	}

	queryStr = queryStr[:len(queryStr)-1] + fmt.Sprintf(" WHERE member_id = $%d", paramCount)
	params = append(params, memberID)

	_, err := r.db.Exec(ctx, queryStr, params...)
	return err
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr := `SELECT id, member_id, email, username, phone, profile_image, password, user_type, created_at
	             FROM member WHERE 1=1`
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *memberQuery.Email)
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.Username != nil {
		queryStr += fmt.Sprintf(" AND username = $%d", paramCount)
		params = append(params, *memberQuery.Username)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var member domain.Member
	err := row.Scan(&member.ID, &member.MemberID, &member.Email, &member.Username,
		&member.Phone, &member.ProfileImage, &member.Password, &member.UserType, &member.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New("no member found with given criteria")
		}
		return nil, err
	}

	return &member, nil
}
