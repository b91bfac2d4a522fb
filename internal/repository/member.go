package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/villagehub/chatcore/internal/domain"
)

// MemberRepo reads the member directory mirror. The chat core never writes
// to this collection.
type MemberRepo struct {
	db *sqlx.DB
}

func NewMemberRepo(db *sqlx.DB) *MemberRepo {
	return &MemberRepo{
		db: db,
	}
}

func (mr *MemberRepo) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	query := `
		SELECT id, display_name, avatar_ref, location, verified
		FROM members
		WHERE id = $1;
	`

	var member domain.Member
	err := mr.db.GetContext(ctx, &member, query, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (mr *MemberRepo) SearchMembers(ctx context.Context, search string) ([]domain.Member, error) {
	query := `
		SELECT id, display_name, avatar_ref, location, verified
		FROM members
		WHERE display_name ILIKE '%' || $1 || '%'
		   OR location ILIKE '%' || $1 || '%'
		ORDER BY display_name
		LIMIT 50;
	`

	var members []domain.Member
	err := mr.db.SelectContext(ctx, &members, query, search)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return members, nil
}
