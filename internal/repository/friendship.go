package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/villagehub/chatcore/internal/domain"
)

type FriendshipRepo struct {
	db *sqlx.DB
}

func NewFriendshipRepo(db *sqlx.DB) *FriendshipRepo {
	return &FriendshipRepo{
		db: db,
	}
}

func (fr *FriendshipRepo) AreFriends(ctx context.Context, ownerID, otherID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM friend_edges
			WHERE owner_id = $1 AND other_id = $2
		);
	`

	var exists bool
	err := fr.db.QueryRowContext(ctx, query, ownerID, otherID).Scan(&exists)
	return exists, err
}

func (fr *FriendshipRepo) HasPendingRequest(ctx context.Context, senderID, receiverID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM friend_requests
			WHERE sender_id = $1 AND receiver_id = $2
		);
	`

	var exists bool
	err := fr.db.QueryRowContext(ctx, query, senderID, receiverID).Scan(&exists)
	return exists, err
}

// CreateRequest is an idempotent upsert: a racing duplicate send leaves one
// bookkeeping entry, not an error.
func (fr *FriendshipRepo) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (
			sender_id,
			receiver_id,
			sender_name,
			sender_avatar_ref,
			sender_location,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (sender_id, receiver_id) DO NOTHING;
	`

	_, err := fr.db.ExecContext(ctx, query,
		req.SenderID, req.ReceiverID, req.SenderName, req.SenderAvatarRef, req.SenderLocation)
	return err
}

// Accept promotes the request to edges on both sides and clears the
// bookkeeping entries in one transaction, so no partial accept state is
// observable. Requests in both directions are cleared to cover the
// mutual-request case.
func (fr *FriendshipRepo) Accept(ctx context.Context, senderID, receiverID string) error {
	tx, err := fr.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO friend_edges (owner_id, other_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (owner_id, other_id) DO NOTHING;
	`

	if _, err = tx.ExecContext(ctx, query, senderID, receiverID); err != nil {
		return err
	}

	query = `
		DELETE FROM friend_requests
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1);
	`

	if _, err = tx.ExecContext(ctx, query, senderID, receiverID); err != nil {
		return err
	}

	return tx.Commit()
}

func (fr *FriendshipRepo) Reject(ctx context.Context, senderID, receiverID string) error {
	query := `
		DELETE FROM friend_requests
		WHERE sender_id = $1 AND receiver_id = $2;
	`

	_, err := fr.db.ExecContext(ctx, query, senderID, receiverID)
	return err
}

// Unfriend removes both edges only. Messages and room summaries are left
// intact: an unfriended conversation stays listed and sendable.
func (fr *FriendshipRepo) Unfriend(ctx context.Context, ownerID, otherID string) error {
	query := `
		DELETE FROM friend_edges
		WHERE (owner_id = $1 AND other_id = $2)
		   OR (owner_id = $2 AND other_id = $1);
	`

	_, err := fr.db.ExecContext(ctx, query, ownerID, otherID)
	return err
}

func (fr *FriendshipRepo) ListFriends(ctx context.Context, ownerID string) ([]domain.Member, error) {
	query := `
		SELECT m.id, m.display_name, m.avatar_ref, m.location, m.verified
		FROM friend_edges f
		JOIN members m ON m.id = f.other_id
		WHERE f.owner_id = $1
		ORDER BY m.display_name;
	`

	var friends []domain.Member
	err := fr.db.SelectContext(ctx, &friends, query, ownerID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return friends, nil
}

func (fr *FriendshipRepo) ListIncoming(ctx context.Context, receiverID string) ([]domain.FriendRequest, error) {
	query := `
		SELECT sender_id, receiver_id, sender_name, sender_avatar_ref, sender_location, created_at
		FROM friend_requests
		WHERE receiver_id = $1
		ORDER BY created_at DESC;
	`

	var requests []domain.FriendRequest
	err := fr.db.SelectContext(ctx, &requests, query, receiverID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return requests, nil
}

func (fr *FriendshipRepo) ListOutgoing(ctx context.Context, senderID string) ([]domain.FriendRequest, error) {
	query := `
		SELECT sender_id, receiver_id, sender_name, sender_avatar_ref, sender_location, created_at
		FROM friend_requests
		WHERE sender_id = $1
		ORDER BY created_at DESC;
	`

	var requests []domain.FriendRequest
	err := fr.db.SelectContext(ctx, &requests, query, senderID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return requests, nil
}
