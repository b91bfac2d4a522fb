package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/villagehub/chatcore/internal/domain"
)

const messagePageSize = 50

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{
		db: db,
	}
}

// AppendMessage inserts the message and fans out to both room summaries in a
// single transaction. The receiver's unseen counter is bumped inside the
// upsert itself, so concurrent sends from different senders never lose an
// increment.
func (mr *MessageRepo) AppendMessage(ctx context.Context, msg *domain.Message, senderRoom, receiverRoom domain.RoomSummary) (int64, error) {
	tx, err := mr.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (
			id,
			channel_id,
			sender_id,
			receiver_id,
			text,
			sent_at,
			delivery_state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq;
	`

	var seq int64
	err = tx.QueryRowContext(ctx, query,
		msg.ID, msg.ChannelID, msg.SenderID, msg.ReceiverID, msg.Text, msg.SentAt, string(msg.DeliveryState),
	).Scan(&seq)
	if err != nil {
		return 0, err
	}

	senderQuery := `
		INSERT INTO rooms (owner_id, counterpart_id, counterpart_name, counterpart_avatar_ref, last_message_text, last_message_at, unseen_count)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (owner_id, counterpart_id) DO UPDATE SET
			counterpart_name = EXCLUDED.counterpart_name,
			counterpart_avatar_ref = EXCLUDED.counterpart_avatar_ref,
			last_message_text = EXCLUDED.last_message_text,
			last_message_at = EXCLUDED.last_message_at,
			unseen_count = 0;
	`

	_, err = tx.ExecContext(ctx, senderQuery,
		senderRoom.OwnerID, senderRoom.CounterpartID, senderRoom.CounterpartName,
		senderRoom.CounterpartAvatarRef, senderRoom.LastMessageText, senderRoom.LastMessageAt)
	if err != nil {
		return 0, err
	}

	receiverQuery := `
		INSERT INTO rooms (owner_id, counterpart_id, counterpart_name, counterpart_avatar_ref, last_message_text, last_message_at, unseen_count)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		ON CONFLICT (owner_id, counterpart_id) DO UPDATE SET
			counterpart_name = EXCLUDED.counterpart_name,
			counterpart_avatar_ref = EXCLUDED.counterpart_avatar_ref,
			last_message_text = EXCLUDED.last_message_text,
			last_message_at = EXCLUDED.last_message_at,
			unseen_count = rooms.unseen_count + 1;
	`

	_, err = tx.ExecContext(ctx, receiverQuery,
		receiverRoom.OwnerID, receiverRoom.CounterpartID, receiverRoom.CounterpartName,
		receiverRoom.CounterpartAvatarRef, receiverRoom.LastMessageText, receiverRoom.LastMessageAt)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

// PaginateChannelMessages returns one ascending page of the channel log.
// Order is (sent_at, seq), so equal-millisecond sends resolve to insertion
// order.
func (mr *MessageRepo) PaginateChannelMessages(ctx context.Context, channelID string, cursor *int64) ([]domain.Message, *int64, bool, error) {
	var query string
	var err error
	var messages []domain.Message

	if cursor == nil {
		query = `
			SELECT seq, id, channel_id, sender_id, receiver_id, text, sent_at, delivery_state
			FROM messages
			WHERE channel_id = $1
			ORDER BY sent_at, seq
			LIMIT $2;
		`
		err = mr.db.SelectContext(ctx, &messages, query, channelID, messagePageSize+1)
	} else {
		query = `
			SELECT seq, id, channel_id, sender_id, receiver_id, text, sent_at, delivery_state
			FROM messages
			WHERE channel_id = $1 AND seq > $2
			ORDER BY sent_at, seq
			LIMIT $3;
		`
		err = mr.db.SelectContext(ctx, &messages, query, channelID, *cursor, messagePageSize+1)
	}
	if err != nil && err != sql.ErrNoRows {
		return nil, nil, false, err
	}

	hasMore := len(messages) > messagePageSize
	if hasMore {
		messages = messages[:messagePageSize]
	}

	var nextCursor *int64
	if len(messages) > 0 {
		lastSeq := messages[len(messages)-1].Seq
		nextCursor = &lastSeq
	}
	return messages, nextCursor, hasMore, nil
}

// ListRooms merges conversations with activity and confirmed friends without
// any, annotating each with the counterpart's current verified badge from the
// member mirror. Friends without activity carry an epoch-zero timestamp and
// sort last.
func (mr *MessageRepo) ListRooms(ctx context.Context, ownerID string) ([]domain.RoomSummary, error) {
	query := `
		SELECT
			r.owner_id,
			r.counterpart_id,
			r.counterpart_name,
			r.counterpart_avatar_ref,
			r.last_message_text,
			r.last_message_at,
			r.unseen_count,
			COALESCE(m.verified, FALSE) AS verified
		FROM rooms r
		LEFT JOIN members m ON m.id = r.counterpart_id
		WHERE r.owner_id = $1

		UNION ALL

		SELECT
			f.owner_id,
			m.id,
			m.display_name,
			m.avatar_ref,
			''::TEXT,
			to_timestamp(0),
			0,
			m.verified
		FROM friend_edges f
		JOIN members m ON m.id = f.other_id
		WHERE f.owner_id = $1
			AND NOT EXISTS (
				SELECT 1 FROM rooms r2
				WHERE r2.owner_id = $1 AND r2.counterpart_id = f.other_id
			)

		ORDER BY last_message_at DESC;
	`

	var rooms []domain.RoomSummary
	err := mr.db.SelectContext(ctx, &rooms, query, ownerID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	for i := range rooms {
		if rooms[i].CounterpartID == domain.HelplineID {
			rooms[i].Verified = true
		}
	}
	return rooms, nil
}

func (mr *MessageRepo) GetRoom(ctx context.Context, ownerID, counterpartID string) (*domain.RoomSummary, error) {
	query := `
		SELECT owner_id, counterpart_id, counterpart_name, counterpart_avatar_ref,
			last_message_text, last_message_at, unseen_count, FALSE AS verified
		FROM rooms
		WHERE owner_id = $1 AND counterpart_id = $2;
	`

	var room domain.RoomSummary
	err := mr.db.GetContext(ctx, &room, query, ownerID, counterpartID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// OpenRoom resets the caller's own unseen counter and marks the counterpart's
// messages in this channel as seen. The counterpart's summary is untouched.
func (mr *MessageRepo) OpenRoom(ctx context.Context, ownerID, counterpartID string) error {
	tx, err := mr.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE rooms
		SET unseen_count = 0
		WHERE owner_id = $1 AND counterpart_id = $2;
	`

	if _, err = tx.ExecContext(ctx, query, ownerID, counterpartID); err != nil {
		return err
	}

	query = `
		UPDATE messages
		SET delivery_state = $1
		WHERE channel_id = $2 AND receiver_id = $3 AND delivery_state <> $1;
	`

	channelID := domain.ChannelID(ownerID, counterpartID)
	if _, err = tx.ExecContext(ctx, query, string(domain.StateSeen), channelID, ownerID); err != nil {
		return err
	}

	return tx.Commit()
}

func (mr *MessageRepo) UpdateMessageState(ctx context.Context, messageID string, state domain.DeliveryState) error {
	query := `
		UPDATE messages
		SET delivery_state = $1
		WHERE id = $2;
	`

	_, err := mr.db.ExecContext(ctx, query, string(state), messageID)
	return err
}

// MarkDelivered flips every pending message addressed to the identity from
// sent to delivered. Called when a session attaches.
func (mr *MessageRepo) MarkDelivered(ctx context.Context, receiverID string) error {
	query := `
		UPDATE messages
		SET delivery_state = $1
		WHERE receiver_id = $2 AND delivery_state = $3;
	`

	_, err := mr.db.ExecContext(ctx, query, string(domain.StateDelivered), receiverID, string(domain.StateSent))
	return err
}
