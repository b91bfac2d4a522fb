package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/villagehub/chatcore/internal/domain"
)

type RoomService struct {
	msgRepo  MessageRepoIn
	typing   TypingRepoIn
	presence PresenceRepoIn
	conn     EventProducerIn
	timeout  time.Duration
}

func NewRoomService(msgRepo MessageRepoIn, typing TypingRepoIn, presence PresenceRepoIn, conn EventProducerIn, timeout time.Duration) RoomServiceIn {
	return &RoomService{
		msgRepo:  msgRepo,
		typing:   typing,
		presence: presence,
		conn:     conn,
		timeout:  timeout,
	}
}

// Rooms is the recency-ordered directory view: conversations with activity
// merged with activity-less friends, each annotated with the counterpart's
// current verified badge.
func (rs *RoomService) Rooms(ctx context.Context, self domain.Identity) ([]domain.RoomSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	return rs.msgRepo.ListRooms(ctx, self.ID)
}

// Open resets the caller's own unseen counter, marks the counterpart's
// messages seen and returns the opening snapshot: first history page plus the
// counterpart's live presence and typing state. The counterpart's own unseen
// count is untouched.
func (rs *RoomService) Open(ctx context.Context, self domain.Identity, counterpartID string) (*RoomSnapshotEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	if self.IsGuest() && counterpartID != domain.HelplineID {
		return nil, domain.ErrGuestForbidden
	}

	if err := rs.msgRepo.OpenRoom(ctx, self.ID, counterpartID); err != nil {
		return nil, err
	}

	channelID := domain.ChannelID(self.ID, counterpartID)

	messages, nextCursor, hasMore, err := rs.msgRepo.PaginateChannelMessages(ctx, channelID, nil)
	if err != nil {
		return nil, err
	}

	snapshot := &RoomSnapshotEvent{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}

	if room, err := rs.msgRepo.GetRoom(ctx, self.ID, counterpartID); err == nil {
		snapshot.Room = room
	}

	// Presence and typing are best effort; a blip must not block opening.
	if !domain.IsGuestID(counterpartID) && counterpartID != domain.HelplineID {
		if record, err := rs.presence.Get(ctx, counterpartID); err == nil {
			snapshot.Presence = record
		} else {
			slog.Error("Failed to get presence", "member_id", counterpartID, "error", err)
		}
	}

	// The observed flag is the one written by the party this caller is not.
	if isTyping, err := rs.typing.Get(ctx, channelID, counterpartID); err == nil {
		snapshot.Typing = isTyping
	}

	rs.notifySeen(ctx, channelID, self.ID, counterpartID)

	return snapshot, nil
}

func (rs *RoomService) notifySeen(ctx context.Context, channelID, seenBy, counterpartID string) {
	data, err := json.Marshal(&MessagesSeenEvent{
		ChannelID: channelID,
		SeenBy:    seenBy,
	})
	if err != nil {
		slog.Error("Failed to marshal seen event", "error", err)
		return
	}

	if err := rs.conn.Produce(ctx, counterpartID, &domain.Event{Type: domain.MessagesSeenType, Data: data}); err != nil {
		slog.Error("Failed to produce seen event", "to_id", counterpartID, "error", err)
	}
}
