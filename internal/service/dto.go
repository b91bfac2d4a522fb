package service

import (
	"time"

	"github.com/villagehub/chatcore/internal/domain"
)

// Requests from client
type OpenRoomRequest struct {
	CounterpartID string `json:"counterpart_id"`
}

type SendMessageRequest struct {
	TempMessageID string `json:"temp_message_id"`
	CounterpartID string `json:"counterpart_id"`
	Text          string `json:"text"`
}

type SetTypingRequest struct {
	CounterpartID string `json:"counterpart_id"`
	IsTyping      bool   `json:"is_typing"`
}

// Events for clients
type SessionEvent struct {
	Identity     domain.Identity `json:"identity"`
	GuestToken   string          `json:"guest_token,omitempty"`
	OpenHelpline bool            `json:"open_helpline,omitempty"`
}

type RoomSnapshotEvent struct {
	Room       *domain.RoomSummary    `json:"room,omitempty"`
	Messages   []domain.Message       `json:"messages"`
	NextCursor *int64                 `json:"next_cursor,omitempty"`
	HasMore    bool                   `json:"has_more"`
	Presence   *domain.PresenceRecord `json:"presence,omitempty"`
	Typing     bool                   `json:"typing"`
}

type MessageConfirmedEvent struct {
	TempMessageID string    `json:"temp_message_id"`
	MessageID     string    `json:"message_id"`
	Seq           int64     `json:"seq"`
	SentAt        time.Time `json:"sent_at"`
}

type SendFailedEvent struct {
	TempMessageID string `json:"temp_message_id"`
	Reason        string `json:"reason"`
}

type TypingEvent struct {
	ChannelID string `json:"channel_id"`
	SenderID  string `json:"sender_id"`
	IsTyping  bool   `json:"is_typing"`
}

type PresenceChangeEvent struct {
	MemberID     string                `json:"member_id"`
	Status       domain.PresenceStatus `json:"status"`
	LastActiveAt time.Time             `json:"last_active_at"`
}

type FriendAcceptedEvent struct {
	FriendID   string `json:"friend_id"`
	FriendName string `json:"friend_name"`
}

type FriendRemovedEvent struct {
	FriendID string `json:"friend_id"`
}

type MessagesSeenEvent struct {
	ChannelID string `json:"channel_id"`
	SeenBy    string `json:"seen_by"`
}

// Inputs
type SendMessageInput struct {
	CounterpartID string
	Text          string
}

type ResolveInput struct {
	MemberID     string
	GuestToken   string
	WantHelpline bool
}

type Resolution struct {
	Identity         domain.Identity
	OpenHelpline     bool
	MintedGuestToken string
}
