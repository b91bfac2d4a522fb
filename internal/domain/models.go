package domain

import (
	"strings"
	"time"
)

const (
	HelplineID   = "HELPLINE"
	HelplineName = "Helpline"

	GuestIDPrefix = "GUEST-"
)

type IdentityKind string

const (
	MemberKind   IdentityKind = "MEMBER"
	GuestKind    IdentityKind = "GUEST"
	HelplineKind IdentityKind = "HELPLINE"
)

// Identity is the acting party of a chat session: a registered member,
// an anonymous guest minted from a local token, or the helpline itself.
type Identity struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	AvatarRef   string       `json:"avatar_ref,omitempty"`
	Kind        IdentityKind `json:"kind"`
	IsOfficial  bool         `json:"is_official"`
	Verified    bool         `json:"verified"`
}

func (i Identity) IsGuest() bool {
	return i.Kind == GuestKind
}

func (i Identity) IsHelpline() bool {
	return i.Kind == HelplineKind
}

func NewGuest(token string) Identity {
	return Identity{
		ID:          GuestIDPrefix + token,
		DisplayName: "Guest " + token,
		Kind:        GuestKind,
	}
}

func Helpline() Identity {
	return Identity{
		ID:          HelplineID,
		DisplayName: HelplineName,
		Kind:        HelplineKind,
		IsOfficial:  true,
		Verified:    true,
	}
}

func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// Member is a row of the read-only member directory mirror. The chat core
// never writes to this collection.
type Member struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty" db:"avatar_ref"`
	Location    string `json:"location,omitempty" db:"location"`
	Verified    bool   `json:"verified" db:"verified"`
}

func (m Member) Identity() Identity {
	return Identity{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		AvatarRef:   m.AvatarRef,
		Kind:        MemberKind,
		Verified:    m.Verified,
	}
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

type PresenceRecord struct {
	Status       PresenceStatus `json:"status"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

type DeliveryState string

const (
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateSeen      DeliveryState = "seen"
)

// Message is immutable once created. Seq is assigned by the store and breaks
// sent_at ties with insertion order.
type Message struct {
	ID            string        `json:"id" db:"id"`
	Seq           int64         `json:"seq" db:"seq"`
	ChannelID     string        `json:"channel_id" db:"channel_id"`
	SenderID      string        `json:"sender_id" db:"sender_id"`
	ReceiverID    string        `json:"receiver_id" db:"receiver_id"`
	Text          string        `json:"text" db:"text"`
	SentAt        time.Time     `json:"sent_at" db:"sent_at"`
	DeliveryState DeliveryState `json:"delivery_state" db:"delivery_state"`
}

// RoomSummary is the per-owner denormalized conversation preview. Two records
// exist per conversation, one owned by each participant; the verified badge is
// joined in at read time, never stored.
type RoomSummary struct {
	OwnerID              string    `json:"-" db:"owner_id"`
	CounterpartID        string    `json:"counterpart_id" db:"counterpart_id"`
	CounterpartName      string    `json:"counterpart_name" db:"counterpart_name"`
	CounterpartAvatarRef string    `json:"counterpart_avatar_ref,omitempty" db:"counterpart_avatar_ref"`
	LastMessageText      string    `json:"last_message_text" db:"last_message_text"`
	LastMessageAt        time.Time `json:"last_message_at" db:"last_message_at"`
	UnseenCount          int       `json:"unseen_count" db:"unseen_count"`
	Verified             bool      `json:"verified" db:"verified"`
}

// RoomFromMessage normalizes a summary created by message activity.
func RoomFromMessage(ownerID string, counterpart Identity, text string, at time.Time) RoomSummary {
	return RoomSummary{
		OwnerID:              ownerID,
		CounterpartID:        counterpart.ID,
		CounterpartName:      counterpart.DisplayName,
		CounterpartAvatarRef: counterpart.AvatarRef,
		LastMessageText:      text,
		LastMessageAt:        at,
	}
}

// RoomFromFriendship normalizes a summary for a confirmed friend with no
// activity yet: empty preview, zero unseen, epoch-zero timestamp so it sorts
// after every active conversation.
func RoomFromFriendship(ownerID string, friend Member) RoomSummary {
	return RoomSummary{
		OwnerID:              ownerID,
		CounterpartID:        friend.ID,
		CounterpartName:      friend.DisplayName,
		CounterpartAvatarRef: friend.AvatarRef,
		LastMessageAt:        time.Unix(0, 0).UTC(),
		Verified:             friend.Verified,
	}
}

type FriendRequest struct {
	SenderID        string    `json:"sender_id" db:"sender_id"`
	ReceiverID      string    `json:"receiver_id" db:"receiver_id"`
	SenderName      string    `json:"sender_name" db:"sender_name"`
	SenderAvatarRef string    `json:"sender_avatar_ref,omitempty" db:"sender_avatar_ref"`
	SenderLocation  string    `json:"sender_location,omitempty" db:"sender_location"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ChannelID derives the stable identifier for the unordered participant pair:
// the two ids sorted lexicographically and joined, so ChannelID(a, b) ==
// ChannelID(b, a).
func ChannelID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}
