package domain

import "encoding/json"

type EventType string

const (
	// from client
	OpenRoomType    EventType = "open_room"
	CloseRoomType   EventType = "close_room"
	SendMessageType EventType = "send_message"
	SetTypingType   EventType = "set_typing"

	// to client
	SessionType          EventType = "session"
	RoomSnapshotType     EventType = "room_snapshot"
	NewMessageType       EventType = "new_message"
	MessageConfirmedType EventType = "message_confirmed"
	SendFailedType       EventType = "send_failed"
	TypingType           EventType = "typing"
	PresenceChangeType   EventType = "presence_change"
	FriendRequestType    EventType = "friend_request"
	FriendAcceptedType   EventType = "friend_accepted"
	FriendRemovedType    EventType = "friend_removed"
	RoomUpdateType       EventType = "room_update"
	MessagesSeenType     EventType = "messages_seen"
)

// Event is the envelope carried over the per-identity pub/sub channel and the
// websocket in both directions.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
