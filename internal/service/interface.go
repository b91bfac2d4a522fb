package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/villagehub/chatcore/internal/domain"
)

type FriendshipRepoIn interface {
	AreFriends(ctx context.Context, ownerID, otherID string) (bool, error)
	HasPendingRequest(ctx context.Context, senderID, receiverID string) (bool, error)
	CreateRequest(ctx context.Context, req *domain.FriendRequest) error
	Accept(ctx context.Context, senderID, receiverID string) error
	Reject(ctx context.Context, senderID, receiverID string) error
	Unfriend(ctx context.Context, ownerID, otherID string) error
	ListFriends(ctx context.Context, ownerID string) ([]domain.Member, error)
	ListIncoming(ctx context.Context, receiverID string) ([]domain.FriendRequest, error)
	ListOutgoing(ctx context.Context, senderID string) ([]domain.FriendRequest, error)
}

type MessageRepoIn interface {
	AppendMessage(ctx context.Context, msg *domain.Message, senderRoom, receiverRoom domain.RoomSummary) (int64, error)
	PaginateChannelMessages(ctx context.Context, channelID string, cursor *int64) ([]domain.Message, *int64, bool, error)
	UpdateMessageState(ctx context.Context, messageID string, state domain.DeliveryState) error
	ListRooms(ctx context.Context, ownerID string) ([]domain.RoomSummary, error)
	GetRoom(ctx context.Context, ownerID, counterpartID string) (*domain.RoomSummary, error)
	OpenRoom(ctx context.Context, ownerID, counterpartID string) error
	MarkDelivered(ctx context.Context, receiverID string) error
}

type MemberRepoIn interface {
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	SearchMembers(ctx context.Context, search string) ([]domain.Member, error)
}

type PresenceRepoIn interface {
	SetStatus(ctx context.Context, memberID string, status domain.PresenceStatus) error
	Get(ctx context.Context, memberID string) (*domain.PresenceRecord, error)
}

type TypingRepoIn interface {
	Set(ctx context.Context, channelID, senderID string, isTyping bool) error
	Get(ctx context.Context, channelID, senderID string) (bool, error)
}

type EventProducerIn interface {
	Produce(ctx context.Context, identityID string, evt *domain.Event) error
}

type ConnectionRepoIn interface {
	EventProducerIn
	Subscribe(ctx context.Context, identityID string) *redis.PubSub
}

type IdentityServiceIn interface {
	Resolve(ctx context.Context, in *ResolveInput) (*Resolution, error)
}

type FriendshipServiceIn interface {
	SendRequest(ctx context.Context, self domain.Identity, targetID string) error
	AcceptRequest(ctx context.Context, self domain.Identity, senderID string) error
	RejectRequest(ctx context.Context, self domain.Identity, senderID string) error
	Unfriend(ctx context.Context, self domain.Identity, otherID string) error
	Friends(ctx context.Context, self domain.Identity) ([]domain.Member, error)
	IncomingRequests(ctx context.Context, self domain.Identity) ([]domain.FriendRequest, error)
	OutgoingRequests(ctx context.Context, self domain.Identity) ([]domain.FriendRequest, error)
}

type RoomServiceIn interface {
	Rooms(ctx context.Context, self domain.Identity) ([]domain.RoomSummary, error)
	Open(ctx context.Context, self domain.Identity, counterpartID string) (*RoomSnapshotEvent, error)
}

type MessageServiceIn interface {
	Send(ctx context.Context, self domain.Identity, in *SendMessageInput) (*domain.Message, error)
	History(ctx context.Context, self domain.Identity, counterpartID string, cursor *int64) ([]domain.Message, *int64, bool, error)
}

type TypingServiceIn interface {
	SetTyping(ctx context.Context, self domain.Identity, counterpartID string, isTyping bool)
}

type SessionServiceIn interface {
	HandleConn(ctx context.Context, client *Client, res *Resolution)
}
