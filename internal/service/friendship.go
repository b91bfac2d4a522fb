package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/villagehub/chatcore/internal/domain"
)

type FriendshipService struct {
	friends FriendshipRepoIn
	members MemberRepoIn
	conn    EventProducerIn
	timeout time.Duration
}

func NewFriendshipService(friends FriendshipRepoIn, members MemberRepoIn, conn EventProducerIn, timeout time.Duration) FriendshipServiceIn {
	return &FriendshipService{
		friends: friends,
		members: members,
		conn:    conn,
		timeout: timeout,
	}
}

// SendRequest records the outgoing intent and the addressable invitation.
// Sending to yourself or to the helpline is a silent no-op; the helpline
// bypasses friendship entirely. When the target already has a pending request
// going the other way, mutual intent is unambiguous and the pair is promoted
// straight to friends.
func (fs *FriendshipService) SendRequest(ctx context.Context, self domain.Identity, targetID string) error {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	if targetID == self.ID || targetID == domain.HelplineID {
		return nil
	}

	if self.IsGuest() || domain.IsGuestID(targetID) {
		return domain.ErrGuestForbidden
	}

	areFriends, err := fs.friends.AreFriends(ctx, self.ID, targetID)
	if err != nil {
		return err
	}
	if areFriends {
		return domain.ErrAlreadyFriends
	}

	target, err := fs.members.GetMember(ctx, targetID)
	if err != nil {
		return err
	}

	reverse, err := fs.friends.HasPendingRequest(ctx, targetID, self.ID)
	if err != nil {
		return err
	}
	if reverse {
		if err := fs.friends.Accept(ctx, targetID, self.ID); err != nil {
			return err
		}
		fs.produceAccepted(ctx, self.ID, target.ID, target.DisplayName)
		fs.produceAccepted(ctx, target.ID, self.ID, self.DisplayName)

		slog.Info("Mutual friend requests auto-accepted", "user_id", self.ID, "friend_id", targetID)
		return nil
	}

	sender, err := fs.members.GetMember(ctx, self.ID)
	if err != nil {
		return err
	}

	request := &domain.FriendRequest{
		SenderID:        sender.ID,
		ReceiverID:      target.ID,
		SenderName:      sender.DisplayName,
		SenderAvatarRef: sender.AvatarRef,
		SenderLocation:  sender.Location,
		CreatedAt:       time.Now(),
	}

	if err := fs.friends.CreateRequest(ctx, request); err != nil {
		return err
	}

	fs.produce(ctx, target.ID, domain.FriendRequestType, request)

	slog.Info("Friend request sent", "sender_id", self.ID, "receiver_id", targetID)
	return nil
}

func (fs *FriendshipService) AcceptRequest(ctx context.Context, self domain.Identity, senderID string) error {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	pending, err := fs.friends.HasPendingRequest(ctx, senderID, self.ID)
	if err != nil {
		return err
	}
	if !pending {
		return domain.ErrRequestNotFound
	}

	if err := fs.friends.Accept(ctx, senderID, self.ID); err != nil {
		return err
	}

	sender, err := fs.members.GetMember(ctx, senderID)
	senderName := senderID
	if err == nil {
		senderName = sender.DisplayName
	}

	fs.produceAccepted(ctx, self.ID, senderID, senderName)
	fs.produceAccepted(ctx, senderID, self.ID, self.DisplayName)

	slog.Info("Friend request accepted", "user_id", self.ID, "friend_id", senderID)
	return nil
}

func (fs *FriendshipService) RejectRequest(ctx context.Context, self domain.Identity, senderID string) error {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	pending, err := fs.friends.HasPendingRequest(ctx, senderID, self.ID)
	if err != nil {
		return err
	}
	if !pending {
		return domain.ErrRequestNotFound
	}

	return fs.friends.Reject(ctx, senderID, self.ID)
}

// Unfriend removes the edges on both sides only. Message history and room
// summaries stay; the conversation remains listed and sendable.
func (fs *FriendshipService) Unfriend(ctx context.Context, self domain.Identity, otherID string) error {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	if err := fs.friends.Unfriend(ctx, self.ID, otherID); err != nil {
		return err
	}

	fs.produce(ctx, otherID, domain.FriendRemovedType, &FriendRemovedEvent{FriendID: self.ID})

	slog.Info("Unfriended", "user_id", self.ID, "friend_id", otherID)
	return nil
}

func (fs *FriendshipService) Friends(ctx context.Context, self domain.Identity) ([]domain.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	return fs.friends.ListFriends(ctx, self.ID)
}

func (fs *FriendshipService) IncomingRequests(ctx context.Context, self domain.Identity) ([]domain.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	return fs.friends.ListIncoming(ctx, self.ID)
}

func (fs *FriendshipService) OutgoingRequests(ctx context.Context, self domain.Identity) ([]domain.FriendRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, fs.timeout)
	defer cancel()

	return fs.friends.ListOutgoing(ctx, self.ID)
}

func (fs *FriendshipService) produceAccepted(ctx context.Context, toID, friendID, friendName string) {
	fs.produce(ctx, toID, domain.FriendAcceptedType, &FriendAcceptedEvent{
		FriendID:   friendID,
		FriendName: friendName,
	})
}

func (fs *FriendshipService) produce(ctx context.Context, toID string, eventType domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal friend event", "type", eventType, "error", err)
		return
	}

	if err := fs.conn.Produce(ctx, toID, &domain.Event{Type: eventType, Data: data}); err != nil {
		slog.Error("Failed to produce friend event", "to_id", toID, "type", eventType, "error", err)
	}
}
