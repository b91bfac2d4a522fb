package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/villagehub/chatcore/internal/domain"
)

type MessageService struct {
	msgRepo MessageRepoIn
	members MemberRepoIn
	typing  TypingRepoIn
	conn    EventProducerIn
	timeout time.Duration
}

func NewMessageService(msgRepo MessageRepoIn, members MemberRepoIn, typing TypingRepoIn, conn EventProducerIn, timeout time.Duration) MessageServiceIn {
	return &MessageService{
		msgRepo: msgRepo,
		members: members,
		typing:  typing,
		conn:    conn,
		timeout: timeout,
	}
}

// Send appends to the pair's channel and fans out to both room summaries.
// Empty or whitespace-only text is silently ignored: the returned message is
// nil and nothing is written.
func (ms *MessageService) Send(ctx context.Context, self domain.Identity, in *SendMessageInput) (*domain.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	counterpart, err := ms.resolveCounterpart(ctx, self, in.CounterpartID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:            uuid.NewString(),
		ChannelID:     domain.ChannelID(self.ID, counterpart.ID),
		SenderID:      self.ID,
		ReceiverID:    counterpart.ID,
		Text:          text,
		SentAt:        time.Now(),
		DeliveryState: domain.StateSent,
	}

	senderRoom := domain.RoomFromMessage(self.ID, counterpart, text, msg.SentAt)
	receiverRoom := domain.RoomFromMessage(counterpart.ID, self, text, msg.SentAt)

	seq, err := ms.msgRepo.AppendMessage(ctx, msg, senderRoom, receiverRoom)
	if err != nil {
		slog.Error("Failed to append message",
			"sender_id", self.ID,
			"channel_id", msg.ChannelID,
			"error", err,
		)
		return nil, err
	}
	msg.Seq = seq

	ms.clearTyping(ctx, msg.ChannelID, self.ID, counterpart.ID)

	ms.produce(ctx, counterpart.ID, domain.NewMessageType, msg)
	ms.produce(ctx, counterpart.ID, domain.RoomUpdateType, receiverRoom)
	ms.produce(ctx, self.ID, domain.RoomUpdateType, senderRoom)

	slog.Info("Message sent", "message_id", msg.ID, "channel_id", msg.ChannelID)
	return msg, nil
}

func (ms *MessageService) History(ctx context.Context, self domain.Identity, counterpartID string, cursor *int64) ([]domain.Message, *int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	if self.IsGuest() && counterpartID != domain.HelplineID {
		return nil, nil, false, domain.ErrGuestForbidden
	}

	channelID := domain.ChannelID(self.ID, counterpartID)
	return ms.msgRepo.PaginateChannelMessages(ctx, channelID, cursor)
}

// resolveCounterpart maps a raw id onto a full identity. Guests can only
// reach the helpline; only the helpline can reach guests. Everything else is
// a member directory lookup, so sends to unknown ids fail fast.
func (ms *MessageService) resolveCounterpart(ctx context.Context, self domain.Identity, counterpartID string) (domain.Identity, error) {
	if self.IsGuest() && counterpartID != domain.HelplineID {
		return domain.Identity{}, domain.ErrGuestForbidden
	}

	if counterpartID == domain.HelplineID {
		return domain.Helpline(), nil
	}

	if domain.IsGuestID(counterpartID) {
		if !self.IsHelpline() {
			return domain.Identity{}, domain.ErrGuestForbidden
		}
		return domain.NewGuest(strings.TrimPrefix(counterpartID, domain.GuestIDPrefix)), nil
	}

	member, err := ms.members.GetMember(ctx, counterpartID)
	if err != nil {
		return domain.Identity{}, err
	}
	return member.Identity(), nil
}

// clearTyping is a best-effort side effect of sending; failures are logged
// and dropped.
func (ms *MessageService) clearTyping(ctx context.Context, channelID, senderID, counterpartID string) {
	backoff := retry.WithMaxRetries(2, retry.NewConstant(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ms.typing.Set(ctx, channelID, senderID, false); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to clear typing flag", "channel_id", channelID, "error", err)
		return
	}

	ms.produce(ctx, counterpartID, domain.TypingType, &TypingEvent{
		ChannelID: channelID,
		SenderID:  senderID,
	})
}

func (ms *MessageService) produce(ctx context.Context, toID string, eventType domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	if err := ms.conn.Produce(ctx, toID, &domain.Event{Type: eventType, Data: data}); err != nil {
		slog.Error("Failed to produce event", "to_id", toID, "type", eventType, "error", err)
	}
}
