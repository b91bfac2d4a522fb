package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/villagehub/chatcore/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 10 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// SessionService is the per-connection state machine. A session is idle until
// open_room subscribes it to one pair's channel and typing feed; close_room,
// opening another room, or disconnecting tears that subscription down as one
// unit. The underlying pub/sub stream stays attached for the whole
// connection; the active-channel filter in the write pump is the
// subscription set.
type SessionService struct {
	rooms    RoomServiceIn
	messages MessageServiceIn
	typing   TypingServiceIn
	presence PresenceRepoIn
	friends  FriendshipRepoIn
	msgRepo  MessageRepoIn
	connRepo ConnectionRepoIn
}

func NewSessionService(
	rooms RoomServiceIn,
	messages MessageServiceIn,
	typing TypingServiceIn,
	presence PresenceRepoIn,
	friends FriendshipRepoIn,
	msgRepo MessageRepoIn,
	connRepo ConnectionRepoIn,
) SessionServiceIn {
	return &SessionService{
		rooms:    rooms,
		messages: messages,
		typing:   typing,
		presence: presence,
		friends:  friends,
		msgRepo:  msgRepo,
		connRepo: connRepo,
	}
}

func (ss *SessionService) HandleConn(ctx context.Context, client *Client, res *Resolution) {
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		if client.identity.Kind == domain.MemberKind {
			if err := ss.presence.SetStatus(ctx, client.identity.ID, domain.StatusOnline); err != nil {
				slog.Error("Failed to touch presence", "member_id", client.identity.ID, "error", err)
			}
		}
		return nil
	})

	if client.identity.Kind == domain.MemberKind {
		if err := ss.msgRepo.MarkDelivered(ctx, client.identity.ID); err != nil {
			slog.Error("Failed to mark pending messages delivered", "identity_id", client.identity.ID, "error", err)
		}
		ss.broadcastPresence(ctx, client.identity.ID, domain.StatusOnline)
	}

	pubSub := ss.connRepo.Subscribe(ctx, client.identity.ID)
	client.outboard = pubSub.Channel()

	defer func() {
		client.hub.unregister <- client
		client.conn.Close()
		pubSub.Close()
		client.clearActive()

		if client.identity.Kind == domain.MemberKind {
			if err := ss.presence.SetStatus(context.Background(), client.identity.ID, domain.StatusOffline); err != nil {
				slog.Error("Failed to set presence offline", "member_id", client.identity.ID, "error", err)
			}
			ss.broadcastPresence(context.Background(), client.identity.ID, domain.StatusOffline)
		}
	}()

	ss.sendSession(client, res)

	if res.OpenHelpline {
		ss.handleOpenRoom(ctx, client, &OpenRoomRequest{CounterpartID: domain.HelplineID})
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ss.read(ctx, client)
	})

	g.Go(func() error {
		return ss.write(ctx, client)
	})

	err := g.Wait()
	if err != nil && err != context.Canceled {
		slog.Error("Error during handle conn", "error", err)
	}
}

// sendSession runs before the pumps start, so writing to the conn directly is
// safe here and nowhere else outside the write pump.
func (ss *SessionService) sendSession(client *Client, res *Resolution) {
	data, err := json.Marshal(&SessionEvent{
		Identity:     client.identity,
		GuestToken:   res.MintedGuestToken,
		OpenHelpline: res.OpenHelpline,
	})
	if err != nil {
		slog.Error("Failed to marshal session event", "error", err)
		return
	}

	client.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.conn.WriteJSON(&domain.Event{Type: domain.SessionType, Data: data}); err != nil {
		slog.Error("Failed to write session event", "error", err)
	}
}

func (ss *SessionService) read(ctx context.Context, client *Client) error {
	client.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			var evt domain.Event
			if err := client.conn.ReadJSON(&evt); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNoStatusReceived,
					websocket.CloseNormalClosure) {
					slog.Error("Websocket close error", "error", err)
				}
				return context.Canceled
			}

			switch evt.Type {
			case domain.OpenRoomType:
				var in OpenRoomRequest
				if err := json.Unmarshal(evt.Data, &in); err != nil {
					slog.Error("Failed to unmarshal OpenRoomRequest", "error", err)
					continue
				}
				ss.handleOpenRoom(ctx, client, &in)

			case domain.CloseRoomType:
				client.clearActive()

			case domain.SendMessageType:
				var in SendMessageRequest
				if err := json.Unmarshal(evt.Data, &in); err != nil {
					slog.Error("Failed to unmarshal SendMessageRequest", "error", err)
					continue
				}
				ss.handleSendMessage(ctx, client, &in)

			case domain.SetTypingType:
				var in SetTypingRequest
				if err := json.Unmarshal(evt.Data, &in); err != nil {
					slog.Error("Failed to unmarshal SetTypingRequest", "error", err)
					continue
				}
				ss.typing.SetTyping(ctx, client.identity, in.CounterpartID, in.IsTyping)

			default:
				slog.Warn("Unknown event type", "type", evt.Type)
			}
		}
	}
}

func (ss *SessionService) handleOpenRoom(ctx context.Context, client *Client, in *OpenRoomRequest) {
	snapshot, err := ss.rooms.Open(ctx, client.identity, in.CounterpartID)
	if err != nil {
		slog.Error("Failed to open room",
			"identity_id", client.identity.ID,
			"counterpart_id", in.CounterpartID,
			"error", err,
		)
		return
	}

	client.setActive(domain.ChannelID(client.identity.ID, in.CounterpartID))

	ss.produceToSelf(ctx, client, domain.RoomSnapshotType, snapshot)
}

// handleSendMessage is the two-phase send: the client keeps its draft until
// message_confirmed echoes the temp id back, and restores it on send_failed.
func (ss *SessionService) handleSendMessage(ctx context.Context, client *Client, in *SendMessageRequest) {
	msg, err := ss.messages.Send(ctx, client.identity, &SendMessageInput{
		CounterpartID: in.CounterpartID,
		Text:          in.Text,
	})
	if err != nil {
		ss.produceToSelf(ctx, client, domain.SendFailedType, &SendFailedEvent{
			TempMessageID: in.TempMessageID,
			Reason:        err.Error(),
		})
		return
	}

	if msg == nil {
		// empty send, silently ignored
		return
	}

	ss.produceToSelf(ctx, client, domain.MessageConfirmedType, &MessageConfirmedEvent{
		TempMessageID: in.TempMessageID,
		MessageID:     msg.ID,
		Seq:           msg.Seq,
		SentAt:        msg.SentAt,
	})
}

func (ss *SessionService) produceToSelf(ctx context.Context, client *Client, eventType domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	evt := &domain.Event{Type: eventType, Data: data}
	if err := ss.connRepo.Produce(ctx, client.identity.ID, evt); err != nil {
		slog.Error("Failed to produce event", "type", eventType, "error", err)
	}
}

// broadcastPresence tells every friend about the status flip. Friends not
// connected simply have nobody subscribed on their channel.
func (ss *SessionService) broadcastPresence(ctx context.Context, memberID string, status domain.PresenceStatus) {
	friends, err := ss.friends.ListFriends(ctx, memberID)
	if err != nil {
		slog.Error("Failed to list friends for presence broadcast", "member_id", memberID, "error", err)
		return
	}

	data, err := json.Marshal(&PresenceChangeEvent{
		MemberID:     memberID,
		Status:       status,
		LastActiveAt: time.Now(),
	})
	if err != nil {
		slog.Error("Failed to marshal presence change", "error", err)
		return
	}

	evt := &domain.Event{Type: domain.PresenceChangeType, Data: data}
	for _, friend := range friends {
		if err := ss.connRepo.Produce(ctx, friend.ID, evt); err != nil {
			slog.Error("Failed to produce presence change", "to_id", friend.ID, "error", err)
		}
	}
}

func (ss *SessionService) write(ctx context.Context, client *Client) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Error("Failed to write ping message", "error", err)
				return err
			}
		case msg, ok := <-client.outboard:
			if !ok {
				return nil
			}

			var evt domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				slog.Error("Failed to unmarshal outboard event", "error", err)
				return err
			}

			if !ss.wantsEvent(client, &evt) {
				continue
			}

			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(&evt); err != nil {
				slog.Error("Failed to writeJSON", "error", err)
				return err
			}

			if evt.Type == domain.NewMessageType {
				ss.markDeliveredOnWrite(ctx, &evt)
			}
		}
	}
}

// wantsEvent keeps channel-scoped feeds subscribed only while their room is
// the active one. Directory-level events pass through regardless.
func (ss *SessionService) wantsEvent(client *Client, evt *domain.Event) bool {
	switch evt.Type {
	case domain.TypingType:
		var typing TypingEvent
		if err := json.Unmarshal(evt.Data, &typing); err != nil {
			return false
		}
		return typing.ChannelID == client.active()

	case domain.NewMessageType:
		var message domain.Message
		if err := json.Unmarshal(evt.Data, &message); err != nil {
			return false
		}
		return message.ChannelID == client.active()

	case domain.MessagesSeenType:
		var seen MessagesSeenEvent
		if err := json.Unmarshal(evt.Data, &seen); err != nil {
			return false
		}
		return seen.ChannelID == client.active()
	}

	return true
}

func (ss *SessionService) markDeliveredOnWrite(ctx context.Context, evt *domain.Event) {
	var message domain.Message
	if err := json.Unmarshal(evt.Data, &message); err != nil {
		return
	}

	if err := ss.msgRepo.UpdateMessageState(ctx, message.ID, domain.StateDelivered); err != nil {
		slog.Error("Failed to update message state",
			"message_id", message.ID,
			"state", domain.StateDelivered,
			"error", err,
		)
	}
}
