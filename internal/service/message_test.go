package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/villagehub/chatcore/internal/domain"
)

func newMessageFixture(t *testing.T) (*fakeStore, MessageServiceIn) {
	t.Helper()
	fs := newFakeStore(asha, binod)
	return fs, NewMessageService(fs, fs, fakeTyping{fs}, fs, time.Second)
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("empty and whitespace sends are silently ignored", func(t *testing.T) {
		fs, srv := newMessageFixture(t)

		for _, text := range []string{"", "   ", "\n\t"} {
			msg, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: text})
			require.NoError(t, err)
			assert.Nil(t, msg)
		}

		messages, _, _, _ := fs.PaginateChannelMessages(ctx, "M1_M2", nil)
		assert.Empty(t, messages)
		assert.Nil(t, fs.room("M1", "M2"))
		assert.Empty(t, fs.events)
	})

	t.Run("hello fan-out", func(t *testing.T) {
		fs, srv := newMessageFixture(t)

		msg, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: "Hello"})
		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, "M1_M2", msg.ChannelID)
		assert.Equal(t, "M1", msg.SenderID)
		assert.Equal(t, "M2", msg.ReceiverID)
		assert.Equal(t, domain.StateSent, msg.DeliveryState)
		assert.NotZero(t, msg.Seq)

		receiverRoom := fs.room("M2", "M1")
		require.NotNil(t, receiverRoom)
		assert.Equal(t, 1, receiverRoom.UnseenCount)
		assert.Equal(t, "Hello", receiverRoom.LastMessageText)
		assert.Equal(t, "Asha", receiverRoom.CounterpartName)

		senderRoom := fs.room("M1", "M2")
		require.NotNil(t, senderRoom)
		assert.Equal(t, 0, senderRoom.UnseenCount)
		assert.Equal(t, "Hello", senderRoom.LastMessageText)

		assert.Len(t, fs.eventsFor("M2", domain.NewMessageType), 1)
		assert.Len(t, fs.eventsFor("M2", domain.RoomUpdateType), 1)
		assert.Len(t, fs.eventsFor("M1", domain.RoomUpdateType), 1)
	})

	t.Run("unseen counter accumulates per unread message", func(t *testing.T) {
		fs, srv := newMessageFixture(t)

		for i := 0; i < 3; i++ {
			_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: "ping"})
			require.NoError(t, err)
		}

		assert.Equal(t, 3, fs.room("M2", "M1").UnseenCount)
		assert.Equal(t, 0, fs.room("M1", "M2").UnseenCount)
	})

	t.Run("send clears typing flag", func(t *testing.T) {
		fs, srv := newMessageFixture(t)
		require.NoError(t, fs.Set(ctx, "M1_M2", "M1", true))

		_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: "done typing"})
		require.NoError(t, err)

		assert.False(t, fs.isTyping("M1_M2", "M1"))
	})

	t.Run("messages keep insertion order", func(t *testing.T) {
		fs, srv := newMessageFixture(t)

		for _, text := range []string{"one", "two", "three"} {
			_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: text})
			require.NoError(t, err)
		}

		messages, _, _, err := fs.PaginateChannelMessages(ctx, "M1_M2", nil)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assert.Equal(t, "one", messages[0].Text)
		assert.Equal(t, "three", messages[2].Text)
		assert.Less(t, messages[0].Seq, messages[1].Seq)
		assert.Less(t, messages[1].Seq, messages[2].Seq)
	})

	t.Run("guest can reach only the helpline", func(t *testing.T) {
		fs, srv := newMessageFixture(t)
		guest := domain.NewGuest("123456")

		_, err := srv.Send(ctx, guest, &SendMessageInput{CounterpartID: "M2", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrGuestForbidden)

		msg, err := srv.Send(ctx, guest, &SendMessageInput{CounterpartID: domain.HelplineID, Text: "help"})
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, domain.ChannelID(guest.ID, domain.HelplineID), msg.ChannelID)

		helplineRoom := fs.room(domain.HelplineID, guest.ID)
		require.NotNil(t, helplineRoom)
		assert.Equal(t, 1, helplineRoom.UnseenCount)
	})

	t.Run("only the helpline can reach guests", func(t *testing.T) {
		_, srv := newMessageFixture(t)

		_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "GUEST-123456", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrGuestForbidden)

		msg, err := srv.Send(ctx, domain.Helpline(), &SendMessageInput{CounterpartID: "GUEST-123456", Text: "how can we help?"})
		require.NoError(t, err)
		require.NotNil(t, msg)
	})

	t.Run("resolved operator session answers guests", func(t *testing.T) {
		fs := newFakeStore(asha, binod, domain.Member{ID: domain.HelplineID, DisplayName: "Helpline", Verified: true})
		idSrv := NewIdentityService(fs, fs)
		srv := NewMessageService(fs, fs, fakeTyping{fs}, fs, time.Second)

		res, err := idSrv.Resolve(ctx, &ResolveInput{MemberID: domain.HelplineID})
		require.NoError(t, err)

		msg, err := srv.Send(ctx, res.Identity, &SendMessageInput{CounterpartID: "GUEST-123456", Text: "how can we help?"})
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, domain.ChannelID("GUEST-123456", domain.HelplineID), msg.ChannelID)

		guestRoom := fs.room("GUEST-123456", domain.HelplineID)
		require.NotNil(t, guestRoom)
		assert.Equal(t, 1, guestRoom.UnseenCount)
	})

	t.Run("unknown counterpart", func(t *testing.T) {
		_, srv := newMessageFixture(t)

		_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "ghost", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMessageService_History(t *testing.T) {
	ctx := context.Background()
	_, srv := newMessageFixture(t)

	for _, text := range []string{"a", "b"} {
		_, err := srv.Send(ctx, asha.Identity(), &SendMessageInput{CounterpartID: "M2", Text: text})
		require.NoError(t, err)
	}

	t.Run("counterpart reads the same channel", func(t *testing.T) {
		messages, _, _, err := srv.History(ctx, binod.Identity(), "M1", nil)
		require.NoError(t, err)
		assert.Len(t, messages, 2)
	})

	t.Run("cursor skips consumed page", func(t *testing.T) {
		messages, cursor, _, err := srv.History(ctx, asha.Identity(), "M2", nil)
		require.NoError(t, err)
		require.Len(t, messages, 2)

		rest, _, _, err := srv.History(ctx, asha.Identity(), "M2", cursor)
		require.NoError(t, err)
		assert.Empty(t, rest)
	})

	t.Run("guest history limited to helpline", func(t *testing.T) {
		_, _, _, err := srv.History(ctx, domain.NewGuest("123456"), "M2", nil)
		assert.ErrorIs(t, err, domain.ErrGuestForbidden)
	})
}
