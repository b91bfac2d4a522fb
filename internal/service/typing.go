package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/villagehub/chatcore/internal/domain"
)

// TypingService owns one debounced timer per (channel, sender). Each
// keystroke cancels and re-arms that single timer, so the indicator clears
// once, at most ttl after the last keystroke, instead of racing independent
// timeouts.
type TypingService struct {
	typing TypingRepoIn
	conn   EventProducerIn
	ttl    time.Duration
	timers sync.Map
}

func NewTypingService(typing TypingRepoIn, conn EventProducerIn, ttl time.Duration) *TypingService {
	return &TypingService{
		typing: typing,
		conn:   conn,
		ttl:    ttl,
	}
}

// SetTyping is entirely best effort: typing failures are logged and dropped,
// never surfaced to the caller. Guests can only signal into the helpline
// channel.
func (ts *TypingService) SetTyping(ctx context.Context, self domain.Identity, counterpartID string, isTyping bool) {
	if self.IsGuest() && counterpartID != domain.HelplineID {
		return
	}

	channelID := domain.ChannelID(self.ID, counterpartID)
	key := channelID + ":" + self.ID

	ts.writeFlag(ctx, channelID, self.ID, counterpartID, isTyping)

	if !isTyping {
		if t, ok := ts.timers.LoadAndDelete(key); ok {
			t.(*time.Timer).Stop()
		}
		return
	}

	if t, ok := ts.timers.Load(key); ok {
		t.(*time.Timer).Stop()
	}

	timer := time.AfterFunc(ts.ttl, func() {
		ts.timers.Delete(key)

		ctx, cancel := context.WithTimeout(context.Background(), ts.ttl)
		defer cancel()

		ts.writeFlag(ctx, channelID, self.ID, counterpartID, false)
	})
	ts.timers.Store(key, timer)
}

func (ts *TypingService) writeFlag(ctx context.Context, channelID, senderID, counterpartID string, isTyping bool) {
	backoff := retry.WithMaxRetries(2, retry.NewConstant(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ts.typing.Set(ctx, channelID, senderID, isTyping); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to write typing flag", "channel_id", channelID, "error", err)
		return
	}

	evt := &TypingEvent{
		ChannelID: channelID,
		SenderID:  senderID,
		IsTyping:  isTyping,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to marshal typing event", "error", err)
		return
	}

	if err := ts.conn.Produce(ctx, counterpartID, &domain.Event{Type: domain.TypingType, Data: data}); err != nil {
		slog.Error("Failed to produce typing event", "to_id", counterpartID, "error", err)
	}
}
