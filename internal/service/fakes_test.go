package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/villagehub/chatcore/internal/domain"
)

type producedEvent struct {
	To  string
	Evt domain.Event
}

// fakeStore is an in-memory stand-in for every repository interface, so the
// services can be exercised end to end without Postgres or Redis.
type fakeStore struct {
	mu       sync.Mutex
	members  map[string]domain.Member
	edges    map[string]map[string]bool
	requests map[string]map[string]domain.FriendRequest
	rooms    map[string]map[string]*domain.RoomSummary
	messages map[string][]domain.Message
	seq      int64
	presence map[string]domain.PresenceRecord
	typing   map[string]bool
	events   []producedEvent
}

func newFakeStore(members ...domain.Member) *fakeStore {
	fs := &fakeStore{
		members:  make(map[string]domain.Member),
		edges:    make(map[string]map[string]bool),
		requests: make(map[string]map[string]domain.FriendRequest),
		rooms:    make(map[string]map[string]*domain.RoomSummary),
		messages: make(map[string][]domain.Message),
		presence: make(map[string]domain.PresenceRecord),
		typing:   make(map[string]bool),
	}
	for _, m := range members {
		fs.members[m.ID] = m
	}
	return fs
}

// FriendshipRepoIn

func (fs *fakeStore) AreFriends(_ context.Context, ownerID, otherID string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.edges[ownerID][otherID], nil
}

func (fs *fakeStore) HasPendingRequest(_ context.Context, senderID, receiverID string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.requests[senderID][receiverID]
	return ok, nil
}

func (fs *fakeStore) CreateRequest(_ context.Context, req *domain.FriendRequest) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.requests[req.SenderID] == nil {
		fs.requests[req.SenderID] = make(map[string]domain.FriendRequest)
	}
	if _, exists := fs.requests[req.SenderID][req.ReceiverID]; !exists {
		fs.requests[req.SenderID][req.ReceiverID] = *req
	}
	return nil
}

func (fs *fakeStore) Accept(_ context.Context, senderID, receiverID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.addEdge(senderID, receiverID)
	fs.addEdge(receiverID, senderID)
	delete(fs.requests[senderID], receiverID)
	delete(fs.requests[receiverID], senderID)
	return nil
}

func (fs *fakeStore) addEdge(ownerID, otherID string) {
	if fs.edges[ownerID] == nil {
		fs.edges[ownerID] = make(map[string]bool)
	}
	fs.edges[ownerID][otherID] = true
}

func (fs *fakeStore) Reject(_ context.Context, senderID, receiverID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.requests[senderID], receiverID)
	return nil
}

func (fs *fakeStore) Unfriend(_ context.Context, ownerID, otherID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.edges[ownerID], otherID)
	delete(fs.edges[otherID], ownerID)
	return nil
}

func (fs *fakeStore) ListFriends(_ context.Context, ownerID string) ([]domain.Member, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var friends []domain.Member
	for otherID := range fs.edges[ownerID] {
		if m, ok := fs.members[otherID]; ok {
			friends = append(friends, m)
		}
	}
	return friends, nil
}

func (fs *fakeStore) ListIncoming(_ context.Context, receiverID string) ([]domain.FriendRequest, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var requests []domain.FriendRequest
	for _, byReceiver := range fs.requests {
		if req, ok := byReceiver[receiverID]; ok {
			requests = append(requests, req)
		}
	}
	return requests, nil
}

func (fs *fakeStore) ListOutgoing(_ context.Context, senderID string) ([]domain.FriendRequest, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var requests []domain.FriendRequest
	for _, req := range fs.requests[senderID] {
		requests = append(requests, req)
	}
	return requests, nil
}

// MessageRepoIn

func (fs *fakeStore) AppendMessage(_ context.Context, msg *domain.Message, senderRoom, receiverRoom domain.RoomSummary) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.seq++
	stored := *msg
	stored.Seq = fs.seq
	fs.messages[msg.ChannelID] = append(fs.messages[msg.ChannelID], stored)

	fs.upsertRoom(senderRoom, 0)
	fs.upsertRoom(receiverRoom, 1)
	return fs.seq, nil
}

func (fs *fakeStore) upsertRoom(room domain.RoomSummary, increment int) {
	if fs.rooms[room.OwnerID] == nil {
		fs.rooms[room.OwnerID] = make(map[string]*domain.RoomSummary)
	}
	existing, ok := fs.rooms[room.OwnerID][room.CounterpartID]
	if !ok {
		room.UnseenCount = increment
		fs.rooms[room.OwnerID][room.CounterpartID] = &room
		return
	}
	existing.CounterpartName = room.CounterpartName
	existing.CounterpartAvatarRef = room.CounterpartAvatarRef
	existing.LastMessageText = room.LastMessageText
	existing.LastMessageAt = room.LastMessageAt
	if increment == 0 {
		existing.UnseenCount = 0
	} else {
		existing.UnseenCount += increment
	}
}

func (fs *fakeStore) PaginateChannelMessages(_ context.Context, channelID string, cursor *int64) ([]domain.Message, *int64, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var page []domain.Message
	for _, msg := range fs.messages[channelID] {
		if cursor != nil && msg.Seq <= *cursor {
			continue
		}
		page = append(page, msg)
	}

	var nextCursor *int64
	if len(page) > 0 {
		last := page[len(page)-1].Seq
		nextCursor = &last
	}
	return page, nextCursor, false, nil
}

func (fs *fakeStore) UpdateMessageState(_ context.Context, messageID string, state domain.DeliveryState) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for channelID := range fs.messages {
		for i := range fs.messages[channelID] {
			if fs.messages[channelID][i].ID == messageID {
				fs.messages[channelID][i].DeliveryState = state
			}
		}
	}
	return nil
}

func (fs *fakeStore) ListRooms(_ context.Context, ownerID string) ([]domain.RoomSummary, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var rooms []domain.RoomSummary
	for _, room := range fs.rooms[ownerID] {
		summary := *room
		if m, ok := fs.members[summary.CounterpartID]; ok {
			summary.Verified = m.Verified
		}
		if summary.CounterpartID == domain.HelplineID {
			summary.Verified = true
		}
		rooms = append(rooms, summary)
	}
	for otherID := range fs.edges[ownerID] {
		if _, exists := fs.rooms[ownerID][otherID]; exists {
			continue
		}
		if m, ok := fs.members[otherID]; ok {
			rooms = append(rooms, domain.RoomFromFriendship(ownerID, m))
		}
	}
	return rooms, nil
}

func (fs *fakeStore) GetRoom(_ context.Context, ownerID, counterpartID string) (*domain.RoomSummary, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	room, ok := fs.rooms[ownerID][counterpartID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	summary := *room
	return &summary, nil
}

func (fs *fakeStore) OpenRoom(_ context.Context, ownerID, counterpartID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if room, ok := fs.rooms[ownerID][counterpartID]; ok {
		room.UnseenCount = 0
	}
	channelID := domain.ChannelID(ownerID, counterpartID)
	for i := range fs.messages[channelID] {
		if fs.messages[channelID][i].ReceiverID == ownerID {
			fs.messages[channelID][i].DeliveryState = domain.StateSeen
		}
	}
	return nil
}

func (fs *fakeStore) MarkDelivered(_ context.Context, receiverID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for channelID := range fs.messages {
		for i := range fs.messages[channelID] {
			msg := &fs.messages[channelID][i]
			if msg.ReceiverID == receiverID && msg.DeliveryState == domain.StateSent {
				msg.DeliveryState = domain.StateDelivered
			}
		}
	}
	return nil
}

// MemberRepoIn

func (fs *fakeStore) GetMember(_ context.Context, id string) (*domain.Member, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	m, ok := fs.members[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (fs *fakeStore) SearchMembers(_ context.Context, search string) ([]domain.Member, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var members []domain.Member
	for _, m := range fs.members {
		if strings.Contains(strings.ToLower(m.DisplayName), strings.ToLower(search)) {
			members = append(members, m)
		}
	}
	return members, nil
}

// PresenceRepoIn

func (fs *fakeStore) SetStatus(_ context.Context, memberID string, status domain.PresenceStatus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.presence[memberID] = domain.PresenceRecord{
		Status:       status,
		LastActiveAt: time.Now(),
	}
	return nil
}

func (fs *fakeStore) Get(_ context.Context, memberID string) (*domain.PresenceRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	record, ok := fs.presence[memberID]
	if !ok {
		return &domain.PresenceRecord{Status: domain.StatusOffline}, nil
	}
	return &record, nil
}

// TypingRepoIn

func (fs *fakeStore) Set(_ context.Context, channelID, senderID string, isTyping bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	key := channelID + ":" + senderID
	if !isTyping {
		delete(fs.typing, key)
		return nil
	}
	fs.typing[key] = true
	return nil
}

func (fs *fakeStore) TypingGet(_ context.Context, channelID, senderID string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.typing[channelID+":"+senderID], nil
}

// EventProducerIn

func (fs *fakeStore) Produce(_ context.Context, identityID string, evt *domain.Event) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.events = append(fs.events, producedEvent{To: identityID, Evt: *evt})
	return nil
}

func (fs *fakeStore) eventsFor(identityID string, eventType domain.EventType) []producedEvent {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []producedEvent
	for _, evt := range fs.events {
		if evt.To == identityID && evt.Evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func (fs *fakeStore) isTyping(channelID, senderID string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.typing[channelID+":"+senderID]
}

// fakeTyping adapts fakeStore to TypingRepoIn, whose Get signature collides
// with the presence one on the shared fake.
type fakeTyping struct{ *fakeStore }

func (ft fakeTyping) Get(ctx context.Context, channelID, senderID string) (bool, error) {
	return ft.TypingGet(ctx, channelID, senderID)
}

func (fs *fakeStore) room(ownerID, counterpartID string) *domain.RoomSummary {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	room, ok := fs.rooms[ownerID][counterpartID]
	if !ok {
		return nil
	}
	summary := *room
	return &summary
}
