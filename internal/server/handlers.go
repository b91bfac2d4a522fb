package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/villagehub/chatcore/internal/domain"
	"github.com/villagehub/chatcore/internal/service"
)

type Handler struct {
	friendSrv  service.FriendshipServiceIn
	roomSrv    service.RoomServiceIn
	msgSrv     service.MessageServiceIn
	sessionSrv service.SessionServiceIn
	members    service.MemberRepoIn
	presence   service.PresenceRepoIn
	upgrader   *websocket.Upgrader
}

func NewHandler(
	friendSrv service.FriendshipServiceIn,
	roomSrv service.RoomServiceIn,
	msgSrv service.MessageServiceIn,
	sessionSrv service.SessionServiceIn,
	members service.MemberRepoIn,
	presence service.PresenceRepoIn,
) *Handler {
	return &Handler{
		friendSrv:  friendSrv,
		roomSrv:    roomSrv,
		msgSrv:     msgSrv,
		sessionSrv: sessionSrv,
		members:    members,
		presence:   presence,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferPool: &sync.Pool{},
		},
	}
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handleError(w, err)
		return
	}

	client := service.NewClient(res.Identity, conn, service.GetHub())

	h.sessionSrv.HandleConn(r.Context(), client, res)
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	rooms, err := h.roomSrv.Rooms(r.Context(), res.Identity)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &RoomsResponse{Rooms: rooms})
}

func (h *Handler) handleOpenRoom(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	counterpartID := r.PathValue("counterpart_id")
	if counterpartID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	snapshot, err := h.roomSrv.Open(r.Context(), res.Identity, counterpartID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, snapshot)
}

func (h *Handler) handleChannelMessages(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	counterpartID := r.PathValue("counterpart_id")
	if counterpartID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	var cursor *int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			handleError(w, domain.ErrInvalidRequest)
			return
		}
		cursor = &parsed
	}

	messages, newCursor, hasMore, err := h.msgSrv.History(r.Context(), res.Identity, counterpartID, cursor)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &PaginateMessagesResponse{
		Messages:  messages,
		NewCursor: newCursor,
		HasMore:   hasMore,
	})
}

func (h *Handler) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var in SendFriendRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.friendSrv.SendRequest(r.Context(), res.Identity, in.TargetID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(201)
}

func (h *Handler) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	senderID := r.PathValue("sender_id")
	if senderID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.friendSrv.AcceptRequest(r.Context(), res.Identity, senderID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(200)
}

func (h *Handler) handleRejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	senderID := r.PathValue("sender_id")
	if senderID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.friendSrv.RejectRequest(r.Context(), res.Identity, senderID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(200)
}

func (h *Handler) handleUnfriend(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	otherID := r.PathValue("other_id")
	if otherID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.friendSrv.Unfriend(r.Context(), res.Identity, otherID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(200)
}

func (h *Handler) handleFriends(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	friends, err := h.friendSrv.Friends(r.Context(), res.Identity)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &FriendsResponse{Friends: friends})
}

func (h *Handler) handleIncomingRequests(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	requests, err := h.friendSrv.IncomingRequests(r.Context(), res.Identity)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &FriendRequestsResponse{Requests: requests})
}

func (h *Handler) handleOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	res, err := GetResolutionFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	requests, err := h.friendSrv.OutgoingRequests(r.Context(), res.Identity)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &FriendRequestsResponse{Requests: requests})
}

func (h *Handler) handleSearchMembers(w http.ResponseWriter, r *http.Request) {
	if _, err := GetResolutionFromContext(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	members, err := h.members.SearchMembers(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, &MembersResponse{Members: members})
}

func (h *Handler) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	if _, err := GetResolutionFromContext(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	memberID := r.PathValue("member_id")
	if memberID == "" {
		handleError(w, domain.ErrInvalidRequest)
		return
	}

	record, err := h.presence.Get(r.Context(), memberID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, 200, record)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
