package server

import "github.com/villagehub/chatcore/internal/domain"

type SendFriendRequestJSON struct {
	TargetID string `json:"target_id"`
}

type PaginateMessagesResponse struct {
	Messages  []domain.Message `json:"messages"`
	NewCursor *int64           `json:"new_cursor,omitempty"`
	HasMore   bool             `json:"has_more"`
}

type RoomsResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

type FriendsResponse struct {
	Friends []domain.Member `json:"friends"`
}

type FriendRequestsResponse struct {
	Requests []domain.FriendRequest `json:"requests"`
}

type MembersResponse struct {
	Members []domain.Member `json:"members"`
}
