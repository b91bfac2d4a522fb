package service

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/villagehub/chatcore/internal/domain"
)

type Client struct {
	identity domain.Identity
	conn     *websocket.Conn
	outboard <-chan *redis.Message
	hub      *Hub

	mu            sync.Mutex
	activeChannel string
}

func NewClient(identity domain.Identity, conn *websocket.Conn, hub *Hub) *Client {
	client := &Client{
		identity: identity,
		conn:     conn,
		hub:      hub,
	}

	hub.register <- client
	return client
}

func (c *Client) setActive(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeChannel = channelID
}

func (c *Client) clearActive() {
	c.setActive("")
}

func (c *Client) active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeChannel
}
