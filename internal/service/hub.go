package service

import "log/slog"

var hub = NewHub()

type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func GetHub() *Hub {
	return hub
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client.identity.ID] = client
			slog.Info("Identity connected", "identity_id", client.identity.ID)

		case client := <-h.unregister:
			delete(h.clients, client.identity.ID)
			slog.Info("Identity disconnected", "identity_id", client.identity.ID)
		}
	}
}
