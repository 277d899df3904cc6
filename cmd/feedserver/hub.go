package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-notification-feed/pkg/interfaces/channel"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type hub struct {
	clients    map[string]*wsClient
	mu         sync.RWMutex
	register   chan *wsClient
	unregister chan *wsClient
	events     chan channel.Message
	logger     *logrus.Logger
	done       chan struct{}
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *hub
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{
		clients:    make(map[string]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		events:     make(chan channel.Message, 256),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{"client": client.id, "total": total}).Info("ws client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.events:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.WithError(err).Warn("ws marshal failed")
				continue
			}
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- data:
				default:
					h.logger.WithField("client", id).Warn("dropping ws client: send buffer full")
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

func (h *hub) close() {
	close(h.done)
}

// push queues an event for every connected client.
func (h *hub) push(msg channel.Message) {
	select {
	case h.events <- msg:
	case <-time.After(5 * time.Second):
		h.logger.Warn("ws push timed out")
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("ws upgrade failed")
		return
	}
	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
