// Package ws pushes stored sensor readings to websocket subscribers of a
// greenhouse.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"greenhouse-assistant/backend/internal/models"
	"greenhouse-assistant/backend/pkg/logger"
	wstypes "greenhouse-assistant/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send pings
	maxMessageSize = 4 * 1024

	sendBuffer = 256
)

// Client is one websocket subscriber of a greenhouse
type Client struct {
	ID           string
	GreenhouseID uint
	UserID       uint
	Conn         *websocket.Conn
	Send         chan []byte
	Hub          *Hub

	mu     sync.Mutex
	closed bool
}

// trySend queues payload unless the client is closed or its buffer is full
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

type broadcast struct {
	greenhouseID uint
	payload      []byte
}

// Hub fans readings out to the subscribers of each greenhouse
type Hub struct {
	clients    map[uint]map[*Client]bool
	broadcast  chan broadcast
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *logger.Logger
	mu         sync.RWMutex
}

// NewHub creates a hub. allowedOrigins lists the origins accepted on
// upgrade; "*" accepts any.
func NewHub(allowedOrigins []string, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		broadcast:  make(chan broadcast, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:      originChecker(allowedOrigins),
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					client.close()
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.GreenhouseID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.GreenhouseID] = set
			}
			set[client] = true
			h.mu.Unlock()
			h.log.Info("Live feed client registered", "client_id", client.ID, "greenhouse_id", client.GreenhouseID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.greenhouseID] {
				if !client.trySend(msg.payload) {
					h.remove(client)
					h.log.Warn("Live feed client removed due to blocked channel", "client_id", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.GreenhouseID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	client.close()
	if len(set) == 0 {
		delete(h.clients, client.GreenhouseID)
	}
	h.log.Info("Live feed client unregistered", "client_id", client.ID)
}

// Subscribers returns the number of clients watching the greenhouse
func (h *Hub) Subscribers(greenhouseID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[greenhouseID])
}

// PublishReadings queues the readings for every subscriber of the
// greenhouse. It never blocks the caller; when the queue is full the
// readings are dropped.
func (h *Hub) PublishReadings(greenhouseID uint, sensor *models.Sensor, readings []models.SensorReading) {
	if h.Subscribers(greenhouseID) == 0 {
		return
	}
	for _, r := range readings {
		payload, err := json.Marshal(wstypes.Envelope{
			Type: wstypes.TypeReading,
			Content: wstypes.Reading{
				ID:           r.ID,
				GreenhouseID: greenhouseID,
				SensorID:     sensor.ID,
				SensorName:   sensor.Name,
				SensorType:   sensor.Type,
				Value:        r.Value,
				RecordedAt:   r.RecordedAt,
			},
		})
		if err != nil {
			h.log.LogError(err, "Failed to encode reading", "sensor_id", sensor.ID)
			continue
		}
		select {
		case h.broadcast <- broadcast{greenhouseID: greenhouseID, payload: payload}:
		default:
			h.log.Warn("Live feed queue full, reading dropped", "greenhouse_id", greenhouseID)
		}
	}
}

// ServeWs upgrades the request and subscribes the caller to the greenhouse.
// Authorization is the caller's job.
func (h *Hub) ServeWs(c *gin.Context, greenhouseID, userID uint) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		ID:           uuid.NewString(),
		GreenhouseID: greenhouseID,
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan []byte, sendBuffer),
		Hub:          h,
	}
	client.sendMessage(wstypes.TypeHello, gin.H{"client_id": client.ID, "greenhouse_id": greenhouseID})

	select {
	case h.register <- client:
	case <-h.done:
		client.close()
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// ReadPump answers pings and notices disconnects
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("Live feed read error", "client_id", c.ID, "error", err.Error())
			}
			return
		}

		var msg wstypes.Envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendMessage(wstypes.TypeError, gin.H{"message": "invalid message"})
			continue
		}
		if msg.Type == wstypes.TypePing {
			c.sendMessage(wstypes.TypePong, nil)
		}
	}
}

// sendMessage queues a frame for this client only
func (c *Client) sendMessage(messageType string, content any) {
	payload, err := json.Marshal(wstypes.Envelope{Type: messageType, Content: content})
	if err != nil {
		return
	}
	c.trySend(payload)
}

// WritePump writes queued frames and keeps the connection alive
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
