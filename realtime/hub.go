package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client — одно WebSocket-соединение, подписанное на один или несколько
// топиков (комнат).
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	rooms    []string
	isClosed bool
	mu       sync.Mutex
}

// Hub раздаёт опубликованные конверты WebSocket-клиентам по комнатам.
// Имя комнаты совпадает с именем топика, так что браузерные клиенты видят
// те же события, что и подписчики MQTT. Уровень QoS здесь не имеет смысла
// и игнорируется: доставка по WebSocket best-effort.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.rooms {
				if _, ok := h.rooms[room]; !ok {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.Any("rooms", client.rooms))

		case client := <-h.unregister:
			h.mu.Lock()
			for _, room := range client.rooms {
				if clients, ok := h.rooms[room]; ok {
					if _, okClient := clients[client]; okClient {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.rooms, room)
						}
					}
				}
			}
			h.mu.Unlock()

			client.mu.Lock()
			if !client.isClosed {
				close(client.send)
				client.isClosed = true
			}
			client.mu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.Any("rooms", client.rooms))
		}
	}
}

// Publish реализует Publisher: рассылает конверт всем клиентам комнаты,
// соответствующей топику. Медленные клиенты пропускаются, не блокируя
// остальных.
func (h *Hub) Publish(topic Topic, envelope Envelope) {
	message, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("failed to marshal envelope for websocket broadcast",
			slog.String("topic", topic.Name), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[topic.Name]
	if !ok {
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- message:
		default:
			h.logger.Warn("websocket client send buffer full, skipping",
				slog.String("topic", topic.Name))
		}
		client.mu.Unlock()
	}
}

// Subscribe регистрирует соединение в указанных комнатах и запускает его
// read/write-насосы. Владение соединением переходит к хабу.
func (h *Hub) Subscribe(conn *websocket.Conn, rooms ...string) *Client {
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: rooms,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Входящие сообщения игнорируются: лента только на чтение.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", slog.Any("error", err))
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Сливаем накопившиеся сообщения в тот же фрейм записи.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
