package broadcast

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/user"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize = 256
)

type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	rooms  []string
}

func (c *Client) inAny(rooms []string) bool {
	for _, r := range rooms {
		for _, cr := range c.rooms {
			if r == cr {
				return true
			}
		}
	}
	return false
}

// roomsForRole maps a staff role to the rooms it may listen on. Clients
// never pick rooms themselves.
func roomsForRole(role string) []string {
	switch role {
	case user.RoleAdmin:
		return []string{core.RoomAdmins, core.RoomCoordinators}
	case user.RoleCoordinator:
		return []string{core.RoomCoordinators}
	default:
		return nil
	}
}

// Admit registers an authenticated connection with the hub and starts its
// read and write pumps. The read pump only drains control frames; clients
// cannot publish.
func (h *Hub) Admit(conn *websocket.Conn, userID int64, role string) {
	client := &Client{
		id:     uuid.New().String(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		rooms:  roomsForRole(role),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
