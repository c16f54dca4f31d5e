package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/asaphhq/asaph/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live connection. It starts unbound; a successful join
// event binds it to an (account, room) pair. The account and roomId
// fields are written and read exclusively by the hub loop, so no lock
// guards them.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  *log.Logger
	send chan *ServerMessage
	stop chan struct{}

	account types.Account
	roomId  string
}

func NewClient(id string, conn *websocket.Conn, hub *Hub, l *log.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  l,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

// Id returns the router-assigned connection id.
func (c *Client) Id() string {
	return c.id
}

func (c *Client) bound() bool {
	return c.roomId != ""
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.hub.Deregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("parse message:", err)
			c.queueMessage(ErrInvalidMessage(0))
			continue
		}

		msg.client = c
		c.hub.Dispatch(&msg)
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send channel full for connection %q, dropping message", c.id)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}
