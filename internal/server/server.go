package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/asaphhq/asaph/internal/stats"
	"github.com/asaphhq/asaph/internal/store"
	"github.com/asaphhq/asaph/internal/types"
)

// SessionStore is the slice of the store the hub needs: binding a
// connection and changing a room's video mode.
type SessionStore interface {
	VerifyMembership(id, token string) (types.Account, types.Room, error)
	SetVideoMode(roomId, accountId string, mode types.VideoMode, layers []types.Layer, sequence []string) (types.VideoMode, error)
}

// Hub routes events between live connections. All binding, relay and
// broadcast decisions happen on the single Run loop, which gives every
// room in-order delivery: events relayed to a room reach all bound
// connections in the order the hub processed them.
type Hub struct {
	log        *log.Logger
	store      SessionStore
	stats      stats.StatsProvider
	clients    map[string]*Client
	inbound    chan *ClientMessage
	register   chan *Client
	deregister chan *Client
	rmRoom     chan string
	stopc      chan struct{}
	done       chan struct{}
}

func NewHub(logger *log.Logger, st SessionStore, sp stats.StatsProvider) *Hub {
	sp.RegisterMetric("NumConnections")
	sp.RegisterMetric("NumBoundConnections")
	sp.RegisterMetric("SignalsRelayed")
	sp.RegisterMetric("ChatsRelayed")

	return &Hub{
		log:        logger,
		store:      st,
		stats:      sp,
		clients:    make(map[string]*Client),
		inbound:    make(chan *ClientMessage, 256),
		register:   make(chan *Client),
		deregister: make(chan *Client),
		rmRoom:     make(chan string),
		stopc:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.deregister:
			h.removeClient(c)
		case msg := <-h.inbound:
			h.handleMessage(msg)
		case sid := <-h.rmRoom:
			h.handleRoomRemoved(sid)
		case <-h.stopc:
			h.log.Println("closing live connections")
			for _, c := range h.clients {
				c.stopClient()
			}
			close(h.done)
			return
		}
	}
}

// Register hands a freshly upgraded connection to the hub loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Deregister removes a connection after its read pump exits.
func (h *Hub) Deregister(c *Client) {
	select {
	case h.deregister <- c:
	case <-h.done:
	}
}

// Dispatch queues an inbound client message for the hub loop. When the
// loop is saturated the message is refused rather than blocking the
// connection's read pump.
func (h *Hub) Dispatch(msg *ClientMessage) {
	select {
	case h.inbound <- msg:
	default:
		h.log.Println("inbound channel full, refusing message")
		msg.client.queueMessage(ErrResponse(msg.Id, http.StatusServiceUnavailable, "service unavailable"))
	}
}

// NotifyRoomRemoved tells the hub a room was deleted so it can unbind
// and notify the connections still in it.
func (h *Hub) NotifyRoomRemoved(sid string) {
	select {
	case h.rmRoom <- sid:
	case <-h.done:
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	close(h.stopc)
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c.id] = c
	h.stats.Incr("NumConnections")
	h.log.Printf("connection %q registered", c.id)
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	if c.bound() {
		h.unbind(c)
	}
	delete(h.clients, c.id)
	h.stats.Decr("NumConnections")
	c.stopClient()
	h.log.Printf("connection %q deregistered", c.id)
}

func (h *Hub) handleMessage(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		h.handleJoin(msg)
	case msg.Signal != nil:
		h.handleSignal(msg)
	case msg.Chat != nil:
		h.handleChat(msg)
	case msg.VideoMode != nil:
		h.handleVideoMode(msg)
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (h *Hub) handleJoin(msg *ClientMessage) {
	c := msg.client
	acct, room, err := h.store.VerifyMembership(msg.Join.Uid, msg.Join.Token)
	if err != nil {
		c.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	if c.bound() {
		h.unbind(c)
	}
	c.account = acct
	c.roomId = room.Id
	h.stats.Incr("NumBoundConnections")

	c.queueMessage(NoErrOK(msg.Id, room.View()))

	for _, other := range h.clients {
		if other == c || other.roomId != room.Id {
			continue
		}

		other.queueMessage(&ServerMessage{
			BaseMessage:  BaseMessage{Timestamp: Now()},
			MemberJoined: &MemberJoined{ConnId: c.id, Profile: acct.Profile()},
		})
		// the joining side initiates the peer handshake towards
		// everyone already present
		c.queueMessage(&ServerMessage{
			BaseMessage:  BaseMessage{Timestamp: Now()},
			MemberJoined: &MemberJoined{ConnId: other.id, Profile: other.account.Profile(), Call: true},
		})
	}
}

// handleSignal relays an opaque payload to one target connection, but
// only when sender and target are bound to the same room. Anything
// else is treated as a race with a disconnect and dropped without an
// error.
func (h *Hub) handleSignal(msg *ClientMessage) {
	c := msg.client
	if !c.bound() {
		return
	}

	target, ok := h.clients[msg.Signal.To]
	if !ok || !target.bound() || target.roomId != c.roomId {
		return
	}

	target.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Signal:      &SignalEvent{From: c.id, Payload: msg.Signal.Payload},
	})
	h.stats.Incr("SignalsRelayed")
}

func (h *Hub) handleChat(msg *ClientMessage) {
	c := msg.client
	if !c.bound() {
		c.queueMessage(ErrResponse(msg.Id, http.StatusForbidden, "not in a session"))
		return
	}

	h.broadcastRoom(c.roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Chat:        &ChatEvent{From: c.id, Name: c.account.Name, Text: msg.Chat.Text},
	}, c)

	// the sender gets an ack echoing the text instead of the broadcast
	c.queueMessage(NoErrOK(msg.Id, msg.Chat.Text))
	h.stats.Incr("ChatsRelayed")
}

func (h *Hub) handleVideoMode(msg *ClientMessage) {
	c := msg.client
	if !c.bound() {
		c.queueMessage(ErrResponse(msg.Id, http.StatusForbidden, "not in a session"))
		return
	}

	req := msg.VideoMode
	prev, err := h.store.SetVideoMode(c.roomId, c.account.Id, req.Mode, req.Layers, req.Sequence)
	if err != nil {
		c.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	// tear down the active mode before announcing a new one
	if prev != types.VideoOff {
		h.broadcastRoom(c.roomId, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			VideoMode:   &VideoModeEvent{Mode: types.VideoOff},
		}, nil)
	}
	if req.Mode != types.VideoOff {
		h.broadcastRoom(c.roomId, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			VideoMode:   &VideoModeEvent{Mode: req.Mode, Layers: req.Layers, Sequence: req.Sequence},
		}, nil)
	} else if prev == types.VideoOff {
		// stopping an already stopped room still broadcasts the stop
		// notice so clients converge
		h.broadcastRoom(c.roomId, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			VideoMode:   &VideoModeEvent{Mode: types.VideoOff},
		}, nil)
	}

	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (h *Hub) handleRoomRemoved(sid string) {
	for _, c := range h.clients {
		if c.roomId != sid {
			continue
		}

		c.queueMessage(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			RoomRemoved: &RoomRemoved{Sid: sid},
		})
		c.roomId = ""
		c.account = types.Account{}
		h.stats.Decr("NumBoundConnections")
	}
}

// unbind detaches c from its room and tells the remaining connections
// it left.
func (h *Hub) unbind(c *Client) {
	roomId := c.roomId
	c.roomId = ""
	c.account = types.Account{}
	h.stats.Decr("NumBoundConnections")

	h.broadcastRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		MemberLeft:  &MemberLeft{ConnId: c.id},
	}, c)
}

func (h *Hub) broadcastRoom(roomId string, msg *ServerMessage, skip *Client) {
	for _, c := range h.clients {
		if c == skip || c.roomId != roomId {
			continue
		}
		c.queueMessage(msg)
	}
}

func storeErrResponse(id int, err error) *ServerMessage {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, store.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, store.ErrInvalidParams):
		code = http.StatusUnprocessableEntity
	}
	return ErrResponse(id, code, err.Error())
}
