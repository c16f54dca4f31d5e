package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/asaphhq/asaph/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the closed set of events a live connection may
// send: exactly one of the pointer fields is expected to be non-nil.
type ClientMessage struct {
	BaseMessage
	Join      *Join             `json:"join,omitempty"`
	Signal    *SignalRequest    `json:"signal,omitempty"`
	Chat      *ChatRequest      `json:"chat,omitempty"`
	VideoMode *VideoModeRequest `json:"video_mode,omitempty"`
	client    *Client
}

// Join presents the account credentials that bind this connection to
// the account's current room.
type Join struct {
	Uid   string `json:"uid"`
	Token string `json:"token"`
}

// SignalRequest addresses an opaque signaling payload to another
// connection by its connection id. The payload is relayed verbatim and
// never inspected.
type SignalRequest struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type VideoModeRequest struct {
	Mode     types.VideoMode `json:"mode"`
	Layers   []types.Layer   `json:"layers,omitempty"`
	Sequence []string        `json:"sequence,omitempty"`
}

// ServerMessage is the closed set of events relayed out to a live
// connection.
type ServerMessage struct {
	BaseMessage
	Response     *Response       `json:"response,omitempty"`
	MemberJoined *MemberJoined   `json:"member_joined,omitempty"`
	MemberLeft   *MemberLeft     `json:"member_left,omitempty"`
	Signal       *SignalEvent    `json:"signal,omitempty"`
	Chat         *ChatEvent      `json:"chat,omitempty"`
	VideoMode    *VideoModeEvent `json:"video_mode,omitempty"`
	RoomRemoved  *RoomRemoved    `json:"room_removed,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// MemberJoined announces a newly bound connection to the room. When
// replayed to the joiner for connections already present, Call is set
// so the joiner knows it must initiate the peer handshake.
type MemberJoined struct {
	ConnId  string        `json:"conn_id"`
	Profile types.Profile `json:"profile"`
	Call    bool          `json:"call,omitempty"`
}

type MemberLeft struct {
	ConnId string `json:"conn_id"`
}

type SignalEvent struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type ChatEvent struct {
	From string `json:"from"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// VideoModeEvent carries the room's new video mode. A transition
// between two active modes is relayed as a stop notice (mode "off")
// followed by the start notice.
type VideoModeEvent struct {
	Mode     types.VideoMode `json:"mode"`
	Layers   []types.Layer   `json:"layers,omitempty"`
	Sequence []string        `json:"sequence,omitempty"`
}

type RoomRemoved struct {
	Sid string `json:"sid"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	return ErrResponse(id, http.StatusBadRequest, "invalid message format")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
