// Package protocol defines the realtime wire format: a JSON envelope naming
// an event plus one explicit payload record per event.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

// Client → server and server → client event names.
const (
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"

	EventLocationUpdate = "locationUpdate"
	EventDriverLocation = "driverLocation"

	EventCallJoin        = "join-room"
	EventCallReady       = "ready"
	EventStartCall       = "start-call"
	EventOffer           = "offer"
	EventAnswer          = "answer"
	EventICECandidate    = "ice-candidate"
	EventCallLeave       = "leave-room"
	EventUserLeft        = "user-left"
	EventConnectionState = "connection-state-change"

	EventError = "error"
)

// events a client may send
var inbound = map[string]bool{
	EventJoinRoom:        true,
	EventLeaveRoom:       true,
	EventSendMessage:     true,
	EventLocationUpdate:  true,
	EventCallJoin:        true,
	EventCallReady:       true,
	EventOffer:           true,
	EventAnswer:          true,
	EventICECandidate:    true,
	EventConnectionState: true,
	EventCallLeave:       true,
}

// IsInbound reports whether event is one the server handles.
func IsInbound(event string) bool {
	return inbound[event]
}

// Error codes carried by EventError frames.
const (
	CodeBadRequest        = "bad_request"
	CodeUnauthenticated   = "unauthenticated"
	CodeForbidden         = "forbidden"
	CodePersistenceFailed = "persistence_failed"
	CodeProtocolViolation = "protocol_violation"
	CodeCallFull          = "call_full"
	CodeUnknownEvent      = "unknown_event"
)

// ErrMalformed is returned for frames or payloads that fail to parse or validate.
var ErrMalformed = errors.New("malformed payload")

// Envelope is one inbound frame. Token optionally carries a credential.
type Envelope struct {
	Event string          `json:"event"`
	Token string          `json:"token,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Frame is one outbound frame.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Payload is implemented by every inbound payload record.
type Payload interface {
	Validate() error
}

// ParseEnvelope decodes a raw frame.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	env.Event = strings.TrimSpace(env.Event)
	if env.Event == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrMalformed)
	}
	return &env, nil
}

// Decode unmarshals the envelope data into dst and validates it.
func (e *Envelope) Decode(dst Payload) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%w: %s requires data", ErrMalformed, e.Event)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Event, err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Event, err)
	}
	return nil
}

// Encode builds an outbound frame. data may be nil for bare events.
func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

// MustEncode is Encode for payloads that cannot fail to marshal.
func MustEncode(event string, data any) []byte {
	frame, err := Encode(event, data)
	if err != nil {
		panic(fmt.Sprintf("protocol: encode %s: %v", event, err))
	}
	return frame
}

// ErrorPayload is the body of an EventError frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// JoinRoom joins a chat room keyed by ticket id.
type JoinRoom struct {
	RoomKey string `json:"roomKey"`
}

func (p *JoinRoom) Validate() error {
	p.RoomKey = strings.TrimSpace(p.RoomKey)
	return required("roomKey", p.RoomKey)
}

// SendMessage is a chat send request.
type SendMessage struct {
	TicketID   string `json:"ticketId"`
	SenderID   string `json:"senderId,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	Message    string `json:"message"`
}

func (p *SendMessage) Validate() error {
	p.TicketID = strings.TrimSpace(p.TicketID)
	p.SenderID = strings.TrimSpace(p.SenderID)
	p.SenderName = strings.TrimSpace(p.SenderName)
	if err := required("ticketId", p.TicketID); err != nil {
		return err
	}
	// the body may be an opaque encrypted payload, so it is not trimmed
	if strings.TrimSpace(p.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}

// ReceiveMessage is the chat fan-out record.
type ReceiveMessage struct {
	ID         string    `json:"id,omitempty"`
	TicketID   string    `json:"ticketId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// LocationUpdate is a driver position report. BookingID is echoed when present.
type LocationUpdate struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	BookingID string   `json:"bookingId,omitempty"`
}

func (p *LocationUpdate) Validate() error {
	if p.Lat == nil || p.Lng == nil {
		return errors.New("lat and lng are required")
	}
	if *p.Lat < -90 || *p.Lat > 90 {
		return fmt.Errorf("lat %v out of range", *p.Lat)
	}
	if *p.Lng < -180 || *p.Lng > 180 {
		return fmt.Errorf("lng %v out of range", *p.Lng)
	}
	p.BookingID = strings.TrimSpace(p.BookingID)
	return nil
}

// DriverLocation is the location fan-out record.
type DriverLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	BookingID string  `json:"bookingId,omitempty"`
}

// CallRoom is the payload of join-room, ready and leave-room.
type CallRoom struct {
	RoomID string `json:"roomId"`
}

func (p *CallRoom) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	return required("roomId", p.RoomID)
}

// SessionDescription carries an SDP offer or answer; the SDP text is not inspected.
type SessionDescription struct {
	RoomID string                    `json:"roomId"`
	SDP    webrtc.SessionDescription `json:"sdp"`
}

// Offer is an SDP offer relay.
type Offer SessionDescription

func (p *Offer) Validate() error {
	return (*SessionDescription)(p).validate(webrtc.SDPTypeOffer)
}

// Answer is an SDP answer relay.
type Answer SessionDescription

func (p *Answer) Validate() error {
	return (*SessionDescription)(p).validate(webrtc.SDPTypeAnswer)
}

func (p *SessionDescription) validate(want webrtc.SDPType) error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	if err := required("roomId", p.RoomID); err != nil {
		return err
	}
	if p.SDP.Type != want {
		return fmt.Errorf("sdp type must be %q, got %q", want, p.SDP.Type)
	}
	if strings.TrimSpace(p.SDP.SDP) == "" {
		return errors.New("sdp is required")
	}
	return nil
}

// ICECandidate is an ICE candidate relay.
type ICECandidate struct {
	RoomID    string                  `json:"roomId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

func (p *ICECandidate) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	return required("roomId", p.RoomID)
}

// ConnectionState is an informational peer-connection state report.
// RoomID is optional; the sender's current call room is used when empty.
type ConnectionState struct {
	RoomID string `json:"roomId,omitempty"`
	State  string `json:"state"`
}

var peerConnectionStates = []webrtc.PeerConnectionState{
	webrtc.PeerConnectionStateNew,
	webrtc.PeerConnectionStateConnecting,
	webrtc.PeerConnectionStateConnected,
	webrtc.PeerConnectionStateDisconnected,
	webrtc.PeerConnectionStateFailed,
	webrtc.PeerConnectionStateClosed,
}

func (p *ConnectionState) Validate() error {
	p.RoomID = strings.TrimSpace(p.RoomID)
	p.State = strings.TrimSpace(p.State)
	for _, s := range peerConnectionStates {
		if s.String() == p.State {
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", p.State)
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
