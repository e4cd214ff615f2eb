package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"

	"petbuddy-realtime/internal/chat"
	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/signaling"
	"petbuddy-realtime/internal/websocket"
)

const unknownEventLabel = "unknown"

var errUnauthenticated = errors.New("this event requires an authenticated connection")

// events that act on behalf of a caller
var identityRequired = map[string]bool{
	protocol.EventSendMessage:  true,
	protocol.EventCallReady:    true,
	protocol.EventOffer:        true,
	protocol.EventAnswer:       true,
	protocol.EventICECandidate: true,
}

// dispatch handles one inbound frame. Failures are reported to c only.
func (h *Hub) dispatch(c *websocket.Connection, raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		h.sendError(c, protocol.CodeBadRequest, "", err)
		return
	}
	if protocol.IsInbound(env.Event) {
		h.Metrics.EventReceived(env.Event)
	} else {
		// client-chosen names would grow the label set without bound
		h.Metrics.EventReceived(unknownEventLabel)
	}

	var authErr error
	if env.Token != "" {
		authErr = h.authenticate(c, env.Token)
	}

	var caller identity.Identity
	if identityRequired[env.Event] {
		id, ok := c.Identity()
		if !ok {
			if authErr == nil {
				authErr = errUnauthenticated
			}
			h.sendError(c, protocol.CodeUnauthenticated, env.Event, authErr)
			return
		}
		caller = id
	}

	switch env.Event {
	case protocol.EventJoinRoom:
		var p protocol.JoinRoom
		if h.decode(c, env, &p) && h.validRoomKey(c, env.Event, p.RoomKey) {
			h.Relay.Join(c.ID, p.RoomKey)
		}

	case protocol.EventLeaveRoom:
		var p protocol.JoinRoom
		if h.decode(c, env, &p) {
			h.Relay.Leave(c.ID, p.RoomKey)
		}

	case protocol.EventSendMessage:
		var p protocol.SendMessage
		if h.decode(c, env, &p) && h.validRoomKey(c, env.Event, p.TicketID) {
			h.sendMessage(c, caller, p)
		}

	case protocol.EventLocationUpdate:
		var p protocol.LocationUpdate
		if h.decode(c, env, &p) {
			h.Location.Publish(c.ID, p)
		}

	case protocol.EventCallJoin:
		var p protocol.CallRoom
		if h.decode(c, env, &p) && h.validRoomKey(c, env.Event, p.RoomID) {
			h.signal(c, env.Event, h.Calls.Join(c.ID, p.RoomID))
		}

	case protocol.EventCallReady:
		var p protocol.CallRoom
		if h.decode(c, env, &p) {
			h.signal(c, env.Event, h.Calls.Ready(c.ID, p.RoomID))
		}

	case protocol.EventOffer:
		var p protocol.Offer
		if h.decode(c, env, &p) {
			h.signal(c, env.Event, h.Calls.Offer(c.ID, p))
		}

	case protocol.EventAnswer:
		var p protocol.Answer
		if h.decode(c, env, &p) {
			h.signal(c, env.Event, h.Calls.Answer(c.ID, p))
		}

	case protocol.EventICECandidate:
		var p protocol.ICECandidate
		if h.decode(c, env, &p) {
			h.signal(c, env.Event, h.Calls.ICECandidate(c.ID, p))
		}

	case protocol.EventConnectionState:
		var p protocol.ConnectionState
		if h.decode(c, env, &p) {
			h.signal(c, env.Event, h.Calls.ConnectionState(c.ID, p))
		}

	case protocol.EventCallLeave:
		var p protocol.CallRoom
		if h.decode(c, env, &p) {
			h.Calls.Leave(c.ID, p.RoomID)
		}

	default:
		h.sendError(c, protocol.CodeUnknownEvent, env.Event, fmt.Errorf("unknown event %q", env.Event))
	}
}

func (h *Hub) sendMessage(c *websocket.Connection, caller identity.Identity, p protocol.SendMessage) {
	p.SenderName = h.Validator.SanitizeDisplayName(p.SenderName)

	ctx, cancel := context.WithTimeout(h.ctx, h.opTimeout)
	defer cancel()

	_, _, err := h.Relay.Send(ctx, c.ID, caller, p)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrSenderMismatch):
		h.sendError(c, protocol.CodeForbidden, protocol.EventSendMessage, err)
	default:
		h.sendError(c, protocol.CodePersistenceFailed, protocol.EventSendMessage, err)
	}
}

// signal reports a coordinator error back to the offending connection.
func (h *Hub) signal(c *websocket.Connection, event string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, signaling.ErrCallFull):
		h.sendError(c, protocol.CodeCallFull, event, err)
	case signaling.IsViolation(err):
		log.Printf("⚠️ Signaling violation from %s on %s: %v", c.ID, event, err)
		h.sendError(c, protocol.CodeProtocolViolation, event, err)
	default:
		h.sendError(c, protocol.CodeBadRequest, event, err)
	}
}

func (h *Hub) decode(c *websocket.Connection, env *protocol.Envelope, dst protocol.Payload) bool {
	if err := env.Decode(dst); err != nil {
		h.sendError(c, protocol.CodeBadRequest, env.Event, err)
		return false
	}
	return true
}

func (h *Hub) validRoomKey(c *websocket.Connection, event, key string) bool {
	if err := h.Validator.ValidateRoomKey(key); err != nil {
		h.sendError(c, protocol.CodeBadRequest, event, err)
		return false
	}
	return true
}

func (h *Hub) sendError(c *websocket.Connection, code, event string, err error) {
	h.Metrics.ErrorSent(code)
	frame := protocol.MustEncode(protocol.EventError, protocol.ErrorPayload{
		Code:    code,
		Message: err.Error(),
		Event:   event,
	})
	if sendErr := h.Manager.Send(c.ID, frame); sendErr != nil {
		log.Printf("❌ Failed to send %s error to %s: %v", code, c.ID, sendErr)
	}
}
