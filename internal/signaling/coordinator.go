// Package signaling coordinates two-party WebRTC call rooms. It routes SDP
// and ICE between the participants and never inspects their contents.
package signaling

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/room"
)

var (
	ErrNotJoined        = errors.New("connection has not joined the call room")
	ErrAlreadyInCall    = errors.New("connection is already in another call room")
	ErrCallFull         = errors.New("call room already has two participants")
	ErrNotParticipant   = errors.New("connection is not a call participant")
	ErrUnexpectedSignal = errors.New("signal not valid in the current call phase")
)

// Phase is the signaling state of one call room.
type Phase int

const (
	PhaseEmpty     Phase = iota // no call state
	PhaseReady                  // one participant waiting
	PhaseStarting               // start-call sent to the first participant
	PhaseOffered                // offer relayed, waiting for answer
	PhaseConnected              // answer relayed; signaling handshake done
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseReady:
		return "ready"
	case PhaseStarting:
		return "starting"
	case PhaseOffered:
		return "offered"
	case PhaseConnected:
		return "connected"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// IsViolation reports whether err is a signaling protocol violation
// (as opposed to the capacity rejection ErrCallFull).
func IsViolation(err error) bool {
	return errors.Is(err, ErrNotJoined) ||
		errors.Is(err, ErrAlreadyInCall) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrUnexpectedSignal)
}

type call struct {
	participants []string // in ready order; participants[0] is told to start
	phase        Phase
	offerer      string
}

func (c *call) has(connID string) bool {
	for _, p := range c.participants {
		if p == connID {
			return true
		}
	}
	return false
}

func (c *call) peerOf(connID string) string {
	for _, p := range c.participants {
		if p != connID {
			return p
		}
	}
	return ""
}

// Coordinator holds per-room call state on top of the room registry.
type Coordinator struct {
	registry *room.Registry
	metrics  *metrics.Metrics
	calls    map[string]*call  // room id -> call
	joined   map[string]string // conn id -> call room id
	mutex    sync.Mutex
}

// NewCoordinator creates a coordinator delivering through registry.
func NewCoordinator(registry *room.Registry, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		registry: registry,
		metrics:  m,
		calls:    make(map[string]*call),
		joined:   make(map[string]string),
	}
}

// Join places connID in a call room. A connection is in at most one call room.
func (c *Coordinator) Join(connID, roomID string) error {
	c.mutex.Lock()
	if current, ok := c.joined[connID]; ok && current != roomID {
		c.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyInCall, current)
	}
	c.joined[connID] = roomID
	c.mutex.Unlock()

	c.registry.Join(connID, room.CallKey(roomID))
	return nil
}

// Ready marks connID ready. The second distinct participant triggers
// start-call to the first; a third is rejected with ErrCallFull.
func (c *Coordinator) Ready(connID, roomID string) error {
	c.mutex.Lock()
	if c.joined[connID] != roomID {
		c.mutex.Unlock()
		return ErrNotJoined
	}

	cl, ok := c.calls[roomID]
	if !ok {
		cl = &call{phase: PhaseEmpty}
		c.calls[roomID] = cl
	}
	if cl.has(connID) {
		c.mutex.Unlock()
		return nil
	}
	if len(cl.participants) >= 2 {
		c.mutex.Unlock()
		return ErrCallFull
	}

	cl.participants = append(cl.participants, connID)
	var starter string
	if len(cl.participants) == 1 {
		cl.phase = PhaseReady
	} else {
		cl.phase = PhaseStarting
		starter = cl.participants[0]
	}
	active := len(c.calls)
	c.mutex.Unlock()

	c.metrics.SetActiveCalls(active)
	if starter != "" {
		log.Printf("📞 Call room '%s' has two participants, asking %s to start", roomID, starter)
		c.registry.SendTo(starter, protocol.MustEncode(protocol.EventStartCall, protocol.CallRoom{RoomID: roomID}))
	}
	return nil
}

// Offer relays an SDP offer to the peer. Offers after Connected renegotiate.
func (c *Coordinator) Offer(connID string, offer protocol.Offer) error {
	peer, err := c.transition(connID, offer.RoomID, func(cl *call) error {
		if cl.phase < PhaseStarting {
			return fmt.Errorf("%w: offer in %s", ErrUnexpectedSignal, cl.phase)
		}
		// the first offer comes from whoever was sent start-call
		if cl.phase == PhaseStarting && connID != cl.participants[0] {
			return fmt.Errorf("%w: %s was not asked to start the call", ErrUnexpectedSignal, connID)
		}
		cl.phase = PhaseOffered
		cl.offerer = connID
		return nil
	})
	if err != nil {
		return err
	}
	c.registry.SendTo(peer, protocol.MustEncode(protocol.EventOffer, offer))
	return nil
}

// Answer relays an SDP answer to the offerer and marks the call connected.
func (c *Coordinator) Answer(connID string, answer protocol.Answer) error {
	peer, err := c.transition(connID, answer.RoomID, func(cl *call) error {
		if cl.phase != PhaseOffered {
			return fmt.Errorf("%w: answer in %s", ErrUnexpectedSignal, cl.phase)
		}
		if cl.offerer == connID {
			return fmt.Errorf("%w: offerer cannot answer its own offer", ErrUnexpectedSignal)
		}
		cl.phase = PhaseConnected
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("📞 Call room '%s' connected", answer.RoomID)
	c.registry.SendTo(peer, protocol.MustEncode(protocol.EventAnswer, answer))
	return nil
}

// ICECandidate relays a candidate to the peer once one exists.
func (c *Coordinator) ICECandidate(connID string, candidate protocol.ICECandidate) error {
	peer, err := c.transition(connID, candidate.RoomID, func(cl *call) error {
		if cl.phase < PhaseStarting {
			return fmt.Errorf("%w: no peer to receive candidate", ErrUnexpectedSignal)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.registry.SendTo(peer, protocol.MustEncode(protocol.EventICECandidate, candidate))
	return nil
}

// ConnectionState relays a peer-connection state report to the sender's
// counterpart. It never changes the call phase; with no counterpart yet the
// report is dropped.
func (c *Coordinator) ConnectionState(connID string, state protocol.ConnectionState) error {
	c.mutex.Lock()
	current, ok := c.joined[connID]
	c.mutex.Unlock()

	if !ok || (state.RoomID != "" && state.RoomID != current) {
		return ErrNotJoined
	}
	state.RoomID = current

	peer, err := c.transition(connID, current, func(*call) error { return nil })
	if err != nil {
		return err
	}
	if peer == "" {
		return nil
	}
	if c.registry.SendTo(peer, protocol.MustEncode(protocol.EventConnectionState, state)) {
		c.metrics.Delivered(1, 0)
	} else {
		c.metrics.Delivered(0, 1)
	}
	return nil
}

// Leave removes connID from its call room. If it was a participant the
// remaining one gets exactly one user-left and the call state is discarded.
// Leaving a room one is not in is a no-op.
func (c *Coordinator) Leave(connID, roomID string) {
	c.mutex.Lock()
	if c.joined[connID] != roomID {
		c.mutex.Unlock()
		return
	}
	delete(c.joined, connID)

	var notify string
	if cl, ok := c.calls[roomID]; ok && cl.has(connID) {
		notify = cl.peerOf(connID)
		delete(c.calls, roomID)
	}
	active := len(c.calls)
	c.mutex.Unlock()

	c.registry.Leave(connID, room.CallKey(roomID))
	c.metrics.SetActiveCalls(active)

	if notify != "" {
		log.Printf("👋 %s left call room '%s', notifying %s", connID, roomID, notify)
		c.registry.SendTo(notify, protocol.MustEncode(protocol.EventUserLeft, protocol.CallRoom{RoomID: roomID}))
	}
}

// Disconnect tears down whatever call room connID was in.
func (c *Coordinator) Disconnect(connID string) {
	c.mutex.Lock()
	roomID, ok := c.joined[connID]
	c.mutex.Unlock()
	if ok {
		c.Leave(connID, roomID)
	}
}

// CurrentRoom returns the call room connID has joined.
func (c *Coordinator) CurrentRoom(connID string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	roomID, ok := c.joined[connID]
	return roomID, ok
}

// Phase returns the signaling phase of roomID.
func (c *Coordinator) Phase(roomID string) Phase {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if cl, ok := c.calls[roomID]; ok {
		return cl.phase
	}
	return PhaseEmpty
}

// Participants returns the ready participants of roomID in ready order.
func (c *Coordinator) Participants(roomID string) []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	cl, ok := c.calls[roomID]
	if !ok {
		return nil
	}
	return append([]string(nil), cl.participants...)
}

// transition checks that connID participates in roomID, applies fn under
// the lock and returns the peer to relay to.
func (c *Coordinator) transition(connID, roomID string, fn func(*call) error) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.joined[connID] != roomID {
		return "", ErrNotJoined
	}
	cl, ok := c.calls[roomID]
	if !ok || !cl.has(connID) {
		return "", ErrNotParticipant
	}
	if err := fn(cl); err != nil {
		return "", err
	}
	return cl.peerOf(connID), nil
}
