package room

import (
	"log"
	"sort"
	"sync"
)

// Sender delivers an encoded frame to a single connection.
// An error means the frame was not queued (connection gone or unresponsive).
type Sender interface {
	Send(connID string, frame []byte) error
}

// Delivery summarises one fan-out.
type Delivery struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Dropped    int `json:"dropped"`
}

// Add merges another delivery into d.
func (d *Delivery) Add(other Delivery) {
	d.Recipients += other.Recipients
	d.Delivered += other.Delivered
	d.Dropped += other.Dropped
}

// Room key namespaces. Chat and call rooms never share a key even if ids collide.
const (
	chatPrefix = "chat:"
	callPrefix = "call:"
)

// ChatKey returns the registry key of a chat ticket room.
func ChatKey(ticketID string) string { return chatPrefix + ticketID }

// CallKey returns the registry key of a video-call room.
func CallKey(roomID string) string { return callPrefix + roomID }

// Registry maps room keys to the connections that explicitly joined them.
type Registry struct {
	sender      Sender
	rooms       map[string]map[string]struct{} // room key -> conn ids
	memberships map[string]map[string]struct{} // conn id -> room keys
	mutex       sync.RWMutex
}

// NewRegistry creates an empty registry delivering through sender.
func NewRegistry(sender Sender) *Registry {
	return &Registry{
		sender:      sender,
		rooms:       make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to key. It reports whether the membership is new.
func (r *Registry) Join(connID, key string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	members, ok := r.rooms[key]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[key] = members
	}
	if _, exists := members[connID]; exists {
		return false
	}
	members[connID] = struct{}{}

	keys, ok := r.memberships[connID]
	if !ok {
		keys = make(map[string]struct{})
		r.memberships[connID] = keys
	}
	keys[key] = struct{}{}

	log.Printf("🚪 %s joined room '%s' (%d members)", connID, key, len(members))
	return true
}

// Leave removes connID from key. Leaving a room one is not in is a no-op.
func (r *Registry) Leave(connID, key string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.leaveLocked(connID, key)
}

// LeaveAll removes connID from every room and returns the keys it left.
func (r *Registry) LeaveAll(connID string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	keys := make([]string, 0, len(r.memberships[connID]))
	for key := range r.memberships[connID] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		r.leaveLocked(connID, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) leaveLocked(connID, key string) bool {
	members, ok := r.rooms[key]
	if !ok {
		return false
	}
	if _, exists := members[connID]; !exists {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, key)
	}
	if keys, ok := r.memberships[connID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.memberships, connID)
		}
	}

	log.Printf("🚪 %s left room '%s' (%d members)", connID, key, len(members))
	return true
}

// IsMember reports whether connID currently belongs to key.
func (r *Registry) IsMember(connID, key string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, ok := r.rooms[key][connID]
	return ok
}

// Members returns the sorted connection ids of key.
func (r *Registry) Members(key string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	members := make([]string, 0, len(r.rooms[key]))
	for connID := range r.rooms[key] {
		members = append(members, connID)
	}
	sort.Strings(members)
	return members
}

// Rooms returns the sorted room keys connID belongs to.
func (r *Registry) Rooms(connID string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]string, 0, len(r.memberships[connID]))
	for key := range r.memberships[connID] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.rooms)
}

// Broadcast sends frame to every member of key except excludeID.
// Failed sends are counted as dropped, never returned.
func (r *Registry) Broadcast(key string, frame []byte, excludeID string) Delivery {
	// snapshot สมาชิกก่อน แล้วค่อยส่งนอก lock
	members := r.Members(key)

	var d Delivery
	for _, connID := range members {
		if connID == excludeID {
			continue
		}
		d.Recipients++
		if r.SendTo(connID, frame) {
			d.Delivered++
		} else {
			d.Dropped++
		}
	}

	if d.Recipients > 0 {
		log.Printf("📡 Broadcast to room '%s': %d/%d delivered (excluded: %s)", key, d.Delivered, d.Recipients, excludeID)
	}
	return d
}

// SendTo delivers frame to one connection and reports whether it was queued.
func (r *Registry) SendTo(connID string, frame []byte) bool {
	if err := r.sender.Send(connID, frame); err != nil {
		log.Printf("🔌 Dropped frame for %s: %v", connID, err)
		return false
	}
	return true
}
