// Package location fans driver positions out to connected sessions.
//
// The global broadcaster sends every update to every other connected
// session regardless of room or role. Any client therefore sees every
// driver's raw coordinates; a scoped Broadcaster can replace it without
// changing callers.
package location

import (
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/room"
)

// Broadcaster publishes a position reported by one connection.
type Broadcaster interface {
	Publish(connID string, update protocol.LocationUpdate) room.Delivery
}

// Fanout delivers a frame to every connected session except excludeID.
type Fanout interface {
	BroadcastAll(frame []byte, excludeID string) room.Delivery
}

var _ Broadcaster = (*GlobalBroadcaster)(nil)

// GlobalBroadcaster sends driverLocation to all other sessions.
type GlobalBroadcaster struct {
	fanout  Fanout
	metrics *metrics.Metrics
}

func NewGlobalBroadcaster(fanout Fanout, m *metrics.Metrics) *GlobalBroadcaster {
	return &GlobalBroadcaster{fanout: fanout, metrics: m}
}

// Publish expects an update that passed LocationUpdate.Validate.
func (b *GlobalBroadcaster) Publish(connID string, update protocol.LocationUpdate) room.Delivery {
	frame := protocol.MustEncode(protocol.EventDriverLocation, protocol.DriverLocation{
		Lat:       *update.Lat,
		Lng:       *update.Lng,
		BookingID: update.BookingID,
	})
	d := b.fanout.BroadcastAll(frame, connID)
	b.metrics.Delivered(d.Delivered, d.Dropped)
	return d
}
