package location

import (
	"encoding/json"
	"testing"

	"petbuddy-realtime/internal/protocol"
	"petbuddy-realtime/internal/room"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessions struct {
	ids    []string
	frames map[string][][]byte
}

func (s *sessions) BroadcastAll(frame []byte, excludeID string) room.Delivery {
	var d room.Delivery
	for _, id := range s.ids {
		if id == excludeID {
			continue
		}
		d.Recipients++
		d.Delivered++
		s.frames[id] = append(s.frames[id], frame)
	}
	return d
}

func ptr(v float64) *float64 { return &v }

func TestGlobalBroadcaster_ReachesEveryOtherSession(t *testing.T) {
	s := &sessions{ids: []string{"driver", "u1", "u2", "u3"}, frames: map[string][][]byte{}}
	b := NewGlobalBroadcaster(s, nil)

	d := b.Publish("driver", protocol.LocationUpdate{Lat: ptr(12.97), Lng: ptr(77.59), BookingID: "B-1"})
	assert.Equal(t, 3, d.Delivered)
	assert.Empty(t, s.frames["driver"])

	for _, id := range []string{"u1", "u2", "u3"} {
		require.Len(t, s.frames[id], 1)
		var f struct {
			Event string                  `json:"event"`
			Data  protocol.DriverLocation `json:"data"`
		}
		require.NoError(t, json.Unmarshal(s.frames[id][0], &f))
		assert.Equal(t, protocol.EventDriverLocation, f.Event)
		assert.Equal(t, protocol.DriverLocation{Lat: 12.97, Lng: 77.59, BookingID: "B-1"}, f.Data)
	}
}
