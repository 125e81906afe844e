// Package events streams playback changes to browsers over SSE.
package events

import (
	"encoding/json"
	"net/http"

	"github.com/r3labs/sse/v2"

	"github.com/3ll3d00d/jriver-bridge/coordinator"
)

const playbackStream = "playback"

// Server fans playback snapshots out to SSE subscribers.
type Server struct {
	sse *sse.Server
}

func NewServer() *Server {
	s := sse.New()
	s.AutoReplay = false
	s.CreateStream(playbackStream)
	return &Server{sse: s}
}

// PublishSnapshot pushes the snapshot to all subscribers of the
// playback stream.
func (s *Server) PublishSnapshot(snap *coordinator.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	s.sse.Publish(playbackStream, &sse.Event{Data: payload})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.sse.ServeHTTP(w, r)
}

func (s *Server) Close() {
	s.sse.Close()
}

// Changed reports whether the difference between two snapshots is
// worth announcing. Position advancing on its own is not, every
// playing second would otherwise become an event.
func Changed(prev, next *coordinator.Snapshot) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	if next.ViewMode != prev.ViewMode {
		return true
	}
	prevZone, _ := prev.ActiveZoneName()
	nextZone, _ := next.ActiveZoneName()
	if prevZone != nextZone {
		return true
	}
	if len(prev.Zones) != len(next.Zones) {
		return true
	}
	for zone, pi := range next.Playback {
		last, ok := prev.Playback[zone]
		if !ok {
			return true
		}
		if pi.FileKey != last.FileKey || pi.State != last.State {
			return true
		}
		if pi.Volume != last.Volume || pi.Muted != last.Muted {
			return true
		}
	}
	return false
}
