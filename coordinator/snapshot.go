package coordinator

import (
	"time"

	"github.com/3ll3d00d/jriver-bridge/browse"
	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// Snapshot is the consolidated server state produced by one poll
// cycle. It is never mutated after publication, each cycle replaces it
// wholesale, so readers can hold a reference without locking.
type Snapshot struct {
	ServerInfo        *mcws.ServerInfo             `json:"server_info,omitempty"`
	Zones             []mcws.Zone                  `json:"zones"`
	Playback          map[string]mcws.PlaybackInfo `json:"playback_by_zone"`
	PositionUpdatedAt map[string]time.Time         `json:"position_updated_at_by_zone"`
	AudioDirect       map[string]bool              `json:"is_direct_by_zone"`
	Playlists         map[string][]map[string]string `json:"playlist_by_zone"`
	ViewMode          mcws.ViewMode                `json:"view_mode"`

	// BrowsePaths is nil when the server cannot serve rules, in which
	// case configured rule text applies instead.
	BrowsePaths     []browse.Path `json:"-"`
	LastPathRefresh time.Time     `json:"last_path_refresh,omitempty"`
}

// ActiveZoneName returns the name of the active zone, falling back to
// the first zone when none is flagged active, or "" with ok false when
// there are no zones.
func (s *Snapshot) ActiveZoneName() (string, bool) {
	if s == nil || len(s.Zones) == 0 {
		return "", false
	}
	for _, z := range s.Zones {
		if z.Active {
			return z.Name, true
		}
	}
	return s.Zones[0].Name, true
}

// ActiveZoneID mirrors ActiveZoneName for the zone id.
func (s *Snapshot) ActiveZoneID() (int, bool) {
	if s == nil || len(s.Zones) == 0 {
		return 0, false
	}
	for _, z := range s.Zones {
		if z.Active {
			return z.ID, true
		}
	}
	return s.Zones[0].ID, true
}

// PlaybackInfo returns playback state for the named zone, or for the
// active zone when zone is empty.
func (s *Snapshot) PlaybackInfo(zone string) (mcws.PlaybackInfo, bool) {
	return lookupZone(s, s.Playback, zone)
}

// PositionUpdatedAtFor returns when the zone's playback position was
// last observed to change.
func (s *Snapshot) PositionUpdatedAtFor(zone string) (time.Time, bool) {
	return lookupZone(s, s.PositionUpdatedAt, zone)
}

// AudioPathDirect reports whether the zone's audio path is direct.
func (s *Snapshot) AudioPathDirect(zone string) (bool, bool) {
	return lookupZone(s, s.AudioDirect, zone)
}

// Playlist returns the zone's playing now list.
func (s *Snapshot) Playlist(zone string) ([]map[string]string, bool) {
	return lookupZone(s, s.Playlists, zone)
}

func lookupZone[V any](s *Snapshot, vals map[string]V, zone string) (V, bool) {
	var zero V
	if s == nil {
		return zero, false
	}
	if zone == "" {
		name, ok := s.ActiveZoneName()
		if !ok {
			return zero, false
		}
		zone = name
	}
	v, ok := vals[zone]
	if !ok {
		return zero, false
	}
	return v, true
}
