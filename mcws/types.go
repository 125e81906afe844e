package mcws

import "strconv"

// ServerInfo describes the server answering on the configured address.
type ServerInfo struct {
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	Version   string `json:"version"`
	AccessKey string `json:"access_key,omitempty"`
}

// Zone is an independently controllable playback output on the server.
type Zone struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	IsDLNA bool   `json:"is_dlna"`
}

// PlaybackState mirrors the State field of Playback/Info.
type PlaybackState int

const (
	StateUnknown PlaybackState = iota - 1
	StateStopped
	StatePaused
	StatePlaying
	StateWaiting
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateWaiting:
		return "waiting"
	}
	return "unknown"
}

// ParsePlaybackState converts the raw State item to a PlaybackState.
func ParsePlaybackState(v string) PlaybackState {
	i, err := strconv.Atoi(v)
	if err != nil || i < int(StateStopped) || i > int(StateWaiting) {
		return StateUnknown
	}
	return PlaybackState(i)
}

// ViewMode is the server UI visibility state. Values match the raw Mode
// reported by UserInterface/Info so that "off" sorts below every
// visible mode.
type ViewMode int

const (
	ViewModeUnknown  ViewMode = -2000
	ViewModeNoUI     ViewMode = -1000
	ViewModeStandard ViewMode = 0
	ViewModeMini     ViewMode = 1
	ViewModeDisplay  ViewMode = 2
	ViewModeTheater  ViewMode = 3
	ViewModeCover    ViewMode = 4
)

func (v ViewMode) String() string {
	switch v {
	case ViewModeNoUI:
		return "no_ui"
	case ViewModeStandard:
		return "standard"
	case ViewModeMini:
		return "mini"
	case ViewModeDisplay:
		return "display"
	case ViewModeTheater:
		return "theater"
	case ViewModeCover:
		return "cover"
	}
	return "unknown"
}

// ParseViewMode converts the raw Mode item to a ViewMode.
func ParseViewMode(v string) ViewMode {
	i, err := strconv.Atoi(v)
	if err != nil {
		return ViewModeUnknown
	}
	switch m := ViewMode(i); m {
	case ViewModeNoUI, ViewModeStandard, ViewModeMini, ViewModeDisplay, ViewModeTheater, ViewModeCover:
		return m
	}
	return ViewModeUnknown
}

// MediaType is the server's top level classification of a library item.
type MediaType string

const (
	MediaTypeAudio    MediaType = "Audio"
	MediaTypeVideo    MediaType = "Video"
	MediaTypeTV       MediaType = "TV"
	MediaTypeImage    MediaType = "Image"
	MediaTypeData     MediaType = "Data"
	MediaTypePlaylist MediaType = "Playlist"
)

// MediaSubType refines a MediaType, e.g. Video into Movie vs TV Show.
type MediaSubType string

const (
	MediaSubTypeMovie      MediaSubType = "Movie"
	MediaSubTypeTVShow     MediaSubType = "TV Show"
	MediaSubTypeMusic      MediaSubType = "Music"
	MediaSubTypeMusicVideo MediaSubType = "Music Video"
	MediaSubTypePodcast    MediaSubType = "Podcast"
)

// PlaybackInfo is one zone's playback state as of a single poll.
type PlaybackInfo struct {
	ZoneID       int               `json:"zone_id"`
	ZoneName     string            `json:"zone_name"`
	State        PlaybackState     `json:"state"`
	FileKey      int               `json:"file_key"`
	PositionMS   int               `json:"position_ms"`
	DurationMS   int               `json:"duration_ms"`
	Volume       float64           `json:"volume"`
	Muted        bool              `json:"muted"`
	Name         string            `json:"name"`
	Artist       string            `json:"artist"`
	Album        string            `json:"album"`
	AlbumArtist  string            `json:"album_artist"`
	Series       string            `json:"series"`
	Season       string            `json:"season"`
	Episode      string            `json:"episode"`
	ImageURL     string            `json:"image_url"`
	LiveInput    bool              `json:"live_input"`
	MediaType    MediaType         `json:"media_type"`
	MediaSubType MediaSubType      `json:"media_sub_type"`
	ExtraFields  map[string]string `json:"extra_fields,omitempty"`
}

// BrowseRule is one raw library browsing rule as returned by the
// server. Conversion into matchable paths lives in the browse package.
type BrowseRule struct {
	Categories    string
	Tags          string
	MediaTypes    string
	MediaSubTypes string
}

// keyCommands maps friendly key names onto the literal key strings
// accepted by Control/Key. Anything not listed is sent verbatim.
var keyCommands = map[string]string{
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"enter":     "Enter",
	"home":      "Home",
	"end":       "End",
	"page_up":   "Page Up",
	"page_down": "Page Down",
	"back":      "Backspace",
	"menu":      "Menu",
}

// KeyFor resolves a friendly key command name, falling back to the
// supplied value so arbitrary characters can be sent through.
func KeyFor(name string) string {
	if k, ok := keyCommands[name]; ok {
		return k
	}
	return name
}
