package mcws

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/3ll3d00d/jriver-bridge/utils"
)

// Options configures a MediaServer connection.
type Options struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	Timeout  time.Duration
}

// MediaServer is a thin client for the MCWS HTTP API. It only covers
// the operations the bridge consumes; the wire layer is deliberately
// minimal glue.
type MediaServer struct {
	base     *url.URL
	username string
	password string
	http     *http.Client

	mu    sync.Mutex
	token string
}

// NewMediaServer creates a client for the given server. No connection
// is made until the first call.
func NewMediaServer(opts Options) *MediaServer {
	scheme := "http"
	if opts.SSL {
		scheme = "https"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MediaServer{
		base: &url.URL{
			Scheme: scheme,
			Host:   fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		},
		username: opts.Username,
		password: opts.Password,
		http:     utils.NewHTTPClient(timeout),
	}
}

type mcwsResponse struct {
	XMLName xml.Name   `xml:"Response"`
	Status  string     `xml:"Status,attr"`
	Items   []mcwsItem `xml:"Item"`
}

type mcwsItem struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

type mplDocument struct {
	XMLName xml.Name  `xml:"MPL"`
	Items   []mplItem `xml:"Item"`
}

type mplItem struct {
	Fields []mplField `xml:"Field"`
}

type mplField struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// MakeURL resolves a server relative path, e.g. an image URL reported
// by Playback/Info, into an absolute URL.
func (m *MediaServer) MakeURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.Contains(path, "://") {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return ""
	}
	return m.base.ResolveReference(ref).String()
}

// Close releases any idle connections held by the client.
func (m *MediaServer) Close() {
	m.http.CloseIdleConnections()
}

func (m *MediaServer) endpoint(path string, params url.Values) string {
	u := *m.base
	u.Path = "/MCWS/v1/" + path
	m.mu.Lock()
	if m.token != "" {
		params.Set("Token", m.token)
	}
	m.mu.Unlock()
	u.RawQuery = params.Encode()
	return u.String()
}

// ensureToken authenticates on first use so credentials travel once
// per session. A 401 clears the token, the next call starts over.
func (m *MediaServer) ensureToken(ctx context.Context) error {
	m.mu.Lock()
	have := m.token != ""
	m.mu.Unlock()
	if have {
		return nil
	}
	_, err := m.Authenticate(ctx)
	return err
}

func (m *MediaServer) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if m.username != "" && path != "Authenticate" {
		if err := m.ensureToken(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint(path, params), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if m.username != "" {
		req.SetBasicAuth(m.username, m.password)
	}
	res, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		m.mu.Lock()
		m.token = ""
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidAuth, res.Status)
	case res.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, res.Status)
	case res.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", ErrMediaServer, res.Status)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %s", ErrMediaServer, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	return body, nil
}

// get issues a standard MCWS call and returns the response items keyed
// by name.
func (m *MediaServer) get(ctx context.Context, path string, params url.Values) (map[string]string, error) {
	body, err := m.fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var res mcwsResponse
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed response for %s: %v", ErrMediaServer, path, err)
	}
	if !strings.EqualFold(res.Status, "OK") {
		vals := itemsToMap(res.Items)
		if info := vals["Information"]; info != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, info)
		}
		return nil, fmt.Errorf("%w: %s returned status %s", ErrInvalidRequest, path, res.Status)
	}
	return itemsToMap(res.Items), nil
}

// getMPL issues an MCWS call that answers with an MPL playlist
// document and returns one field map per item.
func (m *MediaServer) getMPL(ctx context.Context, path string, params url.Values) ([]map[string]string, error) {
	body, err := m.fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var doc mplDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed playlist for %s: %v", ErrMediaServer, path, err)
	}
	out := make([]map[string]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		vals := make(map[string]string, len(item.Fields))
		for _, f := range item.Fields {
			vals[f.Name] = strings.TrimSpace(f.Value)
		}
		out = append(out, vals)
	}
	return out, nil
}

func itemsToMap(items []mcwsItem) map[string]string {
	vals := make(map[string]string, len(items))
	for _, item := range items {
		vals[item.Name] = strings.TrimSpace(item.Value)
	}
	return vals
}

func zoneParams(zone string) url.Values {
	params := url.Values{}
	if zone != "" {
		params.Set("Zone", zone)
		params.Set("ZoneType", "Name")
	}
	return params
}

// Authenticate obtains a session token. Later calls reuse the token so
// credentials travel once per session rather than once per request.
func (m *MediaServer) Authenticate(ctx context.Context) (string, error) {
	vals, err := m.get(ctx, "Authenticate", nil)
	if err != nil {
		return "", err
	}
	token := vals["Token"]
	if token == "" {
		return "", fmt.Errorf("%w: no token in authenticate response", ErrMediaServer)
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return token, nil
}

// Alive confirms the server is reachable and reports its identity.
func (m *MediaServer) Alive(ctx context.Context) (ServerInfo, error) {
	vals, err := m.get(ctx, "Alive", nil)
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{
		Name:      vals["FriendlyName"],
		Platform:  vals["PlatformName"],
		Version:   vals["ProgramVersion"],
		AccessKey: vals["AccessKey"],
	}, nil
}

// GetZones lists the configured playback zones in server order.
func (m *MediaServer) GetZones(ctx context.Context) ([]Zone, error) {
	vals, err := m.get(ctx, "Playback/Zones", nil)
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(vals["NumberZones"])
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable zone count %q", ErrMediaServer, vals["NumberZones"])
	}
	currentID := -1
	if v, err := strconv.Atoi(vals["CurrentZoneID"]); err == nil {
		currentID = v
	}
	zones := make([]Zone, 0, count)
	for i := 0; i < count; i++ {
		id, err := strconv.Atoi(vals[fmt.Sprintf("ZoneID%d", i)])
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable zone id at index %d", ErrMediaServer, i)
		}
		zones = append(zones, Zone{
			ID:     id,
			Name:   vals[fmt.Sprintf("ZoneName%d", i)],
			Active: id == currentID,
			IsDLNA: vals[fmt.Sprintf("ZoneDLNA%d", i)] == "1",
		})
	}
	return zones, nil
}

// GetViewMode reports the server UI visibility state.
func (m *MediaServer) GetViewMode(ctx context.Context) (ViewMode, error) {
	vals, err := m.get(ctx, "UserInterface/Info", nil)
	if err != nil {
		return ViewModeUnknown, err
	}
	return ParseViewMode(vals["Mode"]), nil
}

// playbackInfoFields are the Playback/Info items consumed directly.
// Anything else lands in ExtraFields when it was asked for.
var playbackInfoFields = map[string]struct{}{
	"ZoneID": {}, "ZoneName": {}, "State": {}, "FileKey": {},
	"PositionMS": {}, "DurationMS": {}, "Volume": {}, "VolumeDisplay": {},
	"Mute": {}, "ImageURL": {}, "Name": {}, "Artist": {}, "Album": {},
	"Album Artist (auto)": {}, "Series": {}, "Season": {}, "Episode": {},
	"LiveInput": {}, "MediaType": {}, "MediaSubType": {}, "Status": {},
}

// GetPlaybackInfo fetches one zone's playback state. Any extraFields
// are requested in addition to the standard set and surfaced verbatim.
func (m *MediaServer) GetPlaybackInfo(ctx context.Context, zone string, extraFields []string) (PlaybackInfo, error) {
	params := zoneParams(zone)
	if len(extraFields) > 0 {
		params.Set("Fields", strings.Join(extraFields, ";"))
	}
	vals, err := m.get(ctx, "Playback/Info", params)
	if err != nil {
		return PlaybackInfo{}, err
	}
	info := PlaybackInfo{
		ZoneName:     vals["ZoneName"],
		State:        ParsePlaybackState(vals["State"]),
		FileKey:      atoiOr(vals["FileKey"], -1),
		PositionMS:   atoiOr(vals["PositionMS"], 0),
		DurationMS:   atoiOr(vals["DurationMS"], 0),
		Muted:        vals["Mute"] == "1",
		Name:         vals["Name"],
		Artist:       vals["Artist"],
		Album:        vals["Album"],
		AlbumArtist:  vals["Album Artist (auto)"],
		Series:       vals["Series"],
		Season:       vals["Season"],
		Episode:      vals["Episode"],
		ImageURL:     vals["ImageURL"],
		LiveInput:    vals["LiveInput"] == "1",
		MediaType:    MediaType(vals["MediaType"]),
		MediaSubType: MediaSubType(vals["MediaSubType"]),
	}
	info.ZoneID = atoiOr(vals["ZoneID"], -1)
	if v, err := strconv.ParseFloat(vals["Volume"], 64); err == nil {
		info.Volume = v
	}
	if len(extraFields) > 0 {
		extras := make(map[string]string, len(extraFields))
		for _, f := range extraFields {
			if _, std := playbackInfoFields[f]; std {
				continue
			}
			if v, ok := vals[f]; ok {
				extras[f] = v
			}
		}
		if len(extras) > 0 {
			info.ExtraFields = extras
		}
	}
	return info, nil
}

func atoiOr(v string, fallback int) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

// GetAudioPathDirect reports whether the zone's audio path is routed
// without any DSP between decode and output.
func (m *MediaServer) GetAudioPathDirect(ctx context.Context, zone string) (bool, error) {
	vals, err := m.get(ctx, "Playback/AudioPath", zoneParams(zone))
	if err != nil {
		return false, err
	}
	if direct, ok := vals["Direct"]; ok {
		return strings.EqualFold(direct, "yes"), nil
	}
	return strings.Contains(vals["AudioPath"], "Direct Connection"), nil
}

// GetCurrentPlaylist returns the zone's playing now list.
func (m *MediaServer) GetCurrentPlaylist(ctx context.Context, zone string) ([]map[string]string, error) {
	params := zoneParams(zone)
	params.Set("Fields", "Key;Name;Artist;Album;Duration")
	params.Set("Action", "MPL")
	return m.getMPL(ctx, "Playback/Playlist", params)
}

// GetBrowseRules fetches the server's library browsing rules.
func (m *MediaServer) GetBrowseRules(ctx context.Context) ([]BrowseRule, error) {
	items, err := m.getMPL(ctx, "Browse/Rules", url.Values{"Action": []string{"MPL"}})
	if err != nil {
		return nil, err
	}
	rules := make([]BrowseRule, 0, len(items))
	for _, item := range items {
		rules = append(rules, BrowseRule{
			Categories:    item["Categories"],
			Tags:          item["Tags"],
			MediaTypes:    item["MediaTypes"],
			MediaSubTypes: item["MediaSubTypes"],
		})
	}
	return rules, nil
}

// BrowseChild is one node in the library browse tree.
type BrowseChild struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BrowseChildren lists the child nodes of the given tree node, -1 for
// the root. Order follows the server's item order.
func (m *MediaServer) BrowseChildren(ctx context.Context, id int) ([]BrowseChild, error) {
	params := url.Values{}
	params.Set("ID", strconv.Itoa(id))
	body, err := m.fetch(ctx, "Browse/Children", params)
	if err != nil {
		return nil, err
	}
	var res mcwsResponse
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed response for Browse/Children: %v", ErrMediaServer, err)
	}
	if !strings.EqualFold(res.Status, "OK") {
		return nil, fmt.Errorf("%w: Browse/Children returned status %s", ErrInvalidRequest, res.Status)
	}
	children := make([]BrowseChild, 0, len(res.Items))
	for _, item := range res.Items {
		childID, err := strconv.Atoi(strings.TrimSpace(item.Value))
		if err != nil {
			continue
		}
		children = append(children, BrowseChild{ID: childID, Name: item.Name})
	}
	return children, nil
}

// BrowseFiles lists the files beneath a leaf node of the browse tree.
func (m *MediaServer) BrowseFiles(ctx context.Context, id int) ([]map[string]string, error) {
	params := url.Values{}
	params.Set("ID", strconv.Itoa(id))
	params.Set("Action", "MPL")
	params.Set("Fields", "Key;Name;Artist;Album;Media Type;Media Sub Type;Episode;Track #;HDR Format")
	return m.getMPL(ctx, "Browse/Files", params)
}

// GetBrowseThumbnailURL builds the image URL for a browse tree node.
func (m *MediaServer) GetBrowseThumbnailURL(id int) string {
	return m.MakeURL(fmt.Sprintf("MCWS/v1/Browse/Image?ID=%d", id))
}

// GetFileImageURL builds the cover art URL for a library file.
func (m *MediaServer) GetFileImageURL(key int) string {
	return m.MakeURL(fmt.Sprintf("MCWS/v1/File/GetImage?File=%d", key))
}

func (m *MediaServer) command(ctx context.Context, path string, params url.Values) error {
	_, err := m.get(ctx, path, params)
	return err
}

// PlayPause toggles playback in the given zone.
func (m *MediaServer) PlayPause(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/PlayPause", zoneParams(zone))
}

func (m *MediaServer) Play(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/Play", zoneParams(zone))
}

func (m *MediaServer) Pause(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/Pause", zoneParams(zone))
}

func (m *MediaServer) Stop(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/Stop", zoneParams(zone))
}

// StopAll stops playback in every zone.
func (m *MediaServer) StopAll(ctx context.Context) error {
	return m.command(ctx, "Playback/StopAll", nil)
}

func (m *MediaServer) NextTrack(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/Next", zoneParams(zone))
}

func (m *MediaServer) PreviousTrack(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/Previous", zoneParams(zone))
}

// SetVolume sets the zone volume, level in the range 0..1.
func (m *MediaServer) SetVolume(ctx context.Context, zone string, level float64) error {
	params := zoneParams(zone)
	params.Set("Level", strconv.FormatFloat(level, 'f', 2, 64))
	return m.command(ctx, "Playback/Volume", params)
}

// AdjustVolume changes the zone volume by a relative amount in the
// range -1..1.
func (m *MediaServer) AdjustVolume(ctx context.Context, zone string, delta float64) error {
	params := zoneParams(zone)
	params.Set("Level", strconv.FormatFloat(delta, 'f', 2, 64))
	params.Set("Relative", "1")
	return m.command(ctx, "Playback/Volume", params)
}

func (m *MediaServer) Mute(ctx context.Context, zone string, mute bool) error {
	params := zoneParams(zone)
	if mute {
		params.Set("Set", "1")
	} else {
		params.Set("Set", "0")
	}
	return m.command(ctx, "Playback/Mute", params)
}

// Seek moves playback to the given position in milliseconds.
func (m *MediaServer) Seek(ctx context.Context, zone string, positionMS int) error {
	params := zoneParams(zone)
	params.Set("Position", strconv.Itoa(positionMS))
	return m.command(ctx, "Playback/Position", params)
}

// SeekRelative moves playback by the given number of milliseconds.
func (m *MediaServer) SeekRelative(ctx context.Context, zone string, deltaMS int) error {
	params := zoneParams(zone)
	params.Set("Position", strconv.Itoa(deltaMS))
	params.Set("Relative", "1")
	return m.command(ctx, "Playback/Position", params)
}

func (m *MediaServer) SetShuffle(ctx context.Context, zone string, shuffle bool) error {
	params := zoneParams(zone)
	if shuffle {
		params.Set("Mode", "On")
	} else {
		params.Set("Mode", "Off")
	}
	return m.command(ctx, "Playback/Shuffle", params)
}

// SetRepeat sets the repeat mode, one of Off, Playlist, Track.
func (m *MediaServer) SetRepeat(ctx context.Context, zone string, mode string) error {
	params := zoneParams(zone)
	params.Set("Mode", mode)
	return m.command(ctx, "Playback/Repeat", params)
}

func (m *MediaServer) ClearPlaylist(ctx context.Context, zone string) error {
	return m.command(ctx, "Playback/ClearPlaylist", zoneParams(zone))
}

// PlayPlaylist plays a named playlist by its path.
func (m *MediaServer) PlayPlaylist(ctx context.Context, zone string, playlist string) error {
	params := zoneParams(zone)
	params.Set("Playlist", playlist)
	params.Set("PlaylistType", "Path")
	return m.command(ctx, "Playback/PlayPlaylist", params)
}

// PlayFile plays a file or stream by URL or filename.
func (m *MediaServer) PlayFile(ctx context.Context, zone string, file string) error {
	params := zoneParams(zone)
	params.Set("Filenames", file)
	return m.command(ctx, "Playback/PlayByFilename", params)
}

// PlayItem plays a single library file by key.
func (m *MediaServer) PlayItem(ctx context.Context, zone string, key string) error {
	params := zoneParams(zone)
	params.Set("Key", key)
	return m.command(ctx, "Playback/PlayByKey", params)
}

// PlayBrowseFiles plays everything under a browse tree node.
func (m *MediaServer) PlayBrowseFiles(ctx context.Context, zone string, id int) error {
	params := zoneParams(zone)
	params.Set("ID", strconv.Itoa(id))
	params.Set("Action", "Play")
	return m.command(ctx, "Browse/Files", params)
}

// PlaySearch plays the results of a library search expression.
func (m *MediaServer) PlaySearch(ctx context.Context, zone string, query string) error {
	params := zoneParams(zone)
	params.Set("Query", query)
	params.Set("Action", "Play")
	return m.command(ctx, "Files/Search", params)
}

// SendMCC sends a raw MC command code with an optional parameter.
func (m *MediaServer) SendMCC(ctx context.Context, command int, param int, block bool) error {
	params := url.Values{}
	params.Set("Command", strconv.Itoa(command))
	params.Set("Parameter", strconv.Itoa(param))
	if block {
		params.Set("Block", "1")
	}
	return m.command(ctx, "Control/MCC", params)
}

const (
	mccShowStandardView = 22009
	mccCloseDisplay     = 20007
)

// TurnOn brings the server UI up in its standard view.
func (m *MediaServer) TurnOn(ctx context.Context) error {
	return m.SendMCC(ctx, mccShowStandardView, 0, true)
}

// TurnOff stops playback everywhere and closes the display.
func (m *MediaServer) TurnOff(ctx context.Context) error {
	if err := m.StopAll(ctx); err != nil {
		return err
	}
	return m.SendMCC(ctx, mccCloseDisplay, -1, true)
}

// SendKeyPresses sends a sequence of key presses to the server UI.
func (m *MediaServer) SendKeyPresses(ctx context.Context, keys []string) error {
	resolved := make([]string, 0, len(keys))
	for _, k := range keys {
		resolved = append(resolved, KeyFor(k))
	}
	params := url.Values{}
	params.Set("Key", strings.Join(resolved, ";"))
	return m.command(ctx, "Control/Key", params)
}
