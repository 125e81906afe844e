package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	"github.com/3ll3d00d/jriver-bridge/browse"
	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/events"
	"github.com/3ll3d00d/jriver-bridge/history"
	"github.com/3ll3d00d/jriver-bridge/mcws"
	"github.com/3ll3d00d/jriver-bridge/wol"
)

func renderJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func renderJSONMessage(w http.ResponseWriter, message string) {
	renderJSON(w, map[string]string{"message": message})
}

func renderJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type statusResponse struct {
	Server       *mcws.ServerInfo `json:"server,omitempty"`
	ViewMode     string           `json:"view_mode"`
	ActiveZone   string           `json:"active_zone,omitempty"`
	ActiveZoneID int              `json:"active_zone_id,omitempty"`
	NeedsAuth    bool             `json:"needs_auth"`
}

type browseNode struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	MediaClass   string `json:"media_class"`
	ContentType  string `json:"content_type,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type commandRequest struct {
	Command  string  `json:"command"`
	Zone     string  `json:"zone,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Position int     `json:"position_ms,omitempty"`
	Delta    int     `json:"delta_ms,omitempty"`
	Mute     bool    `json:"mute,omitempty"`
	Shuffle  bool    `json:"shuffle,omitempty"`
	Repeat   string  `json:"repeat,omitempty"`
	Playlist string  `json:"playlist,omitempty"`
	File     string  `json:"file,omitempty"`
	Key      string  `json:"key,omitempty"`
	BrowseID int     `json:"browse_id,omitempty"`
	Query    string  `json:"query,omitempty"`
	Keys     string  `json:"keys,omitempty"`
}

// Register wires every HTTP endpoint of the bridge onto the mux and
// returns the CORS wrapped handler to serve.
func Register(
	mux *http.ServeMux,
	coord *coordinator.Coordinator,
	client *mcws.MediaServer,
	store *history.Store,
	stream *events.Server,
	macAddresses []string,
) http.Handler {

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "Welcome to jriver-bridge, a JRiver Media Center remote control API.\nYou can find the source code on <a href=\"https://github.com/3ll3d00d/jriver-bridge\">Github</a>\n")
	})

	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "This is the base of the jriver-bridge API")
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		res := statusResponse{
			Server:    snap.ServerInfo,
			ViewMode:  snap.ViewMode.String(),
			NeedsAuth: coord.NeedsAuth(),
		}
		if zone, ok := snap.ActiveZoneName(); ok {
			res.ActiveZone = zone
		}
		if id, ok := snap.ActiveZoneID(); ok {
			res.ActiveZoneID = id
		}
		renderJSON(w, res)
	})

	mux.HandleFunc("/api/v1/zones", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, coord.Snapshot().Zones)
	})

	mux.HandleFunc("/api/v1/playing", func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		zone := r.URL.Query().Get("zone")
		pi, ok := snap.PlaybackInfo(zone)
		if !ok {
			renderJSONError(w, http.StatusNotFound, "no such zone")
			return
		}
		direct, _ := snap.AudioPathDirect(zone)
		posAt, _ := snap.PositionUpdatedAtFor(zone)
		res := map[string]any{
			"playback":            pi,
			"audio_direct":        direct,
			"position_updated_at": posAt,
		}
		if pi.FileKey > 0 {
			res["image_url"] = client.GetFileImageURL(pi.FileKey)
		}
		renderJSON(w, res)
	})

	mux.HandleFunc("/api/v1/playlist", func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		playlist, ok := snap.Playlist(r.URL.Query().Get("zone"))
		if !ok {
			renderJSONError(w, http.StatusNotFound, "no such zone")
			return
		}
		renderJSON(w, playlist)
	})

	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") == "true" {
			entries, err := store.Active()
			if err != nil {
				renderJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
			renderJSON(w, entries)
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				renderJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}
		entries, err := store.History(limit)
		if err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		renderJSON(w, entries)
	})

	mux.HandleFunc("/api/v1/browse", func(w http.ResponseWriter, r *http.Request) {
		handleBrowse(w, r, coord, client)
	})

	mux.HandleFunc("/api/v1/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := dispatchCommand(w, r, coord, client, req); err != nil {
			renderJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
	})

	mux.HandleFunc("/api/v1/wake", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			renderJSONError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if len(macAddresses) == 0 {
			renderJSONError(w, http.StatusBadRequest, "no MAC addresses configured")
			return
		}
		if err := wol.Wake(macAddresses); err != nil {
			renderJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		renderJSONMessage(w, "magic packets sent")
	})

	mux.HandleFunc("/events", stream.ServeHTTP)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Origin, Content-Type, Accept"},
	})

	return c.Handler(mux)
}

// handleBrowse lists the children of a library browse node, classified
// against the active browse rules. Nodes no rule covers are left out,
// they lead nowhere useful in a remote control UI.
func handleBrowse(w http.ResponseWriter, r *http.Request, coord *coordinator.Coordinator, client *mcws.MediaServer) {
	id := -1
	if v := r.URL.Query().Get("id"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			renderJSONError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		id = parsed
	}
	var tokens []string
	if v := r.URL.Query().Get("path"); v != "" {
		tokens = strings.Split(v, ",")
	}
	paths := coord.BrowsePaths()

	if r.URL.Query().Get("files") == "true" {
		files, err := client.BrowseFiles(r.Context(), id)
		if err != nil {
			renderJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
		renderJSON(w, files)
		return
	}

	children, err := client.BrowseChildren(r.Context(), id)
	if err != nil {
		renderJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	nodes := make([]browseNode, 0, len(children))
	for _, child := range children {
		childTokens := append(append([]string{}, tokens...), child.Name)
		if browse.SearchForPath(paths, childTokens) == nil {
			continue
		}
		classification, ok := browse.Classify(paths, childTokens)
		if !ok {
			// A rule covers the node but says nothing about its kind,
			// keep it browsable as a plain directory.
			classification = browse.Classification{Class: browse.ClassDirectory}
		}
		nodes = append(nodes, browseNode{
			ID:           child.ID,
			Name:         child.Name,
			MediaClass:   string(classification.Class),
			ContentType:  string(classification.Type),
			ThumbnailURL: client.GetBrowseThumbnailURL(child.ID),
		})
	}
	renderJSON(w, nodes)
}

func dispatchCommand(w http.ResponseWriter, r *http.Request, coord *coordinator.Coordinator, client *mcws.MediaServer, req commandRequest) error {
	ctx := r.Context()

	var action func() error
	switch req.Command {
	case "play_pause":
		action = func() error { return client.PlayPause(ctx, req.Zone) }
	case "play":
		action = func() error { return client.Play(ctx, req.Zone) }
	case "pause":
		action = func() error { return client.Pause(ctx, req.Zone) }
	case "stop":
		action = func() error { return client.Stop(ctx, req.Zone) }
	case "stop_all":
		action = func() error { return client.StopAll(ctx) }
	case "next":
		action = func() error { return client.NextTrack(ctx, req.Zone) }
	case "previous":
		action = func() error { return client.PreviousTrack(ctx, req.Zone) }
	case "set_volume":
		action = func() error { return client.SetVolume(ctx, req.Zone, req.Volume) }
	case "adjust_volume":
		action = func() error { return client.AdjustVolume(ctx, req.Zone, req.Volume) }
	case "mute":
		action = func() error { return client.Mute(ctx, req.Zone, req.Mute) }
	case "seek":
		action = func() error { return client.Seek(ctx, req.Zone, req.Position) }
	case "seek_relative":
		action = func() error { return client.SeekRelative(ctx, req.Zone, req.Delta) }
	case "set_shuffle":
		action = func() error { return client.SetShuffle(ctx, req.Zone, req.Shuffle) }
	case "set_repeat":
		action = func() error { return client.SetRepeat(ctx, req.Zone, req.Repeat) }
	case "clear_playlist":
		action = func() error { return client.ClearPlaylist(ctx, req.Zone) }
	case "play_playlist":
		action = func() error { return client.PlayPlaylist(ctx, req.Zone, req.Playlist) }
	case "play_file":
		action = func() error { return client.PlayFile(ctx, req.Zone, req.File) }
	case "play_item":
		action = func() error { return client.PlayItem(ctx, req.Zone, req.Key) }
	case "play_browse_files":
		action = func() error { return client.PlayBrowseFiles(ctx, req.Zone, req.BrowseID) }
	case "play_search":
		action = func() error { return client.PlaySearch(ctx, req.Zone, req.Query) }
	case "turn_on":
		action = func() error { return client.TurnOn(ctx) }
	case "turn_off":
		action = func() error { return client.TurnOff(ctx) }
	case "send_key_presses":
		action = func() error { return client.SendKeyPresses(ctx, strings.Fields(req.Keys)) }
	default:
		renderJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown command %q", req.Command))
		return nil
	}

	err := coord.Do(ctx, req.Command, req.Zone, func(context.Context) error {
		return action()
	})
	if err != nil {
		if errors.Is(err, mcws.ErrInvalidRequest) {
			renderJSONError(w, http.StatusBadRequest, err.Error())
			return nil
		}
		return err
	}
	renderJSONMessage(w, "ok")
	return nil
}
