package browse

import "github.com/3ll3d00d/jriver-bridge/mcws"

// MediaClass is the presentation class shown for a browse node.
type MediaClass string

const (
	ClassAlbum     MediaClass = "album"
	ClassArtist    MediaClass = "artist"
	ClassChannel   MediaClass = "channel"
	ClassDirectory MediaClass = "directory"
	ClassEpisode   MediaClass = "episode"
	ClassGenre     MediaClass = "genre"
	ClassImage     MediaClass = "image"
	ClassMovie     MediaClass = "movie"
	ClassMusic     MediaClass = "music"
	ClassPlaylist  MediaClass = "playlist"
	ClassPodcast   MediaClass = "podcast"
	ClassTrack     MediaClass = "track"
	ClassTVShow    MediaClass = "tv_show"
	ClassVideo     MediaClass = "video"
)

// ContentType is the playback content type attached to a browse node.
type ContentType string

const (
	TypeAlbum    ContentType = "album"
	TypeArtist   ContentType = "artist"
	TypeChannel  ContentType = "channel"
	TypeEpisode  ContentType = "episode"
	TypeGenre    ContentType = "genre"
	TypeImage    ContentType = "image"
	TypeMovie    ContentType = "movie"
	TypeMusic    ContentType = "music"
	TypePlaylist ContentType = "playlist"
	TypePodcast  ContentType = "podcast"
	TypeTrack    ContentType = "track"
	TypeTVShow   ContentType = "tvshow"
	TypeVideo    ContentType = "video"
)

// Classification pairs the class and content type for a browse node.
type Classification struct {
	Class MediaClass  `json:"media_class"`
	Type  ContentType `json:"media_content_type"`
}

// fieldClassifications maps library field and tree node names onto
// classifications. The tree is open ended and user configurable so
// lookups that miss are expected, callers fall back to a directory.
var fieldClassifications = map[string]Classification{
	"Audio":               {ClassMusic, TypeMusic},
	"Artist":              {ClassArtist, TypeArtist},
	"Album":               {ClassAlbum, TypeAlbum},
	"Album Artist (auto)": {ClassArtist, TypeArtist},
	"Composer":            {ClassArtist, TypeArtist},
	"Video":               {ClassVideo, TypeVideo},
	"Images":              {ClassImage, TypeImage},
	"Playlists":           {ClassPlaylist, TypePlaylist},
	"Shows":               {ClassTVShow, TypeTVShow},
	"Genre":               {ClassGenre, TypeGenre},
	"Podcast":             {ClassPodcast, TypePodcast},
}

// Classify determines the classification for a concrete browse
// position. The first rule whose name segments prefix-match the tokens
// wins; within it, a tag qualified leaf beats walking the matched name
// segments from deepest to shallowest, and the rule's effective media
// types are the final fallback. ok is false when nothing matches and
// the node should be shown as a plain directory.
func Classify(paths []Path, tokens []string) (Classification, bool) {
	rule := SearchForPath(paths, tokens)
	if rule == nil {
		return Classification{}, false
	}
	return ClassifyPath(*rule, tokens)
}

// ClassifyPath classifies tokens against an already matched rule.
func ClassifyPath(rule Path, tokens []string) (Classification, bool) {
	if len(tokens) > len(rule.Names) {
		// The leaf lies beneath the rule's named levels so it is
		// qualified by a tag: the leaf token itself, else the tag
		// governing that depth.
		if c, ok := fieldClassifications[tokens[len(tokens)-1]]; ok {
			return c, true
		}
		if depth := len(tokens) - len(rule.Names) - 1; depth < len(rule.Tags) {
			if c, ok := fieldClassifications[rule.Tags[depth]]; ok {
				return c, true
			}
		}
	}
	matched := len(tokens)
	if len(rule.Names) < matched {
		matched = len(rule.Names)
	}
	for i := matched - 1; i >= 0; i-- {
		if c, ok := fieldClassifications[rule.Names[i]]; ok {
			return c, true
		}
	}
	return classifyByMediaTypes(rule)
}

func classifyByMediaTypes(rule Path) (Classification, bool) {
	for _, mt := range rule.EffectiveMediaTypes() {
		subTypes := rule.EffectiveMediaSubTypes()
		if len(subTypes) == 0 {
			if c, ok := translate(mt, ""); ok {
				return c, true
			}
			continue
		}
		for _, mst := range subTypes {
			if c, ok := translate(mt, mst); ok {
				return c, true
			}
		}
	}
	return Classification{}, false
}

func translate(mt mcws.MediaType, mst mcws.MediaSubType) (Classification, bool) {
	c := Classification{
		Class: TranslateToMediaClass(mt, mst, false),
		Type:  TranslateToContentType(mt, mst, false),
	}
	if c.Class == "" || c.Type == "" {
		return Classification{}, false
	}
	return c, true
}

// TranslateToContentType converts the server's media type and sub type
// to a content type. single selects the classification of an
// individual item rather than its container, e.g. a track rather than
// an album of music.
func TranslateToContentType(mt mcws.MediaType, mst mcws.MediaSubType, single bool) ContentType {
	switch mt {
	case mcws.MediaTypeVideo:
		switch mst {
		case mcws.MediaSubTypeMovie:
			return TypeMovie
		case mcws.MediaSubTypeTVShow:
			if single {
				return TypeEpisode
			}
			return TypeTVShow
		}
		return TypeVideo
	case mcws.MediaTypeAudio:
		if single {
			return TypeTrack
		}
		return TypeMusic
	case mcws.MediaTypeTV:
		if single {
			return TypeChannel
		}
		return TypeTVShow
	case mcws.MediaTypeImage:
		return TypeImage
	case mcws.MediaTypePlaylist:
		return TypePlaylist
	case "":
		switch mst {
		case mcws.MediaSubTypeMovie:
			return TypeMovie
		case mcws.MediaSubTypeTVShow:
			if single {
				return TypeEpisode
			}
			return TypeTVShow
		case mcws.MediaSubTypeMusic:
			if single {
				return TypeTrack
			}
			return TypeMusic
		}
	}
	return ""
}

// TranslateToMediaClass mirrors TranslateToContentType for the
// presentation class. TV show containers classify as the tv_show
// class, not the tvshow content type.
func TranslateToMediaClass(mt mcws.MediaType, mst mcws.MediaSubType, single bool) MediaClass {
	switch mt {
	case mcws.MediaTypeVideo:
		switch mst {
		case mcws.MediaSubTypeMovie:
			return ClassMovie
		case mcws.MediaSubTypeTVShow:
			if single {
				return ClassEpisode
			}
			return ClassTVShow
		}
		return ClassVideo
	case mcws.MediaTypeAudio:
		if single {
			return ClassTrack
		}
		return ClassMusic
	case mcws.MediaTypeTV:
		return ClassChannel
	case mcws.MediaTypeImage:
		return ClassImage
	case mcws.MediaTypePlaylist:
		return ClassPlaylist
	case "":
		switch mst {
		case mcws.MediaSubTypeMovie:
			return ClassMovie
		case mcws.MediaSubTypeTVShow:
			if single {
				return ClassEpisode
			}
			return ClassTVShow
		case mcws.MediaSubTypeMusic:
			if single {
				return ClassTrack
			}
			return ClassMusic
		}
	}
	return ""
}
