// Package browse classifies positions in the server's library browse
// tree. Rules describe how each section of the tree maps onto a
// presentation class, either declared in configuration or fetched from
// the server itself.
package browse

import (
	"strings"

	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// Path is a single browse rule: an ordered list of tree node names,
// optionally followed by the library fields that qualify deeper
// levels, e.g. "Audio,Artist|Album Artist (auto),Album". Immutable
// once parsed; rule order is significant when searching.
type Path struct {
	Names []string
	Tags  []string

	// Media types declared on the rule itself (server fetched rules
	// carry these, configured text rules normally do not).
	MediaTypes    []mcws.MediaType
	MediaSubTypes []mcws.MediaSubType

	// Types inherited from the nearest ancestor rule when the rule
	// declares none of its own.
	effectiveMediaTypes    []mcws.MediaType
	effectiveMediaSubTypes []mcws.MediaSubType
}

// ParsePath parses a single rule from its text form.
func ParsePath(text string) Path {
	names, tags, _ := strings.Cut(text, "|")
	return Path{
		Names: splitSegments(names),
		Tags:  splitSegments(tags),
	}
}

// ParsePathsFromText parses persisted rule text, one rule per entry.
// Blank entries are dropped.
func ParsePathsFromText(texts []string) []Path {
	paths := make([]Path, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		paths = append(paths, ParsePath(t))
	}
	return resolveEffectiveTypes(paths)
}

// ConvertRules converts raw server rules into matchable paths,
// preserving server order.
func ConvertRules(rules []mcws.BrowseRule) []Path {
	paths := make([]Path, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Categories) == "" {
			continue
		}
		p := Path{
			Names: splitSegments(r.Categories),
			Tags:  splitSegments(r.Tags),
		}
		for _, mt := range splitSegments(r.MediaTypes) {
			p.MediaTypes = append(p.MediaTypes, mcws.MediaType(mt))
		}
		for _, mst := range splitSegments(r.MediaSubTypes) {
			p.MediaSubTypes = append(p.MediaSubTypes, mcws.MediaSubType(mst))
		}
		paths = append(paths, p)
	}
	return resolveEffectiveTypes(paths)
}

// PlaylistsPath is the synthetic rule appended after every server rule
// fetch so the Playlists node always classifies correctly.
func PlaylistsPath() Path {
	p := Path{
		Names:      []string{"Playlists"},
		MediaTypes: []mcws.MediaType{mcws.MediaTypePlaylist},
	}
	p.effectiveMediaTypes = p.MediaTypes
	return p
}

// Contains reports whether the candidate tokens lie on or beneath this
// rule: a positional prefix match over the name segments only, up to
// the shorter of the two lengths.
func (p Path) Contains(tokens []string) bool {
	if len(tokens) == 0 || len(p.Names) == 0 {
		return false
	}
	n := len(tokens)
	if len(p.Names) < n {
		n = len(p.Names)
	}
	for i := 0; i < n; i++ {
		if p.Names[i] != tokens[i] {
			return false
		}
	}
	return true
}

// SearchForPath returns the first rule containing the candidate
// tokens, or nil. Declaration order decides ties.
func SearchForPath(paths []Path, tokens []string) *Path {
	for i := range paths {
		if paths[i].Contains(tokens) {
			return &paths[i]
		}
	}
	return nil
}

// EffectiveMediaTypes are the rule's own media types, or those of its
// nearest ancestor rule when it declares none.
func (p Path) EffectiveMediaTypes() []mcws.MediaType {
	return p.effectiveMediaTypes
}

// EffectiveMediaSubTypes mirrors EffectiveMediaTypes for sub types.
func (p Path) EffectiveMediaSubTypes() []mcws.MediaSubType {
	return p.effectiveMediaSubTypes
}

// resolveEffectiveTypes fills in inherited media types. A rule with no
// declared types borrows from the longest earlier rule whose names are
// a proper prefix of its own.
func resolveEffectiveTypes(paths []Path) []Path {
	for i := range paths {
		paths[i].effectiveMediaTypes = paths[i].MediaTypes
		paths[i].effectiveMediaSubTypes = paths[i].MediaSubTypes
		if len(paths[i].effectiveMediaTypes) > 0 {
			continue
		}
		best := -1
		for j := range paths {
			if j == i || len(paths[j].MediaTypes) == 0 {
				continue
			}
			if !isProperPrefix(paths[j].Names, paths[i].Names) {
				continue
			}
			if best == -1 || len(paths[j].Names) > len(paths[best].Names) {
				best = j
			}
		}
		if best >= 0 {
			paths[i].effectiveMediaTypes = paths[best].MediaTypes
			paths[i].effectiveMediaSubTypes = paths[best].MediaSubTypes
		}
	}
	return paths
}

func isProperPrefix(shorter, longer []string) bool {
	if len(shorter) >= len(longer) {
		return false
	}
	for i := range shorter {
		if shorter[i] != longer[i] {
			return false
		}
	}
	return true
}

func splitSegments(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
