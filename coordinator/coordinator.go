// Package coordinator maintains the authoritative view of a JRiver
// media server by polling it on a fixed cadence and republishing an
// immutable snapshot after every successful cycle.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/3ll3d00d/jriver-bridge/browse"
	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// pathRefreshInterval bounds how often browse rules are re-fetched
// from a server that supports serving them.
const pathRefreshInterval = 900 * time.Second

var (
	// ErrUpdateFailed marks a cycle lost to a transient failure. The
	// last good snapshot stays visible and the next scheduled tick is
	// the retry.
	ErrUpdateFailed = errors.New("update failed")
	// ErrReauthRequired marks a cycle aborted because the server
	// rejected our credentials. Retrying without new credentials is
	// pointless.
	ErrReauthRequired = errors.New("reauthentication required")
)

// Client is the slice of the media server API the coordinator polls.
type Client interface {
	Alive(ctx context.Context) (mcws.ServerInfo, error)
	GetZones(ctx context.Context) ([]mcws.Zone, error)
	GetViewMode(ctx context.Context) (mcws.ViewMode, error)
	GetPlaybackInfo(ctx context.Context, zone string, extraFields []string) (mcws.PlaybackInfo, error)
	GetAudioPathDirect(ctx context.Context, zone string) (bool, error)
	GetCurrentPlaylist(ctx context.Context, zone string) ([]map[string]string, error)
	GetBrowseRules(ctx context.Context) ([]mcws.BrowseRule, error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithExtraFields requests additional library fields on every playback
// info fetch.
func WithExtraFields(fields []string) Option {
	return func(c *Coordinator) { c.extraFields = fields }
}

// WithConfiguredPaths supplies browse rules parsed from configuration
// text, used when the server cannot serve rules itself.
func WithConfiguredPaths(paths []browse.Path) Option {
	return func(c *Coordinator) { c.configuredPaths = paths }
}

// WithOnChange registers a hook invoked with the previous and new
// snapshot after every successful cycle.
func WithOnChange(fn func(prev, next *Snapshot)) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

// WithOnReauthRequired registers a hook invoked once per transition
// into the reauthentication required condition.
func WithOnReauthRequired(fn func(err error)) Option {
	return func(c *Coordinator) { c.onReauth = fn }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func withClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator owns the polling loop state. Exactly one refresh cycle
// runs at a time, scheduled ticks and out of band requests serialize
// on the same mutex.
type Coordinator struct {
	client          Client
	extraFields     []string
	configuredPaths []browse.Path
	logger          *slog.Logger
	now             func() time.Time
	onChange        func(prev, next *Snapshot)
	onReauth        func(err error)

	refreshMu sync.Mutex // serializes cycles

	mu              sync.RWMutex // guards the fields below
	snapshot        *Snapshot
	lastPathRefresh time.Time
	needsAuth       bool
}

// New creates a Coordinator polling the given client.
func New(client Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:   client,
		logger:   slog.Default(),
		now:      time.Now,
		snapshot: &Snapshot{ViewMode: mcws.ViewModeUnknown},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot. Callers must treat it as
// read only.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// NeedsAuth reports whether the last cycle failed on credentials.
func (c *Coordinator) NeedsAuth() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.needsAuth
}

// BrowsePaths returns the rules to match browse requests against:
// server fetched rules when available, configured rules otherwise.
func (c *Coordinator) BrowsePaths() []browse.Path {
	if snap := c.Snapshot(); snap.BrowsePaths != nil {
		return snap.BrowsePaths
	}
	return c.configuredPaths
}

// Refresh runs one full poll cycle and publishes the resulting
// snapshot. On failure the previous snapshot is retained and the error
// wraps ErrReauthRequired or ErrUpdateFailed.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	prev := c.Snapshot()
	next, err := c.fetch(ctx, prev)
	if err != nil {
		if errors.Is(err, mcws.ErrInvalidAuth) {
			c.mu.Lock()
			firstFailure := !c.needsAuth
			c.needsAuth = true
			c.mu.Unlock()
			if firstFailure {
				c.logger.Error("Media server rejected credentials, reauthentication required",
					slog.String("error", err.Error()))
				if c.onReauth != nil {
					c.onReauth(err)
				}
			}
			return fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}
		c.logger.Debug("Update cycle failed",
			slog.String("server", c.serverName(prev)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	lastZone, _ := prev.ActiveZoneName()
	newZone, _ := next.ActiveZoneName()
	if lastZone != newZone {
		c.logger.Debug("Active zone change",
			slog.String("server", c.serverName(next)),
			slog.String("from", lastZone),
			slog.String("to", newZone))
	}

	c.mu.Lock()
	c.snapshot = next
	c.needsAuth = false
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(prev, next)
	}
	return nil
}

func (c *Coordinator) serverName(s *Snapshot) string {
	if s != nil && s.ServerInfo != nil {
		return s.ServerInfo.Name
	}
	return "Unknown"
}

func (c *Coordinator) fetch(ctx context.Context, prev *Snapshot) (*Snapshot, error) {
	var (
		info     mcws.ServerInfo
		zones    []mcws.Zone
		viewMode mcws.ViewMode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = c.client.Alive(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = c.client.GetZones(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		viewMode, err = c.client.GetViewMode(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	playback := make(map[string]mcws.PlaybackInfo, len(zones))
	var pmu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	for _, zone := range zones {
		zone := zone
		g.Go(func() error {
			pi, err := c.client.GetPlaybackInfo(gctx, zone.Name, c.extraFields)
			if err != nil {
				return err
			}
			pmu.Lock()
			playback[zone.Name] = pi
			pmu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	posUpdated := make(map[string]time.Time, len(zones))
	refreshAt := c.now()
	var fullRefresh []string
	for _, zone := range zones {
		pi := playback[zone.Name]
		last, hadLast := prev.Playback[zone.Name]
		switch {
		case !hadLast:
			if pi.PositionMS > 0 {
				posUpdated[zone.Name] = refreshAt
			}
		case pi.PositionMS != last.PositionMS:
			posUpdated[zone.Name] = refreshAt
		default:
			if t, ok := prev.PositionUpdatedAt[zone.Name]; ok {
				posUpdated[zone.Name] = t
			}
		}
		switch {
		case !hadLast:
			fullRefresh = append(fullRefresh, zone.Name)
		case last.FileKey != pi.FileKey:
			c.logger.Debug("Track change detected, will refresh audio path and playlist",
				slog.String("server", info.Name),
				slog.String("zone", zone.Name))
			fullRefresh = append(fullRefresh, zone.Name)
		case last.State != pi.State:
			c.logger.Debug("Playback state change detected, will refresh audio path and playlist",
				slog.String("server", info.Name),
				slog.String("zone", zone.Name),
				slog.String("from", last.State.String()),
				slog.String("to", pi.State.String()))
			fullRefresh = append(fullRefresh, zone.Name)
		}
	}

	audioDirect := make(map[string]bool, len(zones))
	playlists := make(map[string][]map[string]string, len(zones))
	for _, zone := range zones {
		if v, ok := prev.AudioDirect[zone.Name]; ok {
			audioDirect[zone.Name] = v
		}
		if v, ok := prev.Playlists[zone.Name]; ok {
			playlists[zone.Name] = v
		}
	}
	if len(fullRefresh) > 0 {
		var fmu sync.Mutex
		g, gctx = errgroup.WithContext(ctx)
		for _, zone := range fullRefresh {
			zone := zone
			g.Go(func() error {
				direct, err := c.client.GetAudioPathDirect(gctx, zone)
				if err != nil {
					return err
				}
				fmu.Lock()
				audioDirect[zone] = direct
				fmu.Unlock()
				return nil
			})
			g.Go(func() error {
				playlist, err := c.client.GetCurrentPlaylist(gctx, zone)
				if err != nil {
					return err
				}
				fmu.Lock()
				playlists[zone] = playlist
				fmu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	paths, lastPathRefresh, err := c.refreshPathsIfNecessary(ctx, prev, info)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ServerInfo:        &info,
		Zones:             zones,
		Playback:          playback,
		PositionUpdatedAt: posUpdated,
		AudioDirect:       audioDirect,
		Playlists:         playlists,
		ViewMode:          viewMode,
		BrowsePaths:       paths,
		LastPathRefresh:   lastPathRefresh,
	}, nil
}

// refreshPathsIfNecessary re-fetches browse rules when the server
// supports them and the cache is cold, stale or from a different
// server version. The refresh timestamp advances even on failure so a
// broken rules endpoint cannot turn every cycle into a rules fetch.
func (c *Coordinator) refreshPathsIfNecessary(ctx context.Context, prev *Snapshot, info mcws.ServerInfo) ([]browse.Path, time.Time, error) {
	if !mcws.CanRefreshPaths(info.Version) {
		return nil, time.Time{}, nil
	}

	c.mu.RLock()
	lastRefresh := c.lastPathRefresh
	c.mu.RUnlock()

	needed := prev.BrowsePaths == nil || lastRefresh.IsZero() || prev.ServerInfo == nil
	if !needed {
		if since := c.now().Sub(lastRefresh); since >= pathRefreshInterval {
			c.logger.Debug("Reloading browse paths",
				slog.Int("seconds_since_refresh", int(since.Seconds())))
			needed = true
		} else if prev.ServerInfo.Version != info.Version {
			c.logger.Debug("Reloading browse paths after version change",
				slog.String("from", prev.ServerInfo.Version),
				slog.String("to", info.Version))
			needed = true
		}
	}
	if !needed {
		return prev.BrowsePaths, lastRefresh, nil
	}

	refreshedAt := c.now()
	c.mu.Lock()
	c.lastPathRefresh = refreshedAt
	c.mu.Unlock()

	rules, err := c.client.GetBrowseRules(ctx)
	if err != nil {
		return nil, refreshedAt, err
	}
	paths := append(browse.ConvertRules(rules), browse.PlaylistsPath())
	return paths, refreshedAt, nil
}
